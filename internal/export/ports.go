// Package export defines the outbound ports for pushing ledger data to
// external spreadsheets.
package export

import (
	"context"

	"fintrack/internal/core"
)

// TransactionWriter appends one transaction to an external sheet and returns
// an opaque reference to the written row.
type TransactionWriter interface {
	Append(ctx context.Context, t core.Transaction) (string, error)
}

// SummaryWriter records the month summary for one year+month.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, s core.MonthSummary) error
}
