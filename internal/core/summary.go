package core

// CategoryAmount is an amount aggregated under a category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary is a compact income/expense aggregate for one year+month.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expenses   Money
	Net        Money
	ByCategory []CategoryAmount
}

// BudgetProgress pairs a budget with the spend recorded against it.
type BudgetProgress struct {
	Budget Budget
	Spent  Money
}

// Remaining returns the unspent part of the limit; negative when over budget.
func (p BudgetProgress) Remaining() Money {
	return Money{Cents: p.Budget.Limit.Cents - p.Spent.Cents}
}
