package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// TransactionSyncMessage queues one transaction for export. It carries only
// the row ID; the worker fetches the full transaction from the database.
type TransactionSyncMessage struct {
	MessageID     string    `json:"message_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(transactionID int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		MessageID:     uuid.NewString(),
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderEventMessage announces that a bill entered an alert bucket during a
// reminder sweep. Consumers turn these into notifications.
type ReminderEventMessage struct {
	MessageID    string    `json:"message_id"`
	BillID       int64     `json:"bill_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Bucket       string    `json:"bucket"`
	DueDate      string    `json:"due_date"` // YYYY-MM-DD in the user's timezone
	DaysUntilDue int       `json:"days_until_due"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewReminderEventMessage(bill core.Bill, bucket string, daysUntilDue int) *ReminderEventMessage {
	return &ReminderEventMessage{
		MessageID:    uuid.NewString(),
		BillID:       bill.ID,
		UserID:       bill.UserID,
		Title:        bill.Title,
		Bucket:       bucket,
		DueDate:      bill.DueDate.String(),
		DaysUntilDue: daysUntilDue,
		Timestamp:    time.Now(),
	}
}

func (m *ReminderEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderEventMessageFromJSON(data []byte) (*ReminderEventMessage, error) {
	var msg ReminderEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
