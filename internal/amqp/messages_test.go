package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionSyncMessage(t *testing.T) {
	msg := NewTransactionSyncMessage(12345)

	if msg.TransactionID != 12345 {
		t.Errorf("TransactionID = %v, want 12345", msg.TransactionID)
	}
	if msg.MessageID == "" {
		t.Error("MessageID should be set")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}

	other := NewTransactionSyncMessage(12345)
	if other.MessageID == msg.MessageID {
		t.Error("MessageID should be unique per message")
	}
}

func TestTransactionSyncMessage_JSON(t *testing.T) {
	msg := &TransactionSyncMessage{
		MessageID:     "aa5195ff-9b1c-4f0e-a8ad-57d1cc0bdd44",
		TransactionID: 42,
		Timestamp:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := TransactionSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("TransactionSyncMessageFromJSON() error = %v", err)
	}

	if parsed.MessageID != msg.MessageID {
		t.Errorf("MessageID = %v, want %v", parsed.MessageID, msg.MessageID)
	}
	if parsed.TransactionID != msg.TransactionID {
		t.Errorf("TransactionID = %v, want %v", parsed.TransactionID, msg.TransactionID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestTransactionSyncMessage_InvalidJSON(t *testing.T) {
	if _, err := TransactionSyncMessageFromJSON([]byte(`{"transaction_id": "nope"}`)); err == nil {
		t.Error("TransactionSyncMessageFromJSON() should fail with invalid JSON")
	}
}

func TestReminderEventMessage_JSON(t *testing.T) {
	msg := &ReminderEventMessage{
		MessageID:    "b2f7b552-8f07-4b86-9b84-3a1f7f2a9a01",
		BillID:       7,
		UserID:       "u1",
		Title:        "Electricity",
		Bucket:       "REMINDER_DUE",
		DueDate:      "2024-05-10",
		DaysUntilDue: 2,
		Timestamp:    time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC),
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ReminderEventMessageFromJSON(data)
	if err != nil {
		t.Fatalf("ReminderEventMessageFromJSON() error = %v", err)
	}

	if parsed.BillID != 7 || parsed.Bucket != "REMINDER_DUE" || parsed.DaysUntilDue != 2 {
		t.Errorf("parsed = %+v", parsed)
	}
	if parsed.DueDate != "2024-05-10" {
		t.Errorf("DueDate = %q, want 2024-05-10", parsed.DueDate)
	}
}
