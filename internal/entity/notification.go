package entity

import "time"

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "PENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification is a durable outbox row: written in the same transaction as
// the state change it announces, delivered at least once by the dispatcher.
type Notification struct {
	ID        int                `json:"id"`
	Type      string             `json:"type"`
	RefTable  string             `json:"ref_table"`
	RefID     int                `json:"ref_id"`
	Title     string             `json:"title"`
	Detail    string             `json:"detail"`
	Status    NotificationStatus `json:"status"`
	Attempts  int                `json:"attempts"`
	CreatedAt time.Time          `json:"created_at"`
	SentAt    *time.Time         `json:"sent_at,omitempty"`
}
