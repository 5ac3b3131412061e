package domain

import "time"

type NotificationStatus int

const (
	NotificationPending NotificationStatus = 0
	NotificationSent    NotificationStatus = 1
	NotificationFailed  NotificationStatus = 2
)

func (s NotificationStatus) String() string {
	switch s {
	case NotificationPending:
		return "pending"
	case NotificationSent:
		return "sent"
	case NotificationFailed:
		return "failed"
	}
	return "unknown"
}

// Notification is unique per (UserID, OrderID).
type Notification struct {
	ID        uint
	UserID    uint
	OrderID   string
	Message   string
	Status    NotificationStatus
	CreatedAt time.Time
	SentAt    *time.Time
}
