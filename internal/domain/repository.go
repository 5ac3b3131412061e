package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type UserRepository interface {
	GetByTelegramID(ctx context.Context, telegramUserID int64) (*User, error)
	GetByID(ctx context.Context, userID uint) (*User, error)
	Create(ctx context.Context, user *User) error
}

type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	ListByUser(ctx context.Context, userID uint) ([]Alert, error)
	ListActive(ctx context.Context) ([]Alert, error)
	SetActive(ctx context.Context, userID uint, alertID uint, active bool) error
	SetAllActive(ctx context.Context, userID uint, active bool) (int64, error)
	Extend(ctx context.Context, userID uint, alertID uint, expiresAt time.Time) error
	Delete(ctx context.Context, userID uint, alertID uint) error
	// ExpireBefore deactivates active alerts that expired before cutoff and returns them.
	ExpireBefore(ctx context.Context, cutoff time.Time) ([]Alert, error)
}

type NotificationRepository interface {
	// Record stores notifications in one transaction, skipping any whose
	// (UserID, OrderID) already exists, and returns how many were stored.
	Record(ctx context.Context, notifications []Notification) (int, error)
	ListPending(ctx context.Context, limit int) ([]Notification, error)
	MarkSent(ctx context.Context, notificationID uint, at time.Time) error
	MarkFailed(ctx context.Context, notificationID uint) error
}

// OrderBookSource returns the latest snapshot of every coordinator book.
type OrderBookSource interface {
	Snapshots(ctx context.Context) ([]OrderBook, error)
}
