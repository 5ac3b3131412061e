package db

import (
	"time"

	"gorm.io/gorm"
)

type userModel struct {
	ID             uint   `gorm:"primaryKey"`
	TelegramUserID int64  `gorm:"uniqueIndex;not null"`
	Username       string `gorm:""`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (userModel) TableName() string { return "users" }

type alertModel struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         uint   `gorm:"index:idx_alerts_user_active,priority:1;not null"`
	Action         string `gorm:"size:4;not null"`
	Currency       string `gorm:"size:16;not null"`
	Premium        string `gorm:"not null"`
	PaymentMethods string `gorm:"not null"`
	MinAmount      string
	MaxAmount      string
	Active         bool      `gorm:"index:idx_alerts_user_active,priority:2;index:idx_alerts_active_expiry,priority:1"`
	ExpiresAt      time.Time `gorm:"index:idx_alerts_active_expiry,priority:2"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (alertModel) TableName() string { return "alerts" }

// Rows are never deleted; the unique index is what makes Record idempotent.
type notificationModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_notifications_user_order,priority:1;not null"`
	OrderID   string `gorm:"uniqueIndex:idx_notifications_user_order,priority:2;size:64;not null"`
	Message   string `gorm:"type:text;not null"`
	Status    int    `gorm:"index;not null;default:0"`
	SentAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (notificationModel) TableName() string { return "notifications" }
