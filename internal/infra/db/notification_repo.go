package db

import (
	"context"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository is the notification sink. Deduplication relies on
// the unique (user_id, order_id) index: inserts that hit it are ignored, which
// keeps check-and-insert atomic against concurrent writers.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Record(ctx context.Context, notifications []domain.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	stored := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored = 0
		for _, notification := range notifications {
			model := notificationModel{
				UserID:  notification.UserID,
				OrderID: notification.OrderID,
				Message: notification.Message,
				Status:  int(domain.NotificationPending),
			}
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "order_id"}},
				DoNothing: true,
			}).Create(&model)
			if result.Error != nil {
				return result.Error
			}
			stored += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	var models []notificationModel
	query := r.db.WithContext(ctx).Where("status = ?", int(domain.NotificationPending)).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	notifications := make([]domain.Notification, 0, len(models))
	for _, model := range models {
		notifications = append(notifications, mapNotificationToDomain(model))
	}
	return notifications, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, notificationID uint, at time.Time) error {
	return r.setStatus(ctx, notificationID, map[string]interface{}{
		"status":  int(domain.NotificationSent),
		"sent_at": at,
	})
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, notificationID uint) error {
	return r.setStatus(ctx, notificationID, map[string]interface{}{
		"status": int(domain.NotificationFailed),
	})
}

func (r *NotificationRepository) setStatus(ctx context.Context, notificationID uint, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&notificationModel{}).Where("id = ?", notificationID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapNotificationToDomain(model notificationModel) domain.Notification {
	return domain.Notification{
		ID:        model.ID,
		UserID:    model.UserID,
		OrderID:   model.OrderID,
		Message:   model.Message,
		Status:    domain.NotificationStatus(model.Status),
		CreatedAt: model.CreatedAt,
		SentAt:    model.SentAt,
	}
}
