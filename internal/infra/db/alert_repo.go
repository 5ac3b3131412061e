package db

import (
	"context"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"gorm.io/gorm"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	model := mapAlertToModel(*alert)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	*alert = mapAlertToDomain(model)
	return nil
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID uint) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models), nil
}

func (r *AlertRepository) ListActive(ctx context.Context) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models), nil
}

func (r *AlertRepository) SetActive(ctx context.Context, userID uint, alertID uint, active bool) error {
	result := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ? AND user_id = ?", alertID, userID).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) SetAllActive(ctx context.Context, userID uint, active bool) (int64, error) {
	result := r.db.WithContext(ctx).Model(&alertModel{}).Where("user_id = ? AND active = ?", userID, !active).Update("active", active)
	return result.RowsAffected, result.Error
}

func (r *AlertRepository) Extend(ctx context.Context, userID uint, alertID uint, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&alertModel{}).
		Where("id = ? AND user_id = ?", alertID, userID).
		Updates(map[string]interface{}{"expires_at": expiresAt, "active": true})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) Delete(ctx context.Context, userID uint, alertID uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", alertID, userID).Delete(&alertModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) ExpireBefore(ctx context.Context, cutoff time.Time) ([]domain.Alert, error) {
	var expired []alertModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("active = ? AND expires_at < ?", true, cutoff).Order("id").Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(expired))
		for _, model := range expired {
			ids = append(ids, model.ID)
		}
		return tx.Model(&alertModel{}).Where("id IN ?", ids).Update("active", false).Error
	})
	if err != nil {
		return nil, err
	}
	alerts := mapAlertsToDomain(expired)
	for i := range alerts {
		alerts[i].Active = false
	}
	return alerts, nil
}

func mapAlertsToDomain(models []alertModel) []domain.Alert {
	alerts := make([]domain.Alert, 0, len(models))
	for _, model := range models {
		alerts = append(alerts, mapAlertToDomain(model))
	}
	return alerts
}

func mapAlertToDomain(model alertModel) domain.Alert {
	return domain.Alert{
		ID:             model.ID,
		UserID:         model.UserID,
		Action:         domain.Action(model.Action),
		Currency:       model.Currency,
		Premium:        model.Premium,
		PaymentMethods: model.PaymentMethods,
		MinAmount:      model.MinAmount,
		MaxAmount:      model.MaxAmount,
		Active:         model.Active,
		ExpiresAt:      model.ExpiresAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func mapAlertToModel(alert domain.Alert) alertModel {
	return alertModel{
		ID:             alert.ID,
		UserID:         alert.UserID,
		Action:         string(alert.Action),
		Currency:       alert.Currency,
		Premium:        alert.Premium,
		PaymentMethods: alert.PaymentMethods,
		MinAmount:      alert.MinAmount,
		MaxAmount:      alert.MaxAmount,
		Active:         alert.Active,
		ExpiresAt:      alert.ExpiresAt,
		CreatedAt:      alert.CreatedAt,
		UpdatedAt:      alert.UpdatedAt,
	}
}
