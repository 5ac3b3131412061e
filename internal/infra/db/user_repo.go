package db

import (
	"context"
	"errors"

	"github.com/NasaVasa/robowatch/internal/domain"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramUserID int64) (*domain.User, error) {
	return r.first(ctx, "telegram_user_id = ?", telegramUserID)
}

func (r *UserRepository) GetByID(ctx context.Context, userID uint) (*domain.User, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	user := mapUserToDomain(model)
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	model := userModel{TelegramUserID: user.TelegramUserID, Username: user.Username}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	*user = mapUserToDomain(model)
	return nil
}

func mapUserToDomain(model userModel) domain.User {
	return domain.User{
		ID:             model.ID,
		TelegramUserID: model.TelegramUserID,
		Username:       model.Username,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
