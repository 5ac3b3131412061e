package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"go.uber.org/zap"
)

// ExpiryService deactivates alerts past their expiry and tells their owners.
type ExpiryService struct {
	alerts   domain.AlertRepository
	users    domain.UserRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewExpiryService(alerts domain.AlertRepository, users domain.UserRepository, notifier Notifier, logger *zap.Logger) *ExpiryService {
	return &ExpiryService{alerts: alerts, users: users, notifier: notifier, logger: logger, now: time.Now}
}

func (s *ExpiryService) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.alerts.ExpireBefore(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire alerts: %w", err)
	}

	for _, alert := range expired {
		user, err := s.users.GetByID(ctx, alert.UserID)
		if err != nil {
			s.logger.Warn("failed to load owner of expired alert", zap.Uint("alert_id", alert.ID), zap.Error(err))
			continue
		}
		if err := s.notifier.Notify(user.TelegramUserID, ExpiryMessage(alert)); err != nil {
			s.logger.Warn("failed to send expiry notice", zap.Uint("alert_id", alert.ID), zap.Int64("telegram_user_id", user.TelegramUserID), zap.Error(err))
		}
	}
	return len(expired), nil
}

func ExpiryMessage(alert domain.Alert) string {
	return fmt.Sprintf(
		"⏰ Alert #%d (%s %s, premium %s%%) has expired and was disabled.\nSend /extend %d <days> to turn it back on.",
		alert.ID, alert.Action, alert.Currency, alert.Premium, alert.ID,
	)
}

func (s *ExpiryService) Run(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func(ctx context.Context) {
		count, err := s.ExpireDue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("alert expiry failed", zap.Error(err))
			}
			return
		}
		if count > 0 {
			s.logger.Info("alerts expired", zap.Int("count", count))
		}
	})
}
