package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/infra/metrics"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Notifier interface {
	Notify(telegramUserID int64, text string) error
}

type DispatcherConfig struct {
	// Rate is the number of messages per second; zero or less disables limiting.
	Rate           float64
	MaxRetries     uint64
	BatchSize      int
	InitialBackoff time.Duration
}

// Dispatcher sends pending notifications and records the outcome of each.
type Dispatcher struct {
	users         domain.UserRepository
	notifications domain.NotificationRepository
	notifier      Notifier
	limiter       *rate.Limiter
	cfg           DispatcherConfig
	logger        *zap.Logger
	now           func() time.Time
}

func NewDispatcher(users domain.UserRepository, notifications domain.NotificationRepository, notifier Notifier, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	limit := rate.Inf
	burst := 1
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		burst = int(math.Max(1, math.Ceil(cfg.Rate)))
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	return &Dispatcher{
		users:         users,
		notifications: notifications,
		notifier:      notifier,
		limiter:       rate.NewLimiter(limit, burst),
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

type DispatchReport struct {
	Sent   int
	Failed int
}

func (d *Dispatcher) DispatchPending(ctx context.Context) (DispatchReport, error) {
	var report DispatchReport

	pending, err := d.notifications.ListPending(ctx, d.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("list pending notifications: %w", err)
	}

	recipients := make(map[uint]int64)
	for _, notification := range pending {
		chatID, ok := recipients[notification.UserID]
		if !ok {
			user, err := d.users.GetByID(ctx, notification.UserID)
			if errors.Is(err, domain.ErrNotFound) {
				d.logger.Warn("notification owner missing", zap.Uint("notification_id", notification.ID), zap.Uint("user_id", notification.UserID))
				if err := d.markFailed(ctx, notification.ID); err != nil {
					return report, err
				}
				report.Failed++
				continue
			}
			if err != nil {
				return report, fmt.Errorf("load user %d: %w", notification.UserID, err)
			}
			chatID = user.TelegramUserID
			recipients[notification.UserID] = chatID
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return report, err
		}

		if err := d.send(ctx, chatID, notification.Message); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			d.logger.Warn(
				"notification delivery failed",
				zap.Uint("notification_id", notification.ID),
				zap.Int64("telegram_user_id", chatID),
				zap.String("order_id", notification.OrderID),
				zap.Error(err),
			)
			if err := d.markFailed(ctx, notification.ID); err != nil {
				return report, err
			}
			report.Failed++
			continue
		}

		if err := d.notifications.MarkSent(ctx, notification.ID, d.now().UTC()); err != nil {
			return report, fmt.Errorf("mark notification %d sent: %w", notification.ID, err)
		}
		metrics.Deliveries.WithLabelValues("sent").Inc()
		report.Sent++
	}
	return report, nil
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.cfg.InitialBackoff
	policy.Multiplier = 2

	return backoff.Retry(func() error {
		return d.notifier.Notify(chatID, text)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, d.cfg.MaxRetries), ctx))
}

func (d *Dispatcher) markFailed(ctx context.Context, id uint) error {
	metrics.Deliveries.WithLabelValues("failed").Inc()
	if err := d.notifications.MarkFailed(ctx, id); err != nil {
		return fmt.Errorf("mark notification %d failed: %w", id, err)
	}
	return nil
}

func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func(ctx context.Context) {
		report, err := d.DispatchPending(ctx)
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Error("delivery pass failed", zap.Error(err))
			}
			return
		}
		if report.Sent > 0 || report.Failed > 0 {
			d.logger.Info("delivery pass complete", zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
		}
	})
}
