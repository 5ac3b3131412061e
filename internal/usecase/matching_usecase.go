package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/infra/metrics"
	"github.com/NasaVasa/robowatch/internal/matcher"
	"github.com/NasaVasa/robowatch/internal/notify"
	"go.uber.org/zap"
)

type CycleReport struct {
	Alerts  int
	Books   int
	Matches int
	Stored  int
}

// MatchingService runs every active alert against every cached order book and
// records the resulting notifications.
type MatchingService struct {
	alerts  domain.AlertRepository
	books   domain.OrderBookSource
	sink    domain.NotificationRepository
	tables  TableSource
	matcher *matcher.Matcher
	logger  *zap.Logger
}

func NewMatchingService(alerts domain.AlertRepository, books domain.OrderBookSource, sink domain.NotificationRepository, tables TableSource, m *matcher.Matcher, logger *zap.Logger) *MatchingService {
	return &MatchingService{alerts: alerts, books: books, sink: sink, tables: tables, matcher: m, logger: logger}
}

func (s *MatchingService) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	alerts, err := s.alerts.ListActive(ctx)
	if err != nil {
		return report, fmt.Errorf("list active alerts: %w", err)
	}
	books, err := s.books.Snapshots(ctx)
	if err != nil {
		return report, fmt.Errorf("load order books: %w", err)
	}
	report.Alerts = len(alerts)
	report.Books = len(books)

	tables := s.tables.Tables()
	builder := notify.NewBuilder(tables.Federation)

	for _, alert := range alerts {
		for _, book := range books {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			matches := s.matcher.FindMatches(alert, book, tables.Currencies)
			if len(matches) == 0 {
				continue
			}
			report.Matches += len(matches)

			notifications := make([]domain.Notification, 0, len(matches))
			for _, match := range matches {
				notifications = append(notifications, builder.Build(alert.UserID, match))
			}

			stored, err := s.sink.Record(ctx, notifications)
			if err != nil {
				return report, fmt.Errorf("record notifications for alert %d: %w", alert.ID, err)
			}
			report.Stored += stored
			metrics.Notifications.WithLabelValues("stored").Add(float64(stored))
			metrics.Notifications.WithLabelValues("skipped").Add(float64(len(notifications) - stored))

			s.logger.Info(
				"alert matched orders",
				zap.Uint("alert_id", alert.ID),
				zap.Uint("user_id", alert.UserID),
				zap.String("source", book.Source),
				zap.Int("matches", len(matches)),
				zap.Int("stored", stored),
			)
		}
	}
	return report, nil
}

func (s *MatchingService) Run(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func(ctx context.Context) {
		report, err := s.RunCycle(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("matching cycle failed", zap.Error(err))
			}
			return
		}
		s.logger.Info(
			"matching cycle complete",
			zap.Int("alerts", report.Alerts),
			zap.Int("books", report.Books),
			zap.Int("matches", report.Matches),
			zap.Int("stored", report.Stored),
		)
	})
}
