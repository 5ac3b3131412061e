package matcher

import (
	"github.com/NasaVasa/robowatch/internal/domain"
	"github.com/NasaVasa/robowatch/internal/infra/metrics"
	"go.uber.org/zap"
)

type CurrencyResolver interface {
	Resolve(code string) (string, bool)
}

type Matcher struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// FindMatches returns the orders of book that satisfy alert, in book order.
// Orders with unparseable numbers are logged and skipped.
func (m *Matcher) FindMatches(alert domain.Alert, book domain.OrderBook, currencies CurrencyResolver) []domain.Match {
	var matches []domain.Match
	for _, order := range book.Orders {
		if order.Source == "" {
			order.Source = book.Source
		}
		symbol, _ := currencies.Resolve(order.Currency)

		rejection, err := Evaluate(alert, order, symbol)
		if err != nil {
			m.logger.Warn(
				"skipping malformed order",
				zap.Uint("alert_id", alert.ID),
				zap.String("order_id", order.ID),
				zap.String("source", order.Source),
				zap.String("rule", string(rejection)),
				zap.Error(err),
			)
			metrics.OrderRejections.WithLabelValues("malformed").Inc()
			continue
		}
		if rejection != Accepted {
			m.logger.Debug(
				"order rejected",
				zap.Uint("alert_id", alert.ID),
				zap.String("order_id", order.ID),
				zap.String("source", order.Source),
				zap.String("reason", string(rejection)),
				zap.String("order_currency", symbol),
				zap.String("alert_currency", alert.Currency),
			)
			metrics.OrderRejections.WithLabelValues(string(rejection)).Inc()
			continue
		}

		metrics.Matches.Inc()
		matches = append(matches, domain.Match{Alert: alert, Order: order})
	}
	return matches
}
