// Package metrics exposes the service counters on the default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "robowatch"

var (
	Matches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "matches_total",
		Help:      "Orders that satisfied an alert.",
	})

	OrderRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_rejections_total",
		Help:      "Orders rejected by the matcher, by the first failing rule.",
	}, []string{"reason"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications offered to the store, stored or skipped as duplicates.",
	}, []string{"result"})

	OrderbookFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orderbook_fetch_total",
		Help:      "Order book downloads per coordinator.",
	}, []string{"source", "result"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts that reached a final state.",
	}, []string{"result"})
)
