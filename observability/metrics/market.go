package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type MarketMetrics struct {
	settlements   *prometheus.CounterVec
	eventsEmitted *prometheus.CounterVec
	bidRefunds    prometheus.Counter
	rollbacks     *prometheus.CounterVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_settlements_total",
				Help: "Count of completed sales by settlement module.",
			}, []string{"module"}),
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_events_total",
				Help: "Count of emitted settlement events by type.",
			}, []string{"type"}),
			bidRefunds: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_bid_refunds_total",
				Help: "Count of outbid escrow refunds.",
			}),
			rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_rollbacks_total",
				Help: "Count of settlements unwound after a registry failure.",
			}, []string{"module"}),
		}
		prometheus.MustRegister(
			marketRegistry.settlements,
			marketRegistry.eventsEmitted,
			marketRegistry.bidRefunds,
			marketRegistry.rollbacks,
		)
	})
	return marketRegistry
}

func (m *MarketMetrics) ObserveSettlement(module string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	m.settlements.WithLabelValues(module).Inc()
}

func (m *MarketMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsEmitted.WithLabelValues(eventType).Inc()
}

func (m *MarketMetrics) ObserveBidRefund() {
	if m == nil {
		return
	}
	m.bidRefunds.Inc()
}

func (m *MarketMetrics) ObserveRollback(module string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	m.rollbacks.WithLabelValues(module).Inc()
}
