package observability

import (
	"log/slog"
	"strings"

	"gavelmarket/core/events"
	"gavelmarket/observability/metrics"
)

// ObservedEmitter decorates an events.Emitter with metrics and structured
// logging. Every event increments the per-type counter; sold and resulted
// events additionally count as settlements for their module, refunds feed the
// refund counter.
type ObservedEmitter struct {
	next   events.Emitter
	logger *slog.Logger
}

// NewObservedEmitter wraps next. A nil next drops events after recording them;
// a nil logger uses the process default.
func NewObservedEmitter(next events.Emitter, logger *slog.Logger) *ObservedEmitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ObservedEmitter{next: next, logger: logger}
}

// Emit implements the events.Emitter interface.
func (o *ObservedEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	eventType := evt.EventType()
	m := metrics.Market()
	m.ObserveEvent(eventType)
	switch {
	case strings.HasSuffix(eventType, ".sold"), strings.HasSuffix(eventType, ".resulted"):
		m.ObserveSettlement(moduleOf(eventType))
	case strings.HasSuffix(eventType, ".refund"):
		m.ObserveBidRefund()
	}
	o.logger.Info("settlement event", "type", eventType)
	o.next.Emit(evt)
}

// moduleOf extracts the module segment from a "market.<module>.<action>"
// event type.
func moduleOf(eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) < 3 {
		return "unknown"
	}
	return parts[1]
}
