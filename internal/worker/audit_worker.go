package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/events"
)

const defaultAuditCapacity = 100

// AuditLog records session and order events and keeps the most recent ones.
type AuditLog struct {
	logger   *zap.Logger
	capacity int

	mu     sync.Mutex
	recent []events.Event
}

// NewAuditLog creates the log. A non-positive capacity uses the default.
func NewAuditLog(logger *zap.Logger, capacity int) *AuditLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = defaultAuditCapacity
	}
	return &AuditLog{logger: logger, capacity: capacity}
}

// StartAuditWorker subscribes audit to every event type.
func StartAuditWorker(dispatcher events.Dispatcher, audit *AuditLog) {
	if dispatcher == nil || audit == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, audit.handle)
	}
}

func (a *AuditLog) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("actor", event.Actor),
	}
	switch p := event.Payload.(type) {
	case events.OrderPayload:
		fields = append(fields, zap.Int64("order_id", p.OrderID), zap.Int64("menu_id", p.MenuID),
			zap.String("date", p.Date.String()), zap.String("cost", p.Cost.StringFixed(2)))
		if p.Reason != "" {
			fields = append(fields, zap.String("reason", p.Reason))
		}
	case events.SessionPayload:
		fields = append(fields, zap.String("role", string(p.Role)))
		if p.Reason != "" {
			fields = append(fields, zap.String("reason", p.Reason))
		}
	default:
		fields = append(fields, zap.Any("payload", p))
	}

	if event.Type == events.EventSessionExpired || event.Type == events.EventOrderRejected {
		a.logger.Warn("audit", fields...)
	} else {
		a.logger.Info("audit", fields...)
	}

	a.mu.Lock()
	a.recent = append(a.recent, event)
	if len(a.recent) > a.capacity {
		a.recent = append([]events.Event(nil), a.recent[len(a.recent)-a.capacity:]...)
	}
	a.mu.Unlock()
	return nil
}

// Recent returns the retained events, oldest first.
func (a *AuditLog) Recent() []events.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]events.Event(nil), a.recent...)
}
