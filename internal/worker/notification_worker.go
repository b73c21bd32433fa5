package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/events"
	"github.com/spec-kit/ticketing-system/internal/observability"
	"github.com/spec-kit/ticketing-system/internal/service"
)

// handlerFailedCode tags dispatcher failures in the error counters.
const handlerFailedCode = "EVENT_HANDLER_FAILED"

// NotificationWorker subscribes the notification service to every ticket
// event. Delivery is synchronous, on the request that published the event.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

// NewNotificationWorker builds the worker.
func NewNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) *NotificationWorker {
	return &NotificationWorker{notifications: notifications, logger: logger}
}

// Start registers the handlers. Calling it twice doubles delivery.
func (w *NotificationWorker) Start(dispatcher events.Dispatcher) {
	if w == nil || w.notifications == nil || dispatcher == nil {
		return
	}
	names := make([]string, 0, len(events.TicketEventTypes))
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, w.notifications.Handle)
		names = append(names, string(eventType))
	}
	w.logger.Info("notification worker subscribed", zap.Strings("event_types", names))
}

// FailureCounter counts failed deliveries by event type.
func FailureCounter(metrics *observability.Metrics) events.FailureHook {
	return func(event events.Event, _ error) {
		metrics.RecordError("event:"+string(event.Type), "PUBLISH", handlerFailedCode)
	}
}
