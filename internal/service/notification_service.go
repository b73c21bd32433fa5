package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/events"
	"github.com/spec-kit/ticketing-system/internal/observability"
)

// NotificationService turns ticket events into audit log lines and event
// counters. It is subscribed to the dispatcher by the notification worker.
type NotificationService struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		logger:  logger,
		metrics: metrics,
	}
}

// Handle records one ticket event. Unknown types are counted but not logged.
func (n *NotificationService) Handle(_ context.Context, event events.Event) error {
	n.metrics.RecordEvent(string(event.Type))

	fields := []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ProfileID),
	}
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		n.logger.Info("TicketCreated", append(fields,
			zap.String("priority", string(payload.Priority)),
			zap.Bool("has_file", payload.HasFile))...)
	case events.TicketAssignedPayload:
		fields = append(fields, zap.String("assignee_id", payload.AssigneeID))
		if payload.PreviousAssigneeID != nil {
			fields = append(fields, zap.String("previous_assignee_id", *payload.PreviousAssigneeID))
		}
		n.logger.Info("TicketAssigned", fields...)
	case events.TicketClosedPayload:
		if payload.ClosingMessage != "" {
			fields = append(fields, zap.String("closing_message", payload.ClosingMessage))
		}
		n.logger.Info("TicketClosed", fields...)
	default:
		n.logger.Debug("unhandled ticket event", append(fields, zap.String("event_type", string(event.Type)))...)
	}
	return nil
}
