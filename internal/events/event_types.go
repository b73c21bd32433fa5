package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketAssigned EventType = "ticket_assigned"
	EventTicketClosed   EventType = "ticket_closed"
)

// TicketEventTypes lists every event the ticket service publishes.
var TicketEventTypes = []EventType{EventTicketCreated, EventTicketAssigned, EventTicketClosed}

// Actor identifies the profile that triggered an event.
type Actor struct {
	ProfileID string      `json:"profile_id"`
	Role      domain.Role `json:"role"`
}

// Event represents a domain event emitted by services. TicketID is the public ticket id.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, ticketID string, actor *domain.Profile, payload any) Event {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = Actor{ProfileID: actor.ID, Role: actor.Role}
	}
	return event
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject  string                `json:"subject"`
	Priority domain.TicketPriority `json:"priority"`
	HasFile  bool                  `json:"has_file"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousAssigneeID *string             `json:"previous_assignee_id,omitempty"`
	AssigneeID         string              `json:"assignee_id"`
	OldStatus          domain.TicketStatus `json:"old_status"`
}

// TicketClosedPayload payload. ClosingMessage is carried here only and never stored.
type TicketClosedPayload struct {
	OldStatus      domain.TicketStatus `json:"old_status"`
	ClosingMessage string              `json:"closing_message,omitempty"`
}
