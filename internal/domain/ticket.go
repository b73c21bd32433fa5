package domain

import (
	"errors"
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

var (
	// ErrAssigneeNotStaff is returned when a ticket is assigned to a non-staff profile.
	ErrAssigneeNotStaff = errors.New("tickets can only be assigned to staff members")
	// ErrTicketClosed is returned when closing a ticket that is already closed.
	ErrTicketClosed = errors.New("ticket is already closed")
)

// ParseTicketStatus converts a raw status value.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	switch s := TicketStatus(raw); s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusClosed:
		return s, nil
	}
	return "", fmt.Errorf("unknown ticket status %q", raw)
}

// ParseTicketPriority converts a raw priority value.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	switch p := TicketPriority(raw); p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return p, nil
	}
	return "", fmt.Errorf("unknown ticket priority %q", raw)
}

// Ticket is a unit of support work.
//
// ID is the storage row identifier and never leaves the service; TicketID is the
// opaque public identifier used in URLs.
type Ticket struct {
	ID           string
	TicketID     string
	CreatedByID  string
	AssignedToID *string
	Subject      string
	Description  string
	File         *string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTicket builds a pending, medium priority ticket for the given profile.
func NewTicket(ticketID, createdByID, subject, description string, file *string) *Ticket {
	return &Ticket{
		TicketID:    ticketID,
		CreatedByID: createdByID,
		Subject:     subject,
		Description: description,
		File:        file,
		Status:      TicketStatusPending,
		Priority:    TicketPriorityMedium,
	}
}

// Assign hands the ticket to a staff profile and moves it to in_progress.
// Re-assignment is allowed; the closed state is not checked here.
func (t *Ticket) Assign(assignee *Profile) error {
	if assignee == nil || assignee.Role != RoleStaff {
		return ErrAssigneeNotStaff
	}
	id := assignee.ID
	t.AssignedToID = &id
	t.Status = TicketStatusInProgress
	return nil
}

// Close moves the ticket to the terminal closed state.
func (t *Ticket) Close() error {
	if t.Status == TicketStatusClosed {
		return ErrTicketClosed
	}
	t.Status = TicketStatusClosed
	return nil
}

// IsAssignedTo reports whether the ticket is assigned to the profile id.
func (t *Ticket) IsAssignedTo(profileID string) bool {
	return t.AssignedToID != nil && *t.AssignedToID == profileID
}
