package dto

import (
	"time"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

// CreateTicketRequest payload. The optional file arrives as a multipart part.
type CreateTicketRequest struct {
	Subject     string `json:"subject" form:"subject" validate:"required,max=255"`
	Description string `json:"description" form:"description" validate:"required"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssignedTo string `json:"assigned_to" form:"assigned_to" validate:"required"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	ClosingMessage string `json:"closing_message" form:"closing_message"`
}

// TicketSummary response.
type TicketSummary struct {
	TicketID   string                `json:"ticket_id"`
	Subject    string                `json:"subject"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	CreatedBy  string                `json:"created_by"`
	AssignedTo *string               `json:"assigned_to"`
	File       *string               `json:"file"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// TicketPageResponse is one listing page.
type TicketPageResponse struct {
	Tickets    []TicketSummary `json:"tickets"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Counts     CountsResponse  `json:"counts"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	Creator     *ProfileResponse        `json:"creator"`
	Assignee    *ProfileResponse        `json:"assignee"`
	History     []TicketHistoryResponse `json:"history"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewTicketSummary maps a ticket. The storage row id is never exposed.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		TicketID:   ticket.TicketID,
		Subject:    ticket.Subject,
		Status:     ticket.Status,
		Priority:   ticket.Priority,
		CreatedBy:  ticket.CreatedByID,
		AssignedTo: ticket.AssignedToID,
		File:       ticket.File,
		CreatedAt:  ticket.CreatedAt,
		UpdatedAt:  ticket.UpdatedAt,
	}
}

// NewTicketSummaries maps a slice of tickets.
func NewTicketSummaries(tickets []domain.Ticket) []TicketSummary {
	items := make([]TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketSummary(&tickets[i]))
	}
	return items
}

// NewTicketHistory maps audit entries.
func NewTicketHistory(entries []domain.TicketHistory) []TicketHistoryResponse {
	resp := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, TicketHistoryResponse{
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return resp
}
