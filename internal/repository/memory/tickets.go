package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

type ticketRepo struct {
	s *Store
}

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.tickets {
		if existing.TicketID == ticket.TicketID {
			return &repository.DuplicateError{Constraint: repository.ConstraintTicketID}
		}
	}
	now := r.s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	remember(ctx, r.s.tickets, ticket.ID)
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	ticket.TicketID = stored.TicketID
	ticket.CreatedByID = stored.CreatedByID
	ticket.CreatedAt = stored.CreatedAt
	ticket.UpdatedAt = r.s.now()
	remember(ctx, r.s.tickets, ticket.ID)
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r *ticketRepo) GetByTicketID(_ context.Context, ticketID string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, ticket := range r.s.tickets {
		if ticket.TicketID == ticketID {
			found := cloneTicket(ticket)
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	matched := r.s.matchTickets(filter)
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *ticketRepo) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.matchTickets(filter)), nil
}

func (r *ticketRepo) CountByStatus(_ context.Context, scope domain.Scope) (domain.TicketCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return domain.CountTickets(scope, r.s.matchTickets(repository.TicketFilter{Scope: scope})), nil
}

// matchTickets must be called with mu held.
func (s *Store) matchTickets(filter repository.TicketFilter) []domain.Ticket {
	search := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if !filter.Scope.Includes(&ticket) {
			continue
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !contains(filter.Priorities, ticket.Priority) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(ticket.Subject), search) &&
			!strings.Contains(strings.ToLower(ticket.Description), search) {
			continue
		}
		result = append(result, cloneTicket(ticket))
	}
	return result
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func cloneTicket(ticket domain.Ticket) domain.Ticket {
	if ticket.AssignedToID != nil {
		id := *ticket.AssignedToID
		ticket.AssignedToID = &id
	}
	if ticket.File != nil {
		file := *ticket.File
		ticket.File = &file
	}
	return ticket
}
