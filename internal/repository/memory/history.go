package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

type historyRepo struct {
	s *Store
}

func (r *historyRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	history.ID = uuid.NewString()
	history.CreatedAt = r.s.now()
	r.s.rememberHistory(ctx, history.ID)
	r.s.history = append(r.s.history, *history)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.TicketHistory
	for _, entry := range r.s.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}
