package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

type emailRepo struct {
	s *Store
}

func (r *emailRepo) Create(ctx context.Context, email *domain.Email) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	email.ID = uuid.NewString()
	email.CreatedAt = now
	email.UpdatedAt = now
	remember(ctx, r.s.emails, email.ID)
	r.s.emails[email.ID] = *email
	return nil
}

func (r *emailRepo) Update(ctx context.Context, email *domain.Email) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.emails[email.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = email.Status
	stored.SentAt = email.SentAt
	stored.UpdatedAt = r.s.now()
	remember(ctx, r.s.emails, email.ID)
	r.s.emails[email.ID] = stored
	email.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *emailRepo) GetByID(_ context.Context, id string) (*domain.Email, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email, ok := r.s.emails[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &email, nil
}

// AllEmails returns every stored email record.
func (s *Store) AllEmails() []domain.Email {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Email, 0, len(s.emails))
	for _, email := range s.emails {
		result = append(result, email)
	}
	return result
}
