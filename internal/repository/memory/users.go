package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkUserUnique(user, ""); err != nil {
		return err
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	remember(ctx, r.s.users, user.ID)
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.s.checkUserUnique(user, user.ID); err != nil {
		return err
	}
	user.UpdatedAt = r.s.now()
	remember(ctx, r.s.users, user.ID)
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, user := range r.s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

// checkUserUnique must be called with mu held.
func (s *Store) checkUserUnique(user *domain.User, selfID string) error {
	for id, existing := range s.users {
		if id == selfID {
			continue
		}
		if existing.Email == user.Email {
			return &repository.DuplicateError{Constraint: repository.ConstraintUserEmail}
		}
		if existing.Username == user.Username {
			return &repository.DuplicateError{Constraint: repository.ConstraintUserUsername}
		}
	}
	return nil
}
