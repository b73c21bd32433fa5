package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

type profileRepo struct {
	s *Store
}

func (r *profileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[profile.UserID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range r.s.profiles {
		if existing.UserID == profile.UserID {
			return &repository.DuplicateError{Constraint: repository.ConstraintProfileUser}
		}
	}
	now := r.s.now()
	profile.ID = uuid.NewString()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	stored := *profile
	stored.User = nil
	remember(ctx, r.s.profiles, profile.ID)
	r.s.profiles[profile.ID] = stored
	return nil
}

func (r *profileRepo) UpdateRole(ctx context.Context, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.profiles[profile.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Role = profile.Role
	stored.UpdatedAt = r.s.now()
	remember(ctx, r.s.profiles, profile.ID)
	r.s.profiles[profile.ID] = stored
	profile.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *profileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	profile, ok := r.s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.withUser(profile), nil
}

func (r *profileRepo) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, profile := range r.s.profiles {
		if profile.UserID == userID {
			return r.s.withUser(profile), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *profileRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Profile
	for _, profile := range r.s.profiles {
		if profile.Role == role {
			result = append(result, *r.s.withUser(profile))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].User.Username < result[j].User.Username
	})
	return result, nil
}

// withUser must be called with mu held.
func (s *Store) withUser(profile domain.Profile) *domain.Profile {
	user := s.users[profile.UserID]
	profile.User = &user
	return &profile
}
