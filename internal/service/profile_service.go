package service

import (
	"context"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

// ProfileService serves profile reads.
type ProfileService struct {
	profiles repository.ProfileRepository
	tickets  repository.TicketRepository
}

// NewProfileService builds the service.
func NewProfileService(profiles repository.ProfileRepository, tickets repository.TicketRepository) *ProfileService {
	return &ProfileService{profiles: profiles, tickets: tickets}
}

// Counts aggregates the profile's visible tickets by status. Nothing is
// cached; every call reads the ticket store.
func (s *ProfileService) Counts(ctx context.Context, profile *domain.Profile) (domain.TicketCounts, error) {
	counts, err := s.tickets.CountByStatus(ctx, domain.ScopeFor(profile))
	if err != nil {
		return domain.TicketCounts{}, apperrors.MapError(err)
	}
	return counts, nil
}

// ListStaff returns the profiles tickets can be assigned to. Admin only.
func (s *ProfileService) ListStaff(ctx context.Context, actor *domain.Profile) ([]domain.Profile, error) {
	if !actor.Role.CanAssign() {
		return nil, apperrors.NewForbidden(MsgAssignForbidden)
	}
	staff, err := s.profiles.ListByRole(ctx, domain.RoleStaff)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if staff == nil {
		staff = []domain.Profile{}
	}
	return staff, nil
}
