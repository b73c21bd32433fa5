package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing-system/internal/api/dto"
	"github.com/spec-kit/ticketing-system/internal/service"
)

// ProfileHandler exposes the caller's profile and the staff directory.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Me GET /profile.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	counts, err := h.profiles.Counts(c.UserContext(), principal.Profile)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ProfileDetailResponse{
		User:    dto.NewUserResponse(principal.User),
		Profile: dto.NewProfileResponse(principal.Profile),
		Counts:  dto.NewCountsResponse(counts),
	}})
}

// ListStaff GET /profiles/staff.
func (h *ProfileHandler) ListStaff(c *fiber.Ctx) error {
	principal, err := principalFrom(c)
	if err != nil {
		return err
	}
	staff, err := h.profiles.ListStaff(c.UserContext(), principal.Profile)
	if err != nil {
		return err
	}
	items := make([]dto.ProfileResponse, 0, len(staff))
	for i := range staff {
		items = append(items, dto.NewProfileResponse(&staff[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
