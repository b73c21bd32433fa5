package dto

import "github.com/spec-kit/ticketing-system/internal/domain"

// ProfileResponse describes a role-bearing profile.
type ProfileResponse struct {
	ID       string      `json:"id"`
	Role     domain.Role `json:"role"`
	Username string      `json:"username,omitempty"`
	Email    string      `json:"email,omitempty"`
}

// CountsResponse holds per-status ticket counters.
type CountsResponse struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
	Total      int `json:"total"`
}

// ProfileDetailResponse is the caller's own profile with live counters.
type ProfileDetailResponse struct {
	User    UserResponse    `json:"user"`
	Profile ProfileResponse `json:"profile"`
	Counts  CountsResponse  `json:"counts"`
}

// NewProfileResponse maps a profile. User fields are filled when joined.
func NewProfileResponse(profile *domain.Profile) ProfileResponse {
	resp := ProfileResponse{ID: profile.ID, Role: profile.Role}
	if profile.User != nil {
		resp.Username = profile.User.Username
		resp.Email = profile.User.Email
	}
	return resp
}

// NewCountsResponse maps ticket counters.
func NewCountsResponse(counts domain.TicketCounts) CountsResponse {
	return CountsResponse{
		Pending:    counts.Pending,
		InProgress: counts.InProgress,
		Closed:     counts.Closed,
		Total:      counts.Total(),
	}
}
