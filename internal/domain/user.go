package domain

import (
	"strings"
	"time"
)

// User is the identity and credential record. Email is the login name.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsVerified   bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail lower-cases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanLogin reports whether an authenticated user may hold a session.
func (u *User) CanLogin() bool {
	return u != nil && u.IsActive && u.IsVerified
}
