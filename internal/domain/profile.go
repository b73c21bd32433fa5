package domain

import (
	"fmt"
	"time"
)

// Role enumerates ticketing roles carried by a profile.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Roles lists every defined role.
func Roles() []Role {
	return []Role{RoleCustomer, RoleStaff, RoleAdmin}
}

// ParseRole converts a raw value into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// CanAssign reports whether the role may assign tickets to staff.
func (r Role) CanAssign() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleStaff, RoleCustomer:
		return false
	}
	return false
}

// CanClose reports whether the role may close tickets.
func (r Role) CanClose() bool {
	switch r {
	case RoleAdmin, RoleStaff:
		return true
	case RoleCustomer:
		return false
	}
	return false
}

// Profile extends a User with its ticketing role. Exactly one per user.
type Profile struct {
	ID        string
	UserID    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time

	// User is populated by lookups that join the owning user.
	User *User
}
