package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraints shared by every backend.
const (
	ConstraintUserEmail     = "users_email_key"
	ConstraintUserUsername  = "users_username_key"
	ConstraintProfileUser   = "profiles_user_id_key"
	ConstraintTicketID      = "tickets_ticket_id_key"
	uniqueViolationSQLState = "23505"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate matches any DuplicateError through errors.Is.
var ErrDuplicate = errors.New("duplicate record")

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate record violates %s", e.Constraint)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// IsDuplicate reports whether err violates the named constraint.
func IsDuplicate(err error, constraint string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Constraint == constraint
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationSQLState {
		return &DuplicateError{Constraint: pgErr.ConstraintName}
	}
	return err
}
