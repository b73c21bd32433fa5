package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

// ProfileRepository handles persistence for role-bearing profiles.
// Lookups populate Profile.User.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	UpdateRole(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates the repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileSelect = `
        SELECT p.id, p.user_id, p.role, p.created_at, p.updated_at,
               u.id, u.email, u.username, u.password_hash, u.is_active, u.is_staff,
               u.is_verified, u.is_superuser, u.created_at, u.updated_at
        FROM profiles p JOIN users u ON u.id = p.user_id`

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (user_id, role)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query, profile.UserID, profile.Role).
		Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	return mapError(err)
}

func (r *profileRepository) UpdateRole(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET role=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING updated_at`

	err := conn(ctx, r.pool).QueryRow(ctx, query, profile.Role, profile.ID).Scan(&profile.UpdatedAt)
	return mapError(err)
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.fetchSingle(ctx, profileSelect+` WHERE p.id=$1`, id)
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	return r.fetchSingle(ctx, profileSelect+` WHERE p.user_id=$1`, userID)
}

func (r *profileRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, profileSelect+` WHERE p.role=$1 ORDER BY u.username`, role)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *profile)
	}
	return result, rows.Err()
}

func (r *profileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	profile, err := scanProfile(conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return profile, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		profile domain.Profile
		user    domain.User
	)
	if err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsStaff,
		&user.IsVerified,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	profile.User = &user
	return &profile, nil
}
