package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

// EmailRepository persists outbound email records.
type EmailRepository interface {
	Create(ctx context.Context, email *domain.Email) error
	Update(ctx context.Context, email *domain.Email) error
	GetByID(ctx context.Context, id string) (*domain.Email, error)
}

type emailRepository struct {
	pool *pgxpool.Pool
}

// NewEmailRepository builds repository.
func NewEmailRepository(pool *pgxpool.Pool) EmailRepository {
	return &emailRepository{pool: pool}
}

func (r *emailRepository) Create(ctx context.Context, email *domain.Email) error {
	const query = `
        INSERT INTO emails (status, from_email, to_email, subject, message, html_message, sent_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		email.Status,
		email.From,
		email.To,
		email.Subject,
		email.Message,
		email.HTML,
		email.SentAt,
	).Scan(&email.ID, &email.CreatedAt, &email.UpdatedAt)
	return mapError(err)
}

func (r *emailRepository) Update(ctx context.Context, email *domain.Email) error {
	const query = `
        UPDATE emails SET status=$1, sent_at=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query, email.Status, email.SentAt, email.ID).Scan(&email.UpdatedAt)
	return mapError(err)
}

func (r *emailRepository) GetByID(ctx context.Context, id string) (*domain.Email, error) {
	const query = `
        SELECT id, status, from_email, to_email, subject, message, html_message, sent_at, created_at, updated_at
        FROM emails WHERE id=$1`
	var email domain.Email
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&email.ID,
		&email.Status,
		&email.From,
		&email.To,
		&email.Subject,
		&email.Message,
		&email.HTML,
		&email.SentAt,
		&email.CreatedAt,
		&email.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &email, nil
}
