package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vericase/vericase-docs/internal/model"
)

// PgUserRepository is the Postgres-backed UserRepository.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

// NewPgUserRepository constructs a repository.
func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

// Create inserts a user.
func (r *PgUserRepository) Create(ctx context.Context, user *model.User) error {
	user.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4)
	`, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get returns a user by id.
func (r *PgUserRepository) Get(ctx context.Context, id string) (*model.User, error) {
	return r.get(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id=$1`, id)
}

// GetByEmail returns a user by email.
func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email=$1`, email)
}

func (r *PgUserRepository) get(ctx context.Context, query, arg string) (*model.User, error) {
	var user model.User
	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}
