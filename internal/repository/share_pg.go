package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vericase/vericase-docs/internal/model"
)

// PgShareRepository is the Postgres-backed ShareRepository.
type PgShareRepository struct {
	pool *pgxpool.Pool
}

// NewPgShareRepository constructs a repository.
func NewPgShareRepository(pool *pgxpool.Pool) *PgShareRepository {
	return &PgShareRepository{pool: pool}
}

// Create inserts a share link.
func (r *PgShareRepository) Create(ctx context.Context, share *model.ShareLink) error {
	share.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO share_links (token, document_id, created_by, expires_at, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, share.Token, share.DocumentID, share.CreatedBy, share.ExpiresAt,
		sql.NullString{String: share.PasswordHash, Valid: share.PasswordHash != ""}, share.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert share link: %w", err)
	}
	return nil
}

// GetActive looks up an unexpired share by token. Expiry is part of the
// WHERE clause; expired rows behave exactly like absent rows.
func (r *PgShareRepository) GetActive(ctx context.Context, token string, now time.Time) (*model.ShareLink, error) {
	var share model.ShareLink
	row := r.pool.QueryRow(ctx, `
		SELECT token, document_id, created_by, expires_at, COALESCE(password_hash,''), created_at
		FROM share_links
		WHERE token=$1 AND expires_at > $2
	`, token, now)
	if err := row.Scan(&share.Token, &share.DocumentID, &share.CreatedBy, &share.ExpiresAt, &share.PasswordHash, &share.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select share link: %w", err)
	}
	return &share, nil
}
