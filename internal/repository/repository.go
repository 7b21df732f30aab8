// Package repository wraps all SQL used throughout the API and worker behind
// narrow interfaces so the pipeline and resolver can be wired against either
// Postgres or the in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vericase/vericase-docs/internal/model"
)

// ErrNotFound is returned when a row does not exist. For share links it also
// covers expired rows: lookups never distinguish "never existed" from
// "expired", so the error cannot be used to enumerate tokens.
var ErrNotFound = errors.New("not found")

// DocumentFilter narrows List results.
type DocumentFilter struct {
	PathPrefix string
	Status     model.DocStatus
	Limit      int
	Offset     int
}

// DocumentRepository persists document rows. Status mutations are single-row
// atomic updates; the ingestion job relies on that instead of taking locks.
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context, ownerID string, filter DocumentFilter) ([]model.Document, int, error)
	ListPaths(ctx context.Context, ownerID string) ([]string, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkReady(ctx context.Context, id, excerpt string) error
	MarkFailed(ctx context.Context, id, excerpt string) error
	Delete(ctx context.Context, id string) error
}

// ShareRepository persists share links. Rows are immutable after Create.
type ShareRepository interface {
	Create(ctx context.Context, share *model.ShareLink) error
	// GetActive returns the share only when it exists and has not expired at
	// instant now. The expiry check is part of the lookup predicate so an
	// expired row can never race its way into a resolution.
	GetActive(ctx context.Context, token string, now time.Time) (*model.ShareLink, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
