package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vericase/vericase-docs/internal/model"
)

// PgDocumentRepository is the Postgres-backed DocumentRepository.
type PgDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewPgDocumentRepository constructs a repository.
func NewPgDocumentRepository(pool *pgxpool.Pool) *PgDocumentRepository {
	return &PgDocumentRepository{pool: pool}
}

const documentColumns = `id, filename, COALESCE(path,''), COALESCE(content_type,''), size, bucket, object_key,
	status, COALESCE(title,''), metadata, COALESCE(text_excerpt,''), COALESCE(owner_id,''), created_at, updated_at`

// Create inserts a NEW document after an upload completes.
func (r *PgDocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	now := time.Now().UTC()
	doc.Status = model.StatusNew
	doc.CreatedAt = now
	doc.UpdatedAt = now
	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (id, filename, path, content_type, size, bucket, object_key, status, title, metadata, text_excerpt, owner_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULL,$11,$12,$13)
	`, doc.ID, doc.Filename, nullString(doc.Path), nullString(doc.ContentType), doc.Size, doc.Bucket, doc.ObjectKey,
		doc.Status, nullString(doc.Title), meta, nullString(doc.OwnerID), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get returns a document by id.
func (r *PgDocumentRepository) Get(ctx context.Context, id string) (*model.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// List returns the owner's documents, newest first, plus the unpaged total.
func (r *PgDocumentRepository) List(ctx context.Context, ownerID string, filter DocumentFilter) ([]model.Document, int, error) {
	where := `owner_id=$1`
	args := []any{ownerID}
	if filter.PathPrefix != "" {
		args = append(args, filter.PathPrefix+"%")
		where += fmt.Sprintf(` AND path LIKE $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status=$%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		documentColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, total, nil
}

// ListPaths returns the owner's distinct non-empty paths, sorted.
func (r *PgDocumentRepository) ListPaths(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT path FROM documents
		WHERE owner_id=$1 AND path IS NOT NULL AND path <> ''
		ORDER BY path
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// MarkProcessing sets the status to PROCESSING.
func (r *PgDocumentRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, model.StatusProcessing, nil)
}

// MarkReady sets the status to READY and stores the excerpt.
func (r *PgDocumentRepository) MarkReady(ctx context.Context, id, excerpt string) error {
	return r.updateStatus(ctx, id, model.StatusReady, &excerpt)
}

// MarkFailed sets the status to FAILED. The excerpt may carry partial text
// when extraction succeeded but a later step did not.
func (r *PgDocumentRepository) MarkFailed(ctx context.Context, id, excerpt string) error {
	return r.updateStatus(ctx, id, model.StatusFailed, &excerpt)
}

func (r *PgDocumentRepository) updateStatus(ctx context.Context, id string, status model.DocStatus, excerpt *string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status=$1,
			text_excerpt = COALESCE($2, text_excerpt),
			updated_at=$3
		WHERE id=$4
	`, status, excerpt, now, id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// Delete removes the row. Share links cascade with it.
func (r *PgDocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc  model.Document
		meta []byte
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Path, &doc.ContentType, &doc.Size, &doc.Bucket, &doc.ObjectKey,
		&doc.Status, &doc.Title, &meta, &doc.TextExcerpt, &doc.OwnerID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &doc, nil
}

func marshalMetadata(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
