package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vericase/vericase-docs/internal/model"
)

func seedDoc(t *testing.T, repo *MemoryDocumentRepository, id, owner, path string, created time.Time) {
	t.Helper()
	doc := &model.Document{
		ID:        id,
		Filename:  id + ".pdf",
		Path:      path,
		OwnerID:   owner,
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(context.Background(), doc))
}

func TestMemoryDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	seedDoc(t, repo, "doc-1", "user-1", "cases/alpha", time.Now())

	doc, err := repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, doc.Status)

	require.NoError(t, repo.MarkProcessing(ctx, "doc-1"))
	require.NoError(t, repo.MarkReady(ctx, "doc-1", "first lines of text"))

	doc, err = repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, doc.Status)
	assert.Equal(t, "first lines of text", doc.TextExcerpt)

	require.NoError(t, repo.Delete(ctx, "doc-1"))
	_, err = repo.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "doc-1"), ErrNotFound)
}

func TestMemoryDocumentList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	base := time.Now().UTC()
	seedDoc(t, repo, "doc-1", "user-1", "cases/alpha", base.Add(-3*time.Hour))
	seedDoc(t, repo, "doc-2", "user-1", "cases/alpha/exhibits", base.Add(-2*time.Hour))
	seedDoc(t, repo, "doc-3", "user-1", "cases/beta", base.Add(-1*time.Hour))
	seedDoc(t, repo, "doc-4", "user-2", "cases/alpha", base)

	docs, total, err := repo.List(ctx, "user-1", DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	// Newest first.
	require.Len(t, docs, 3)
	assert.Equal(t, "doc-3", docs[0].ID)

	docs, total, err = repo.List(ctx, "user-1", DocumentFilter{PathPrefix: "cases/alpha"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, docs, 2)

	docs, total, err = repo.List(ctx, "user-1", DocumentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)

	paths, err := repo.ListPaths(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cases/alpha", "cases/alpha/exhibits", "cases/beta"}, paths)
}

func TestMemoryShareGetActive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryShareRepository()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &model.ShareLink{
		Token:      "tok-live",
		DocumentID: "doc-1",
		ExpiresAt:  now.Add(time.Hour),
	}))
	require.NoError(t, repo.Create(ctx, &model.ShareLink{
		Token:      "tok-dead",
		DocumentID: "doc-1",
		ExpiresAt:  now.Add(-time.Minute),
	}))

	link, err := repo.GetActive(ctx, "tok-live", now)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", link.DocumentID)

	// Expired rows are indistinguishable from absent ones.
	_, err = repo.GetActive(ctx, "tok-dead", now)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetActive(ctx, "tok-missing", now)
	assert.ErrorIs(t, err, ErrNotFound)

	// Exactly-at-expiry counts as expired.
	_, err = repo.GetActive(ctx, "tok-live", now.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()
	require.NoError(t, repo.Create(ctx, &model.User{ID: "user-1", Email: "alice@example.com"}))

	user, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	_, err = repo.GetByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
