package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vericase/vericase-docs/internal/auth"
	"github.com/vericase/vericase-docs/internal/config"
	"github.com/vericase/vericase-docs/internal/model"
	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/search"
	"github.com/vericase/vericase-docs/internal/share"
)

type fakeSearchIndex struct {
	hits    []search.Hit
	deleted []string
}

func (f *fakeSearchIndex) Search(context.Context, string, int, string) ([]search.Hit, error) {
	return f.hits, nil
}

func (f *fakeSearchIndex) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeEnqueuer struct {
	ids []string
}

func (f *fakeEnqueuer) EnqueueIngest(_ context.Context, id string) error {
	f.ids = append(f.ids, id)
	return nil
}

type testEnv struct {
	docs     *repository.MemoryDocumentRepository
	users    *repository.MemoryUserRepository
	objects  *objectstore.Memory
	index    *fakeSearchIndex
	enqueuer *fakeEnqueuer
	shares   *share.Service
	tokens   *auth.TokenIssuer
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{
		MinioBucket:  "documents",
		SignedURLTTL: 5 * time.Minute,
	}
	env := &testEnv{
		docs:     repository.NewMemoryDocumentRepository(),
		users:    repository.NewMemoryUserRepository(),
		objects:  objectstore.NewMemory(),
		index:    &fakeSearchIndex{},
		enqueuer: &fakeEnqueuer{},
		tokens:   auth.NewTokenIssuer([]byte("test-secret"), "vericase-docs", time.Hour),
	}
	env.shares = share.NewService(repository.NewMemoryShareRepository(), env.docs, env.objects, cfg.SignedURLTTL, log)
	srv := New(cfg, env.docs, env.users, env.objects, env.index, env.shares, env.enqueuer, env.tokens, log)
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	raw, err := e.tokens.Sign(userID, userID+"@example.com")
	require.NoError(t, err)
	return raw
}

func (e *testEnv) do(t *testing.T, method, target, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) seedDoc(t *testing.T, id, owner string) *model.Document {
	t.Helper()
	ctx := context.Background()
	doc := &model.Document{
		ID:          id,
		Filename:    "contract.pdf",
		Path:        "cases/alpha",
		ContentType: "application/pdf",
		Bucket:      "documents",
		ObjectKey:   "cases/alpha/" + id + "/contract.pdf",
		OwnerID:     owner,
	}
	require.NoError(t, e.docs.Create(ctx, doc))
	require.NoError(t, e.objects.Put(ctx, doc.ObjectKey, strings.NewReader("%PDF- body"), 10, doc.ContentType))
	return doc
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    " Alice@Example.com ",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "alice@example.com", body["user"].(map[string]any)["email"])

	// Duplicate email.
	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "hunter2",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter2",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/documents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/documents", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	rec := env.do(t, http.MethodPost, "/uploads/presign", token, map[string]any{
		"filename": "contract.pdf", "content_type": "application/pdf", "path": "/cases/alpha/",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	presign := decodeBody(t, rec)
	key := presign["key"].(string)
	assert.True(t, strings.HasPrefix(key, "cases/alpha/"))
	assert.True(t, strings.HasSuffix(key, "/contract.pdf"))
	assert.NotEmpty(t, presign["url"])

	rec = env.do(t, http.MethodPost, "/uploads/complete", token, map[string]any{
		"filename": "contract.pdf", "content_type": "application/pdf",
		"path": "cases/alpha", "size": 1234, "key": key,
		"title": "Signed contract", "metadata": map[string]any{"case": "alpha"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "QUEUED", body["status"])
	id := body["id"].(string)

	doc, err := env.docs.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, doc.Status)
	assert.Equal(t, "user-1", doc.OwnerID)
	assert.Equal(t, key, doc.ObjectKey)
	assert.Equal(t, []string{id}, env.enqueuer.ids)
}

func TestMultipartFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "user-1")

	rec := env.do(t, http.MethodPost, "/uploads/multipart/start", token, map[string]any{
		"filename": "huge.bin", "path": "cases/alpha",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	start := decodeBody(t, rec)
	key := start["key"].(string)
	uploadID := start["uploadId"].(string)
	require.NotEmpty(t, uploadID)

	rec = env.do(t, http.MethodGet, "/uploads/multipart/part?key="+key+"&uploadId="+uploadID+"&partNumber=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["url"])

	rec = env.do(t, http.MethodGet, "/uploads/multipart/part?key="+key+"&uploadId="+uploadID+"&partNumber=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/uploads/multipart/complete", token, map[string]any{
		"filename": "huge.bin", "key": key, "uploadId": uploadID,
		"parts": []map[string]any{{"part_number": 1, "etag": "abc"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QUEUED", decodeBody(t, rec)["status"])
	require.Len(t, env.enqueuer.ids, 1)
}

func TestListDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.seedDoc(t, "doc-1", "user-1")
	env.seedDoc(t, "doc-2", "user-1")
	env.seedDoc(t, "doc-3", "user-2")
	token := env.token(t, "user-1")

	rec := env.do(t, http.MethodGet, "/documents", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["total"])

	rec = env.do(t, http.MethodGet, "/documents?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/documents?limit=500", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/documents/paths", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"cases/alpha"}, decodeBody(t, rec)["paths"])
}

func TestGetDocumentOwnership(t *testing.T) {
	env := newTestEnv(t)
	doc := env.seedDoc(t, "doc-1", "user-1")

	rec := env.do(t, http.MethodGet, "/documents/"+doc.ID, env.token(t, "user-1"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Someone else's document reads the same as a missing one.
	rec = env.do(t, http.MethodGet, "/documents/"+doc.ID, env.token(t, "user-2"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/documents/nope", env.token(t, "user-1"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignedURL(t *testing.T) {
	env := newTestEnv(t)
	doc := env.seedDoc(t, "doc-1", "user-1")

	rec := env.do(t, http.MethodGet, "/documents/"+doc.ID+"/signed_url", env.token(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["url"], doc.ObjectKey)
	assert.Equal(t, "contract.pdf", body["filename"])
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	doc := env.seedDoc(t, "doc-1", "user-1")

	rec := env.do(t, http.MethodDelete, "/documents/"+doc.ID, env.token(t, "user-1"), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := env.docs.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = env.objects.Get(context.Background(), doc.ObjectKey)
	assert.Error(t, err)
	assert.Equal(t, []string{doc.ID}, env.index.deleted)
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.index.hits = []search.Hit{{ID: "doc-1", Filename: "contract.pdf", Score: 4.2}}
	token := env.token(t, "user-1")

	rec := env.do(t, http.MethodGet, "/search?q=contract", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])

	rec = env.do(t, http.MethodGet, "/search?q=++", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareEndpoints(t *testing.T) {
	env := newTestEnv(t)
	doc := env.seedDoc(t, "doc-1", "user-1")
	token := env.token(t, "user-1")

	rec := env.do(t, http.MethodPost, "/shares", token, map[string]any{
		"document_id": doc.ID, "password": "hunter2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeBody(t, rec)
	shareToken := created["token"].(string)
	assert.Equal(t, true, created["requires_password"])

	// Resolution is public but the password gates it.
	rec = env.do(t, http.MethodGet, "/shares/"+shareToken, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/shares/"+shareToken+"?password=hunter2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["url"], doc.ObjectKey)

	rec = env.do(t, http.MethodGet, "/shares/deadbeef", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateShareValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	doc := env.seedDoc(t, "doc-1", "user-1")
	token := env.token(t, "user-1")

	rec := env.do(t, http.MethodPost, "/shares", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/shares", token, map[string]any{
		"document_id": doc.ID, "hours": 500,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/shares", token, map[string]any{
		"document_id": "missing", "hours": 24,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
