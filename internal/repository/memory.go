package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vericase/vericase-docs/internal/model"
)

// MemoryDocumentRepository is an in-memory DocumentRepository guarded by an
// RWMutex. It backs tests and the single-binary development mode.
type MemoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]*model.Document
}

// NewMemoryDocumentRepository constructs an empty repository.
func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{docs: make(map[string]*model.Document)}
}

func (m *MemoryDocumentRepository) Create(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	doc.Status = model.StatusNew
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *MemoryDocumentRepository) Get(_ context.Context, id string) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MemoryDocumentRepository) List(_ context.Context, ownerID string, filter DocumentFilter) ([]model.Document, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []model.Document
	for _, doc := range m.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if filter.PathPrefix != "" && !strings.HasPrefix(doc.Path, filter.PathPrefix) {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		matched = append(matched, *doc)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *MemoryDocumentRepository) ListPaths(_ context.Context, ownerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID && doc.Path != "" {
			seen[doc.Path] = struct{}{}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MemoryDocumentRepository) MarkProcessing(_ context.Context, id string) error {
	return m.setStatus(id, model.StatusProcessing, nil)
}

func (m *MemoryDocumentRepository) MarkReady(_ context.Context, id, excerpt string) error {
	return m.setStatus(id, model.StatusReady, &excerpt)
}

func (m *MemoryDocumentRepository) MarkFailed(_ context.Context, id, excerpt string) error {
	return m.setStatus(id, model.StatusFailed, &excerpt)
}

func (m *MemoryDocumentRepository) setStatus(id string, status model.DocStatus, excerpt *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = status
	if excerpt != nil {
		doc.TextExcerpt = *excerpt
	}
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryDocumentRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

// MemoryShareRepository is an in-memory ShareRepository.
type MemoryShareRepository struct {
	mu     sync.RWMutex
	shares map[string]*model.ShareLink
}

// NewMemoryShareRepository constructs an empty repository.
func NewMemoryShareRepository() *MemoryShareRepository {
	return &MemoryShareRepository{shares: make(map[string]*model.ShareLink)}
}

func (m *MemoryShareRepository) Create(_ context.Context, share *model.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	share.CreatedAt = time.Now().UTC()
	cp := *share
	m.shares[share.Token] = &cp
	return nil
}

func (m *MemoryShareRepository) GetActive(_ context.Context, token string, now time.Time) (*model.ShareLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	share, ok := m.shares[token]
	if !ok || !share.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	cp := *share
	return &cp, nil
}

// MemoryUserRepository is an in-memory UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

// NewMemoryUserRepository constructs an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

func (m *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.CreatedAt = time.Now().UTC()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryUserRepository) Get(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}
