package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoSuchKey is returned by Memory.Get for absent objects.
var ErrNoSuchKey = errors.New("no such key")

// Memory is an in-memory Store used by tests and the single-binary
// development mode. Presigned URLs are synthetic memory:// URLs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemory constructs an empty store.
func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchKey, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *Memory) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchKey, key)
	}
	return "memory://" + key + "?expires=" + strconv.FormatInt(int64(ttl.Seconds()), 10), nil
}

func (m *Memory) PresignPut(_ context.Context, key, _ string, ttl time.Duration) (string, error) {
	return "memory://" + key + "?expires=" + strconv.FormatInt(int64(ttl.Seconds()), 10), nil
}

func (m *Memory) MultipartStart(_ context.Context, _, _ string) (string, error) {
	return uuid.NewString(), nil
}

func (m *Memory) PresignPart(_ context.Context, key, uploadID string, partNumber int, _ time.Duration) (string, error) {
	return "memory://" + key + "?uploadId=" + uploadID + "&partNumber=" + strconv.Itoa(partNumber), nil
}

func (m *Memory) MultipartComplete(_ context.Context, key, _ string, _ []CompletedPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		m.objects[key] = nil
	}
	return nil
}
