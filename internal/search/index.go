// Package search maintains the full-text projection of documents in
// OpenSearch and answers ranked multi-field queries.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/vericase/vericase-docs/internal/config"
)

// Entry is the denormalized index document. Owner and path are duplicated
// from the record store so search filtering needs no join.
type Entry struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Title       string         `json:"title"`
	Path        string         `json:"path"`
	Owner       string         `json:"owner"`
	ContentType string         `json:"content_type"`
	UploadedAt  time.Time      `json:"uploaded_at"`
	Metadata    map[string]any `json:"metadata"`
	Text        string         `json:"text"`
}

// Hit is one ranked search result. Snippet is empty when the query did not
// match inside the text field.
type Hit struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Title       string  `json:"title,omitempty"`
	Path        string  `json:"path,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet,omitempty"`
}

// Writer is the index mutation contract the ingestion job consumes.
type Writer interface {
	Upsert(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, id string) error
}

// Reader answers ranked queries.
type Reader interface {
	Search(ctx context.Context, query string, size int, pathPrefix string) ([]Hit, error)
}

// Index implements Writer and Reader against one OpenSearch index.
type Index struct {
	client *opensearch.Client
	name   string
}

// New connects to OpenSearch using the Config.
func New(cfg *config.Config) (*Index, error) {
	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{cfg.OpenSearchURL}})
	if err != nil {
		return nil, fmt.Errorf("init opensearch: %w", err)
	}
	return &Index{client: client, name: cfg.OpenSearchIndex}, nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(client *opensearch.Client, name string) *Index {
	return &Index{client: client, name: name}
}

const mapping = `{
	"settings": {"index": {"number_of_shards": 1, "number_of_replicas": 0}},
	"mappings": {"properties": {
		"id": {"type": "keyword"},
		"filename": {"type": "text"},
		"title": {"type": "text"},
		"path": {"type": "keyword"},
		"owner": {"type": "keyword"},
		"content_type": {"type": "keyword"},
		"uploaded_at": {"type": "date"},
		"metadata": {"type": "object", "enabled": true},
		"text": {"type": "text", "analyzer": "english"}
	}}
}`

// EnsureIndex creates the index with its mapping if it does not exist,
// retrying until OpenSearch is reachable or the deadline passes.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	deadline := time.Now().Add(60 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		lastErr = ix.ensureOnce(ctx)
		if lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return fmt.Errorf("ensure index: %w", lastErr)
}

func (ix *Index) ensureOnce(ctx context.Context) error {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{ix.name}}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}
	createRes, err := opensearchapi.IndicesCreateRequest{Index: ix.name, Body: strings.NewReader(mapping)}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("create index: %s", createRes.String())
	}
	return nil
}

// Upsert writes the entry keyed by document id, overwriting in place. The
// write refreshes synchronously so a subsequent read is guaranteed to see
// it; the ingestion pipeline depends on that before flipping status.
func (ix *Index) Upsert(ctx context.Context, entry Entry) error {
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode index entry: %w", err)
	}
	res, err := opensearchapi.IndexRequest{
		Index:      ix.name,
		DocumentID: entry.ID,
		Body:       strings.NewReader(string(body)),
		Refresh:    "true",
	}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document %s: %s", entry.ID, res.String())
	}
	return nil
}

// Delete removes the entry. An already absent entry is not an error.
func (ix *Index) Delete(ctx context.Context, id string) error {
	res, err := opensearchapi.DeleteRequest{Index: ix.name, DocumentID: id}.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("delete index entry: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete index entry %s: %s", id, res.String())
	}
	return nil
}

// Search runs a weighted multi-field query. Text carries the highest weight;
// pathPrefix, when set, restricts hits to that exact path prefix.
func (ix *Index) Search(ctx context.Context, query string, size int, pathPrefix string) ([]Hit, error) {
	if size <= 0 {
		size = 25
	}
	dsl, err := json.Marshal(buildQuery(query, size, pathPrefix))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	res, err := opensearchapi.SearchRequest{
		Index: []string{ix.name},
		Body:  strings.NewReader(string(dsl)),
	}.Do(ctx, ix.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	return parseHits(raw)
}

func buildQuery(query string, size int, pathPrefix string) map[string]any {
	must := []any{
		map[string]any{"multi_match": map[string]any{
			"query":  query,
			"fields": []string{"text^3", "filename", "title", "metadata.*"},
		}},
	}
	if pathPrefix != "" {
		must = append(must, map[string]any{"prefix": map[string]any{"path": pathPrefix}})
	}
	return map[string]any{
		"size":      size,
		"query":     map[string]any{"bool": map[string]any{"must": must}},
		"highlight": map[string]any{"fields": map[string]any{"text": map[string]any{}}},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    Entry               `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func parseHits(raw []byte) ([]Hit, error) {
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		hit := Hit{
			ID:          h.Source.ID,
			Filename:    h.Source.Filename,
			Title:       h.Source.Title,
			Path:        h.Source.Path,
			ContentType: h.Source.ContentType,
			Score:       h.Score,
		}
		if frags := h.Highlight["text"]; len(frags) > 0 {
			hit.Snippet = strings.Join(frags, " ... ")
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
