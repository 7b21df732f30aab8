package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	dsl := buildQuery("contract dispute", 25, "")
	assert.Equal(t, 25, dsl["size"])

	boolQuery := dsl["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)
	multiMatch := must[0].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "contract dispute", multiMatch["query"])
	assert.Equal(t, []string{"text^3", "filename", "title", "metadata.*"}, multiMatch["fields"])

	highlight := dsl["highlight"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, highlight, "text")
}

func TestBuildQueryWithPathPrefix(t *testing.T) {
	dsl := buildQuery("invoice", 10, "cases/alpha")
	must := dsl["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
	prefix := must[1].(map[string]any)["prefix"].(map[string]any)
	assert.Equal(t, "cases/alpha", prefix["path"])
}

func TestEntryCarriesAllFields(t *testing.T) {
	// An indexed document always has the full field set, even when optional
	// values are empty; the mapping and queries rely on the keys existing.
	data, err := json.Marshal(Entry{ID: "doc-1", Filename: "a.pdf"})
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, field := range []string{"id", "filename", "title", "path", "owner", "content_type", "uploaded_at", "metadata", "text"} {
		assert.Contains(t, doc, field)
	}
}

func TestParseHits(t *testing.T) {
	raw := []byte(`{
		"hits": {"hits": [
			{
				"_score": 4.2,
				"_source": {"id": "doc-1", "filename": "contract.pdf", "title": "Contract", "path": "cases/alpha", "content_type": "application/pdf"},
				"highlight": {"text": ["the <em>contract</em> states", "this <em>contract</em> ends"]}
			},
			{
				"_score": 1.1,
				"_source": {"id": "doc-2", "filename": "notes.txt"}
			}
		]}
	}`)

	hits, err := parseHits(raw)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "doc-1", hits[0].ID)
	assert.Equal(t, 4.2, hits[0].Score)
	assert.Equal(t, "the <em>contract</em> states ... this <em>contract</em> ends", hits[0].Snippet)

	assert.Equal(t, "doc-2", hits[1].ID)
	assert.Empty(t, hits[1].Snippet)
}

func TestParseHitsEmpty(t *testing.T) {
	hits, err := parseHits([]byte(`{"hits": {"hits": []}}`))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchRoundTrip(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits": {"hits": [{"_score": 2.0, "_source": {"id": "doc-1", "filename": "a.pdf"}}]}}`))
	}))
	defer srv.Close()

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	ix := NewWithClient(client, "documents")

	hits, err := ix.Search(context.Background(), "alpha", 0, "cases")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].ID)

	// size <= 0 falls back to the default page size.
	assert.Equal(t, float64(25), gotBody["size"])
}
