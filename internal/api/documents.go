package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vericase/vericase-docs/internal/model"
	"github.com/vericase/vericase-docs/internal/repository"
)

type documentSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path,omitempty"`
	Status      string    `json:"status"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	Title       string    `json:"title,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DocumentFilter{
		PathPrefix: strings.Trim(strings.TrimSpace(q.Get("path_prefix")), "/"),
		Limit:      50,
	}
	if v := q.Get("status"); v != "" {
		status := model.DocStatus(strings.ToUpper(v))
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid status value")
			return
		}
		filter.Status = status
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			s.respondError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		filter.Offset = n
	}

	docs, total, err := s.docs.List(r.Context(), userID(r), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "list failed")
		return
	}
	items := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		items = append(items, documentSummary{
			ID:          doc.ID,
			Filename:    doc.Filename,
			Path:        doc.Path,
			Status:      string(doc.Status),
			Size:        doc.Size,
			ContentType: doc.ContentType,
			Title:       doc.Title,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"total": total, "items": items})
}

func (s *Server) handleListPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := s.docs.ListPaths(r.Context(), userID(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "list paths failed")
		return
	}
	if paths == nil {
		paths = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	url, err := s.objects.PresignGet(r.Context(), doc.ObjectKey, s.cfg.SignedURLTTL)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "presign failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"url":          url,
		"filename":     doc.Filename,
		"content_type": doc.ContentType,
	})
}

// handleDeleteDocument removes the row. Object and index cleanup are
// best-effort: a transient collaborator failure must not block deletion,
// but it is logged for operational follow-up.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if err := s.objects.Delete(r.Context(), doc.ObjectKey); err != nil {
		s.log.WithError(err).WithField("key", doc.ObjectKey).Error("delete object failed")
	}
	if err := s.index.Delete(r.Context(), doc.ID); err != nil {
		s.log.WithError(err).WithField("document_id", doc.ID).Error("delete index entry failed")
	}
	if err := s.docs.Delete(r.Context(), doc.ID); err != nil {
		s.respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.respondError(w, http.StatusBadRequest, "q required")
		return
	}
	pathPrefix := strings.Trim(strings.TrimSpace(r.URL.Query().Get("path_prefix")), "/")
	hits, err := s.index.Search(r.Context(), query, 25, pathPrefix)
	if err != nil {
		s.log.WithError(err).Error("search failed")
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"count": len(hits), "hits": hits})
}

// loadDocument fetches the document in the path and enforces ownership.
// Both "absent" and "not yours" read as 404 so ids cannot be probed.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*model.Document, bool) {
	id := r.PathValue("id")
	doc, err := s.docs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "not found")
		} else {
			s.respondError(w, http.StatusInternalServerError, "lookup failed")
		}
		return nil, false
	}
	if doc.OwnerID != userID(r) {
		s.respondError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return doc, true
}
