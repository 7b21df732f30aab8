package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vericase/vericase-docs/internal/model"
	"github.com/vericase/vericase-docs/internal/objectstore"
)

type uploadRequest struct {
	Filename    string                      `json:"filename"`
	ContentType string                      `json:"content_type"`
	Path        string                      `json:"path"`
	Size        int64                       `json:"size"`
	Title       string                      `json:"title"`
	Metadata    map[string]any              `json:"metadata"`
	Key         string                      `json:"key"`
	UploadID    string                      `json:"uploadId"`
	Parts       []objectstore.CompletedPart `json:"parts"`
}

func (r uploadRequest) normalized() uploadRequest {
	if r.Filename == "" {
		r.Filename = "file"
	}
	if r.ContentType == "" {
		r.ContentType = "application/octet-stream"
	}
	r.Path = strings.Trim(strings.TrimSpace(r.Path), "/")
	return r
}

// objectKey scopes every upload under a fresh uuid so filenames never
// collide: path/<uuid>/<filename>.
func objectKey(path, filename string) string {
	if path != "" {
		return fmt.Sprintf("%s/%s/%s", path, uuid.NewString(), filename)
	}
	return fmt.Sprintf("%s/%s", uuid.NewString(), filename)
}

func (s *Server) handlePresignUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req = req.normalized()
	key := objectKey(req.Path, req.Filename)
	url, err := s.objects.PresignPut(r.Context(), key, req.ContentType, s.cfg.SignedURLTTL)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "presign failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (s *Server) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req = req.normalized()
	if req.Key == "" {
		s.respondError(w, http.StatusBadRequest, "key required")
		return
	}
	s.finishUpload(w, r, req)
}

func (s *Server) handleMultipartStart(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req = req.normalized()
	key := objectKey(req.Path, req.Filename)
	uploadID, err := s.objects.MultipartStart(r.Context(), key, req.ContentType)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "start multipart failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"key": key, "uploadId": uploadID})
}

func (s *Server) handleMultipartPart(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	uploadID := r.URL.Query().Get("uploadId")
	partNumber, err := strconv.Atoi(r.URL.Query().Get("partNumber"))
	if key == "" || uploadID == "" || err != nil || partNumber < 1 {
		s.respondError(w, http.StatusBadRequest, "key, uploadId and partNumber required")
		return
	}
	url, err := s.objects.PresignPart(r.Context(), key, uploadID, partNumber, s.cfg.SignedURLTTL)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "presign part failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleMultipartComplete(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req = req.normalized()
	if req.Key == "" || req.UploadID == "" || len(req.Parts) == 0 {
		s.respondError(w, http.StatusBadRequest, "key, uploadId and parts required")
		return
	}
	if err := s.objects.MultipartComplete(r.Context(), req.Key, req.UploadID, req.Parts); err != nil {
		s.respondError(w, http.StatusInternalServerError, "complete multipart failed")
		return
	}
	s.finishUpload(w, r, req)
}

// finishUpload persists the NEW document and fires the ingestion job. The
// response never waits on processing.
func (s *Server) finishUpload(w http.ResponseWriter, r *http.Request, req uploadRequest) {
	doc := &model.Document{
		ID:          uuid.NewString(),
		Filename:    req.Filename,
		Path:        req.Path,
		ContentType: req.ContentType,
		Size:        req.Size,
		Bucket:      s.cfg.MinioBucket,
		ObjectKey:   req.Key,
		Title:       req.Title,
		Metadata:    req.Metadata,
		OwnerID:     userID(r),
	}
	if err := s.docs.Create(r.Context(), doc); err != nil {
		s.respondError(w, http.StatusInternalServerError, "create document failed")
		return
	}
	if err := s.enqueuer.EnqueueIngest(r.Context(), doc.ID); err != nil {
		// The row exists with status NEW; the job can be re-enqueued.
		s.log.WithError(err).WithField("document_id", doc.ID).Error("enqueue ingest failed")
		s.respondError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": doc.ID, "status": "QUEUED"})
}
