package api

import (
	"errors"
	"net/http"

	"github.com/vericase/vericase-docs/internal/share"
)

type createShareRequest struct {
	DocumentID string `json:"document_id"`
	Hours      int    `json:"hours"`
	Password   string `json:"password"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.DocumentID == "" {
		s.respondError(w, http.StatusBadRequest, "document_id required")
		return
	}
	if req.Hours == 0 {
		req.Hours = 24
	}
	created, err := s.shares.Create(r.Context(), req.DocumentID, userID(r), req.Hours, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, share.ErrTTLOutOfRange), errors.Is(err, share.ErrPasswordLength):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.WithError(err).Error("create share failed")
			s.respondError(w, http.StatusInternalServerError, "create share failed")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, created)
}

func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	q := r.URL.Query()
	res, err := s.shares.Resolve(r.Context(), token, q.Get("password"), q.Get("watermark"))
	if err != nil {
		switch {
		case errors.Is(err, share.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "invalid or expired")
		case errors.Is(err, share.ErrPasswordRequired):
			s.respondError(w, http.StatusUnauthorized, "password required")
		case errors.Is(err, share.ErrWatermarkEmpty), errors.Is(err, share.ErrWatermarkNotPDF):
			s.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, share.ErrWatermarkFailed):
			s.respondError(w, http.StatusInternalServerError, err.Error())
		default:
			s.log.WithError(err).Error("resolve share failed")
			s.respondError(w, http.StatusInternalServerError, "resolve share failed")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}
