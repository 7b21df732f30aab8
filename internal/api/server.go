// Package api exposes the HTTP surface: auth, uploads, documents, search,
// and share links. The core pipeline and resolver are injected; handlers
// only shape requests and responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vericase/vericase-docs/internal/auth"
	"github.com/vericase/vericase-docs/internal/config"
	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/queue"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/search"
	"github.com/vericase/vericase-docs/internal/share"
)

// SearchIndex is the slice of the index the API needs: queries for /search
// and best-effort entry deletion when a document is removed.
type SearchIndex interface {
	search.Reader
	Delete(ctx context.Context, id string) error
}

// Server wires the HTTP routes to the injected services.
type Server struct {
	cfg      *config.Config
	docs     repository.DocumentRepository
	users    repository.UserRepository
	objects  objectstore.Store
	index    SearchIndex
	shares   *share.Service
	enqueuer queue.Enqueuer
	tokens   *auth.TokenIssuer
	log      *logrus.Logger

	server *http.Server
	once   sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, docs repository.DocumentRepository, users repository.UserRepository,
	objects objectstore.Store, index SearchIndex, shares *share.Service,
	enqueuer queue.Enqueuer, tokens *auth.TokenIssuer, log *logrus.Logger) *Server {
	return &Server{
		cfg:      cfg,
		docs:     docs,
		users:    users,
		objects:  objects,
		index:    index,
		shares:   shares,
		enqueuer: enqueuer,
		tokens:   tokens,
		log:      log,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.Handle("POST /uploads/presign", s.authed(s.handlePresignUpload))
	mux.Handle("POST /uploads/complete", s.authed(s.handleCompleteUpload))
	mux.Handle("POST /uploads/multipart/start", s.authed(s.handleMultipartStart))
	mux.Handle("GET /uploads/multipart/part", s.authed(s.handleMultipartPart))
	mux.Handle("POST /uploads/multipart/complete", s.authed(s.handleMultipartComplete))

	mux.Handle("GET /documents", s.authed(s.handleListDocuments))
	mux.Handle("GET /documents/paths", s.authed(s.handleListPaths))
	mux.Handle("GET /documents/{id}", s.authed(s.handleGetDocument))
	mux.Handle("GET /documents/{id}/signed_url", s.authed(s.handleSignedURL))
	mux.Handle("DELETE /documents/{id}", s.authed(s.handleDeleteDocument))

	mux.Handle("GET /search", s.authed(s.handleSearch))

	mux.Handle("POST /shares", s.authed(s.handleCreateShare))
	// Share resolution is the capability itself; no session required.
	mux.HandleFunc("GET /shares/{token}", s.handleResolveShare)

	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Handler(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("address", s.cfg.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Error("encode response failed")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			origin = ""
			for _, o := range s.cfg.CORSOrigins {
				if o == r.Header.Get("Origin") {
					origin = o
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
