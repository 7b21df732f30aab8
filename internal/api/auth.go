package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vericase/vericase-docs/internal/auth"
	"github.com/vericase/vericase-docs/internal/model"
	"github.com/vericase/vericase-docs/internal/repository"
)

type contextKey string

const userIDKey contextKey = "user_id"

// userID returns the authenticated user id stored by the auth middleware.
func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// authed wraps a handler with bearer-token authentication.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string         `json:"token"`
	User  map[string]any `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "email and password required")
		return
	}
	if _, err := s.users.GetByEmail(r.Context(), email); err == nil {
		s.respondError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "hash failed")
		return
	}
	user := &model.User{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.respondError(w, http.StatusInternalServerError, "create user failed")
		return
	}
	s.respondSession(w, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.GetByEmail(r.Context(), email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.respondSession(w, user)
}

func (s *Server) respondSession(w http.ResponseWriter, user *model.User) {
	token, err := s.tokens.Sign(user.ID, user.Email)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "sign token failed")
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  map[string]any{"id": user.ID, "email": user.Email},
	})
}
