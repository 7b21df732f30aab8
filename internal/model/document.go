// Package model contains the entity definitions shared by the API, the
// worker, and the repositories.
package model

import (
	"time"
)

// DocStatus is the processing lifecycle of a document. Transitions are
// NEW -> PROCESSING -> {READY, FAILED}; a FAILED document may be re-enqueued
// back to PROCESSING.
type DocStatus string

const (
	StatusNew        DocStatus = "NEW"
	StatusProcessing DocStatus = "PROCESSING"
	StatusReady      DocStatus = "READY"
	StatusFailed     DocStatus = "FAILED"
)

// Valid reports whether s is one of the four known states.
func (s DocStatus) Valid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Document is a row in the documents table. The excerpt is only populated
// once an ingestion job has run (READY, or FAILED after partial extraction).
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	Path        string         `json:"path,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	Size        int64          `json:"size"`
	Bucket      string         `json:"bucket"`
	ObjectKey   string         `json:"s3_key"`
	Status      DocStatus      `json:"status"`
	Title       string         `json:"title,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	TextExcerpt string         `json:"text_excerpt,omitempty"`
	OwnerID     string         `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ShareLink grants time-boxed, optionally password-gated access to a
// document. It never embeds document bytes; resolution derives a short-lived
// retrieval URL instead. Rows are read-only after creation.
type ShareLink struct {
	Token        string    `json:"token"`
	DocumentID   string    `json:"document_id"`
	CreatedBy    string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is an account that owns documents and mints share links.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
