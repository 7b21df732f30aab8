// Package objectstore provides access to the document bucket.
package objectstore

import (
	"context"
	"io"
	"time"
)

// CompletedPart identifies one uploaded part of a multipart upload.
type CompletedPart struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// Store is the narrow object-storage contract the core consumes. Originals
// and derived artifacts (watermarked renditions) live in the same bucket.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	MultipartStart(ctx context.Context, key, contentType string) (string, error)
	PresignPart(ctx context.Context, key, uploadID string, partNumber int, ttl time.Duration) (string, error)
	MultipartComplete(ctx context.Context, key, uploadID string, parts []CompletedPart) error
}
