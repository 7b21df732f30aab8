// Package share mints capability tokens for documents and resolves them
// into short-lived retrieval URLs, optionally deriving a watermarked
// rendition on demand.
package share

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vericase/vericase-docs/internal/auth"
	"github.com/vericase/vericase-docs/internal/model"
	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/watermark"
)

const (
	MinTTLHours = 1
	MaxTTLHours = 168

	MinPasswordLen = 4
	MaxPasswordLen = 128
)

var (
	// ErrNotFound covers unknown and expired tokens alike. The resolver
	// never reveals whether a token ever existed.
	ErrNotFound = errors.New("share not found or expired")
	// ErrPasswordRequired covers both a missing and a wrong password.
	ErrPasswordRequired = errors.New("password required")

	ErrTTLOutOfRange  = errors.New("share ttl must be between 1 and 168 hours")
	ErrPasswordLength = errors.New("password length must be between 4 and 128 characters")

	ErrWatermarkEmpty  = errors.New("watermark must contain printable characters")
	ErrWatermarkNotPDF = errors.New("watermark supported for PDFs only")
	// ErrWatermarkFailed is the generic user-facing generation failure; the
	// underlying cause is logged server-side only.
	ErrWatermarkFailed = errors.New("unable to generate watermark")
)

// CreatedShare is returned by Create.
type CreatedShare struct {
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RequiresPassword bool      `json:"requires_password"`
}

// Resolution is the retrieval descriptor a resolved share grants.
type Resolution struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Service creates and resolves share links.
type Service struct {
	shares  repository.ShareRepository
	docs    repository.DocumentRepository
	objects objectstore.Store
	urlTTL  time.Duration
	log     *logrus.Logger

	// Overridable in tests.
	now   func() time.Time
	stamp func(pdf []byte, text string) ([]byte, error)
}

// NewService constructs a Service. urlTTL bounds the lifetime of every
// retrieval URL the resolver hands out.
func NewService(shares repository.ShareRepository, docs repository.DocumentRepository, objects objectstore.Store, urlTTL time.Duration, log *logrus.Logger) *Service {
	return &Service{
		shares:  shares,
		docs:    docs,
		objects: objects,
		urlTTL:  urlTTL,
		log:     log,
		now:     time.Now,
		stamp:   watermark.Stamp,
	}
}

// Create mints a share link for the document. The password, when supplied,
// is stored only as a salted hash.
func (s *Service) Create(ctx context.Context, documentID, userID string, ttlHours int, password string) (*CreatedShare, error) {
	if ttlHours < MinTTLHours || ttlHours > MaxTTLHours {
		return nil, ErrTTLOutOfRange
	}
	if _, err := s.docs.Get(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}

	var passwordHash string
	if password = strings.TrimSpace(password); password != "" {
		if n := len([]rune(password)); n < MinPasswordLen || n > MaxPasswordLen {
			return nil, ErrPasswordLength
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		passwordHash = hash
	}

	link := &model.ShareLink{
		Token:        newToken(),
		DocumentID:   documentID,
		CreatedBy:    userID,
		ExpiresAt:    s.now().UTC().Add(time.Duration(ttlHours) * time.Hour),
		PasswordHash: passwordHash,
	}
	if err := s.shares.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}
	return &CreatedShare{
		Token:            link.Token,
		ExpiresAt:        link.ExpiresAt,
		RequiresPassword: passwordHash != "",
	}, nil
}

// Resolve validates the token and returns a retrieval descriptor. With
// watermarkText set it derives a stamped rendition scoped to the share and
// returns a URL to that artifact instead of the original.
func (s *Service) Resolve(ctx context.Context, token, password, watermarkText string) (*Resolution, error) {
	link, err := s.shares.GetActive(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load share: %w", err)
	}
	if link.PasswordHash != "" {
		if password == "" || !auth.CheckPassword(password, link.PasswordHash) {
			return nil, ErrPasswordRequired
		}
	}

	doc, err := s.docs.Get(ctx, link.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load shared document: %w", err)
	}

	if watermarkText != "" {
		return s.resolveWatermarked(ctx, token, doc, watermarkText)
	}

	url, err := s.objects.PresignGet(ctx, doc.ObjectKey, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("presign original: %w", err)
	}
	return &Resolution{URL: url, Filename: doc.Filename, ContentType: doc.ContentType}, nil
}

func (s *Service) resolveWatermarked(ctx context.Context, token string, doc *model.Document, text string) (*Resolution, error) {
	normalized := watermark.NormalizeText(text)
	if normalized == "" {
		return nil, ErrWatermarkEmpty
	}
	if !isPDF(doc) {
		return nil, ErrWatermarkNotPDF
	}

	log := s.log.WithFields(logrus.Fields{"token": token, "document_id": doc.ID})
	original, err := s.objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		log.WithError(err).Error("fetch original for watermarking failed")
		return nil, ErrWatermarkFailed
	}
	stamped, err := s.stamp(original, normalized)
	if err != nil {
		log.WithError(err).Error("watermark stamping failed")
		return nil, ErrWatermarkFailed
	}

	// Fresh key per request so concurrent resolutions of the same share
	// cannot collide. Renditions are ephemeral; bucket lifecycle policy
	// expires them.
	key := fmt.Sprintf("shares/%s/watermarked/%s.pdf", token, uuid.NewString())
	if err := s.objects.Put(ctx, key, bytes.NewReader(stamped), int64(len(stamped)), "application/pdf"); err != nil {
		log.WithError(err).Error("store watermarked rendition failed")
		return nil, ErrWatermarkFailed
	}
	url, err := s.objects.PresignGet(ctx, key, s.urlTTL)
	if err != nil {
		log.WithError(err).Error("presign watermarked rendition failed")
		return nil, ErrWatermarkFailed
	}
	return &Resolution{URL: url, Filename: doc.Filename, ContentType: "application/pdf"}, nil
}

func isPDF(doc *model.Document) bool {
	return strings.Contains(strings.ToLower(doc.ContentType), "pdf") ||
		strings.HasSuffix(strings.ToLower(doc.Filename), ".pdf")
}

// newToken returns a 32-hex-char high-entropy capability token.
func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to mint
		// capabilities; fall back to a v4 UUID which reads the same pool.
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(buf)
}
