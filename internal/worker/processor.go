// Package worker runs ingestion jobs: fetch, extract, index, flip status.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vericase/vericase-docs/internal/objectstore"
	"github.com/vericase/vericase-docs/internal/queue"
	"github.com/vericase/vericase-docs/internal/repository"
	"github.com/vericase/vericase-docs/internal/search"
)

// ExcerptMaxLen bounds the excerpt persisted on the document row for quick
// previews without querying the index.
const ExcerptMaxLen = 1000

// TextExtractor produces best-effort plain text; it never fails.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) string
}

// Processor owns a document's status transitions while its ingestion job
// runs. It is plugged into the asynq worker loop or the inline pool.
type Processor struct {
	docs      repository.DocumentRepository
	objects   objectstore.Store
	index     search.Writer
	extractor TextExtractor
	log       *logrus.Logger
}

// NewProcessor constructs a Processor with its dependencies injected.
func NewProcessor(docs repository.DocumentRepository, objects objectstore.Store, index search.Writer, extractor TextExtractor, log *logrus.Logger) *Processor {
	return &Processor{docs: docs, objects: objects, index: index, extractor: extractor, log: log}
}

// Handler registers the ingest job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IngestDocumentTask, p.handleIngest)
	return mux
}

func (p *Processor) handleIngest(ctx context.Context, task *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.ProcessDocument(ctx, payload.DocumentID)
}

// ProcessDocument drives one document through
// NEW -> PROCESSING -> {READY, FAILED}. Every failure after the PROCESSING
// transition is absorbed into a FAILED status; the enqueuing caller has
// already returned, so nothing propagates and the document is never left in
// PROCESSING once this returns.
func (p *Processor) ProcessDocument(ctx context.Context, id string) error {
	log := p.log.WithField("document_id", id)

	doc, err := p.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The enqueue referenced a deleted or never-committed
			// document; not an error for the job.
			log.Info("ingest skipped, document gone")
			return nil
		}
		log.WithError(err).Error("load document failed")
		return nil
	}

	if err := p.docs.MarkProcessing(ctx, id); err != nil {
		log.WithError(err).Error("mark processing failed")
		return nil
	}

	data, err := p.objects.Get(ctx, doc.ObjectKey)
	if err != nil {
		log.WithError(err).Error("fetch object failed")
		p.fail(ctx, id, "")
		return nil
	}

	text := p.extractor.Extract(ctx, data, doc.Filename)
	excerpt := Excerpt(text)

	// The index write must land before the status flips to READY so that a
	// reader observing READY can rely on the index entry existing.
	entry := search.Entry{
		ID:          doc.ID,
		Filename:    doc.Filename,
		Title:       doc.Title,
		Path:        doc.Path,
		Owner:       doc.OwnerID,
		ContentType: doc.ContentType,
		UploadedAt:  doc.CreatedAt,
		Metadata:    doc.Metadata,
		Text:        text,
	}
	if err := p.index.Upsert(ctx, entry); err != nil {
		log.WithError(err).Error("index write failed")
		p.fail(ctx, id, excerpt)
		return nil
	}

	if err := p.docs.MarkReady(ctx, id, excerpt); err != nil {
		// The document must not stay PROCESSING; try to record FAILED so the
		// outcome is visible even when the READY write was lost.
		log.WithError(err).Error("mark ready failed")
		p.fail(ctx, id, excerpt)
		return nil
	}
	log.WithField("chars", len(text)).Info("document ingested")
	return nil
}

func (p *Processor) fail(ctx context.Context, id, excerpt string) {
	if err := p.docs.MarkFailed(ctx, id, excerpt); err != nil {
		p.log.WithError(err).WithField("document_id", id).Error("mark failed failed")
	}
}

// Excerpt trims the text and truncates it to ExcerptMaxLen runes.
func Excerpt(text string) string {
	trimmed := strings.TrimSpace(text)
	if runes := []rune(trimmed); len(runes) > ExcerptMaxLen {
		return string(runes[:ExcerptMaxLen])
	}
	return trimmed
}
