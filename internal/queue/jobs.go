// Package queue defines the ingestion task and how it is enqueued.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// IngestDocumentTask is scheduled exactly once per completed upload.
	IngestDocumentTask = "document:ingest"
)

// IngestPayload is serialized into the task so the worker knows which
// document to process.
type IngestPayload struct {
	DocumentID string `json:"document_id"`
}

// Enqueuer hands ingestion work to the worker pool. The caller fires and
// forgets; it never blocks on job completion.
type Enqueuer interface {
	EnqueueIngest(ctx context.Context, documentID string) error
}

// AsynqEnqueuer enqueues ingestion tasks onto Redis via asynq.
type AsynqEnqueuer struct {
	client *asynq.Client
}

// NewAsynqEnqueuer constructs an enqueuer around an asynq client.
func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

// EnqueueIngest enqueues one ingestion job. MaxRetry is zero: the job
// records its own outcome as a status transition, so the transport must not
// re-run a job that already ended in FAILED.
func (e *AsynqEnqueuer) EnqueueIngest(ctx context.Context, documentID string) error {
	data, err := json.Marshal(IngestPayload{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(IngestDocumentTask, data)
	if _, err := e.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue ingest task: %w", err)
	}
	return nil
}
