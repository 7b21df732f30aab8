package queue

import (
	"context"

	"github.com/sirupsen/logrus"
)

// InlinePool runs ingestion jobs on in-process goroutines instead of asynq.
// It backs Redis-free development setups and tests. Jobs still run
// decoupled from the enqueuing request.
type InlinePool struct {
	run     func(ctx context.Context, documentID string) error
	jobs    chan string
	workers int
	log     *logrus.Logger
}

// NewInlinePool builds a pool with queue capacity tied to worker count.
func NewInlinePool(run func(ctx context.Context, documentID string) error, workers int, log *logrus.Logger) *InlinePool {
	if workers <= 0 {
		workers = 1
	}
	return &InlinePool{
		run:     run,
		jobs:    make(chan string, workers*4),
		workers: workers,
		log:     log,
	}
}

// Start launches the worker goroutines. They exit when ctx is cancelled.
func (p *InlinePool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx)
	}
}

// EnqueueIngest queues a job without blocking the caller. When the buffer is
// full the job is dropped; the document stays NEW and the drop is logged so
// it can be re-enqueued.
func (p *InlinePool) EnqueueIngest(_ context.Context, documentID string) error {
	select {
	case p.jobs <- documentID:
		return nil
	default:
		p.log.WithField("document_id", documentID).Warn("inline queue full, dropping ingest job")
		return nil
	}
}

func (p *InlinePool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.jobs:
			if err := p.run(ctx, id); err != nil {
				p.log.WithError(err).WithField("document_id", id).Error("ingest job failed")
			}
		}
	}
}
