// Package outbox relays audit outbox entries to the message broker.
package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "govportal/pkg/platform/audit"
	"govportal/pkg/platform/tx"
)

// Producer publishes one serialized event.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// Worker polls the outbox and publishes pending entries in order. Entries are
// marked published only after the broker acknowledged them, so delivery is
// at-least-once.
type Worker struct {
	source   audit.OutboxSource
	producer Producer
	tx       tx.Runner
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures a Worker.
type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

func NewWorker(source audit.OutboxSource, producer Producer, runner tx.Runner, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		source:   source,
		producer: producer,
		tx:       runner,
		logger:   logger,
		interval: 2 * time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "outbox batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes one batch and returns how many entries were marked
// published. Publishing stops at the first failure so ordering is kept.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := w.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := w.source.FetchUnpublished(ctx, w.batch)
		if err != nil {
			return err
		}

		done := make([]uuid.UUID, 0, len(entries))
		var publishErr error
		for _, entry := range entries {
			headers := map[string]string{
				"event_type":     entry.EventType,
				"aggregate_type": entry.AggregateType,
			}
			if err := w.producer.Publish(ctx, entry.AggregateID, entry.Payload, headers); err != nil {
				publishErr = err
				break
			}
			done = append(done, entry.ID)
		}

		if err := w.source.MarkPublished(ctx, done, time.Now()); err != nil {
			return err
		}
		published = len(done)
		return publishErr
	})
	if err != nil {
		// With a SQL runner the marks roll back alongside the error and the
		// acknowledged entries are re-sent on the next batch.
		return 0, err
	}
	if published > 0 {
		w.logger.DebugContext(ctx, "outbox entries published", "count", published)
	}
	return published, nil
}
