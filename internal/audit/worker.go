package audit

import (
	"context"
	"log/slog"
)

// Sink receives copies of recorded entries for downstream delivery, e.g. the
// Kafka publisher. Delivery is best-effort; the durable trail is the store.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Worker drains the outbox channel into a sink. It keeps background delivery
// off the recording path and testable without wiring a broker.
type Worker struct {
	sink   Sink
	inbox  <-chan Entry
	logger *slog.Logger
}

// NewWorker builds a worker over the given sink and inbox channel.
func NewWorker(sink Sink, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run consumes until ctx is cancelled. Publish failures are logged and
// skipped; the entry is already durable in the store.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit sink publish failed",
					"entry_id", entry.ID.String(),
					"operation", string(entry.Operation),
					"error", err.Error(),
				)
			}
		}
	}
}
