package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"privacore/pkg/domain"
	dErrors "privacore/pkg/domain-errors"
)

// Store is the append-only persistence the trail writes to. Declared here so
// the service owns its dependency contract and tests can swap sinks easily.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	ByUser(ctx context.Context, user string) ([]Entry, error)
	ByEntity(ctx context.Context, entityID domain.EntityID) ([]Entry, error)
}

// Trail records privileged operations. The store append is synchronous with
// the caller so a failed operation never leaves a spurious entry; the
// optional outbox channel feeds downstream sinks (Kafka) without blocking
// recording.
type Trail struct {
	store  Store
	outbox chan<- Entry
}

// Option configures a Trail.
type Option func(*Trail)

// WithOutbox attaches a channel consumed by a background worker. Sends are
// non-blocking: a full outbox drops the downstream copy, never the durable
// append.
func WithOutbox(outbox chan<- Entry) Option {
	return func(t *Trail) { t.outbox = outbox }
}

// NewTrail builds the audit trail over the given store.
func NewTrail(store Store, opts ...Option) *Trail {
	t := &Trail{store: store}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends exactly one new immutable entry stamped with the current
// UTC time and a fresh UUID. The returned entry carries the assigned
// identity.
func (t *Trail) Record(ctx context.Context, entry Entry) (*Entry, error) {
	if !entry.Operation.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"unknown audit operation: "+string(entry.Operation))
	}
	entry.ID = uuid.New()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	} else {
		entry.Timestamp = entry.Timestamp.UTC()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		entry.TraceID = sc.TraceID().String()
	}

	if err := t.store.Append(ctx, entry); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "append audit entry", err)
	}

	if t.outbox != nil {
		select {
		case t.outbox <- entry:
		default:
		}
	}
	return &entry, nil
}

// Recent returns up to limit entries, newest first.
func (t *Trail) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return t.store.Recent(ctx, limit)
}

// ByUser returns the entries recorded for one user.
func (t *Trail) ByUser(ctx context.Context, user string) ([]Entry, error) {
	if user == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user must not be empty")
	}
	return t.store.ByUser(ctx, user)
}

// ByEntity returns the entries touching one entity.
func (t *Trail) ByEntity(ctx context.Context, entityID domain.EntityID) ([]Entry, error) {
	return t.store.ByEntity(ctx, entityID)
}
