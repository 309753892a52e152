// Package outbox implements the transactional outbox pattern: producing
// services insert an event row in the same database transaction as the entity
// mutation, and a background relay publishes pending rows to Kafka. A mutation
// is never visible without its event, and an event is never published for a
// rolled-back mutation.
package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Row statuses.
const (
	StatusPending    = "pending"
	StatusPublishing = "publishing"
	StatusPublished  = "published"
	StatusFailed     = "failed"
)

// Row is a single outbox entry. Payload holds the fully serialized event
// envelope so the relay publishes exactly what the producing transaction
// recorded.
type Row struct {
	ID          int64
	EventID     string
	Topic       string
	EventType   string
	EntityID    string
	Version     int64
	Payload     []byte
	Attempts    int
	Status      string
	LastError   string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store persists and dispenses outbox rows.
type Store interface {
	// InsertTx appends a row inside the caller's transaction.
	InsertTx(ctx context.Context, tx pgx.Tx, row *Row) error

	// ClaimPending atomically moves up to limit rows from pending to
	// publishing and returns them. Rows stuck in publishing longer than the
	// store's stale threshold are reclaimed too, so a crashed relay cannot
	// strand events.
	ClaimPending(ctx context.Context, limit int) ([]*Row, error)

	// MarkPublished records a successful publish.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed increments the attempt counter and either requeues the row
	// or, once maxAttempts is reached, parks it as failed.
	MarkFailed(ctx context.Context, id int64, cause error, maxAttempts int) error
}
