package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eloritzkovitz/voltrico/pkg/database"
)

// PostgresStore implements Store on top of a PostgreSQL outbox table.
type PostgresStore struct {
	pool  database.DBTX
	stale time.Duration
}

// NewPostgresStore creates a store. Rows stuck in publishing longer than
// stale are handed out again by ClaimPending.
func NewPostgresStore(pool database.DBTX, stale time.Duration) *PostgresStore {
	if stale <= 0 {
		stale = time.Minute
	}
	return &PostgresStore{pool: pool, stale: stale}
}

// InsertTx appends a pending row inside the caller's transaction.
func (s *PostgresStore) InsertTx(ctx context.Context, tx pgx.Tx, row *Row) error {
	query := `
		INSERT INTO outbox (event_id, topic, event_type, entity_id, version, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())`

	_, err := tx.Exec(ctx, query,
		row.EventID,
		row.Topic,
		row.EventType,
		row.EntityID,
		row.Version,
		row.Payload,
		StatusPending,
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}
	return nil
}

// ClaimPending moves up to limit rows to publishing and returns them. The
// inner SELECT uses FOR UPDATE SKIP LOCKED so concurrent relay instances never
// claim the same row.
func (s *PostgresStore) ClaimPending(ctx context.Context, limit int) ([]*Row, error) {
	query := `
		UPDATE outbox SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM outbox
			WHERE status = $2
			   OR (status = $1 AND updated_at < now() - $3::interval)
			ORDER BY id
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, topic, event_type, entity_id, version, payload, attempts, created_at`

	interval := fmt.Sprintf("%d seconds", int(s.stale.Seconds()))

	rows, err := s.pool.Query(ctx, query, StatusPublishing, StatusPending, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox rows: %w", err)
	}
	defer rows.Close()

	var claimed []*Row
	for rows.Next() {
		r := &Row{Status: StatusPublishing}
		if err := rows.Scan(&r.ID, &r.EventID, &r.Topic, &r.EventType, &r.EntityID, &r.Version, &r.Payload, &r.Attempts, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		claimed = append(claimed, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}

	return claimed, nil
}

// MarkPublished records a successful publish.
func (s *PostgresStore) MarkPublished(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox SET status = $1, published_at = now(), updated_at = now()
		WHERE id = $2`

	tag, err := s.pool.Exec(ctx, query, StatusPublished, id)
	if err != nil {
		return fmt.Errorf("mark outbox row published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkFailed bumps the attempt counter. Below maxAttempts the row goes back to
// pending for another pass; at maxAttempts it is parked as failed and left for
// manual inspection.
func (s *PostgresStore) MarkFailed(ctx context.Context, id int64, cause error, maxAttempts int) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	query := `
		UPDATE outbox
		SET attempts = attempts + 1,
		    last_error = $1,
		    updated_at = now(),
		    status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE $4 END
		WHERE id = $5`

	tag, err := s.pool.Exec(ctx, query, msg, maxAttempts, StatusFailed, StatusPending, id)
	if err != nil {
		return fmt.Errorf("mark outbox row failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
