package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eloritzkovitz/voltrico/internal/order/domain"
	"github.com/eloritzkovitz/voltrico/pkg/database"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
// Every mutation commits the order row and its outbox event in one
// transaction.
type OrderRepository struct {
	db     database.DBTX
	outbox outbox.Store
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX, outboxStore outbox.Store) *OrderRepository {
	return &OrderRepository{db: db, outbox: outboxStore}
}

// Create inserts a new order and its change event atomically.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order, event *outbox.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO orders (id, order_id, customer_id, product_id, status, date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, query,
		o.ID, o.OrderID, o.CustomerID, o.ProductID, o.Status, o.Date, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "id", o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// Update writes the order at its new version and its change event atomically.
// The WHERE clause matches the previous version, so a row changed by a
// concurrent writer is not overwritten.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order, event *outbox.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE orders
		SET customer_id = $1, product_id = $2, status = $3, date = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8`

	ct, err := tx.Exec(ctx, query,
		o.CustomerID, o.ProductID, o.Status, o.Date, o.Version, o.UpdatedAt,
		o.ID, o.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, tx, o.ID)
	}

	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// Delete removes an order at the given version and inserts its change event
// atomically. Matching on version means a delete that raced a concurrent
// update fails instead of emitting an event whose version collides with the
// update's.
func (r *OrderRepository) Delete(ctx context.Context, id string, version int64, event *outbox.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, tx, id)
	}

	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, order_id, customer_id, product_id, status, date, version, created_at, updated_at
		FROM orders
		WHERE id = $1`

	var o domain.Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderID, &o.CustomerID, &o.ProductID, &o.Status, &o.Date, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	return &o, nil
}

// conflictOrMissing resolves a zero-row optimistic mutation: the row either
// does not exist (not found) or exists at a different version (conflict).
func (r *OrderRepository) conflictOrMissing(ctx context.Context, tx pgx.Tx, id string) error {
	var version int64
	err := tx.QueryRow(ctx, `SELECT version FROM orders WHERE id = $1`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("order", id)
	}
	if err != nil {
		return fmt.Errorf("check order version: %w", err)
	}
	return apperrors.Conflict("order", id)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
