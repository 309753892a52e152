// Package repository defines the persistence interfaces for the order
// service. Mutations take the outbox row for the resulting change event so
// implementations can commit both in one transaction.
package repository

import (
	"context"

	"github.com/eloritzkovitz/voltrico/internal/order/domain"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create inserts the order and its change event atomically.
	Create(ctx context.Context, o *domain.Order, event *outbox.Row) error

	// Update writes the order at its new version and inserts the change event
	// atomically. The row is matched on id and the previous version; a
	// concurrent writer gets ErrConflict, a missing row ErrNotFound.
	Update(ctx context.Context, o *domain.Order, event *outbox.Row) error

	// Delete removes the order at the given version and inserts the change
	// event atomically. The version guard keeps the delete event's version
	// from colliding with a concurrent update's; a mismatch is ErrConflict.
	Delete(ctx context.Context, id string, version int64, event *outbox.Row) error

	GetByID(ctx context.Context, id string) (*domain.Order, error)
}
