// Package repository defines the persistence interfaces for the catalog
// service. Mutations take the outbox row for the resulting change event so
// implementations can commit both in one transaction.
package repository

import (
	"context"

	"github.com/eloritzkovitz/voltrico/internal/catalog/domain"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

// ProductFilter holds optional filters for listing products.
type ProductFilter struct {
	Category *string
	Search   *string

	Page  int
	Limit int
}

// ProductRepository defines the persistence operations for products.
type ProductRepository interface {
	// Create inserts the product and its change event atomically.
	Create(ctx context.Context, p *domain.Product, event *outbox.Row) error

	// Update writes the product at its new version and inserts the change
	// event atomically. The row is matched on id and the previous version;
	// a concurrent writer gets ErrConflict, a missing row ErrNotFound.
	Update(ctx context.Context, p *domain.Product, event *outbox.Row) error

	// Delete removes the product at the given version and inserts the change
	// event atomically. The version guard keeps the delete event's version
	// from colliding with a concurrent update's; a mismatch is ErrConflict.
	Delete(ctx context.Context, id string, version int64, event *outbox.Row) error

	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}
