package engine

import (
	"context"
	"errors"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
)

// ErrStale is returned by versioned writes when the index already holds a
// newer version of the entity. Callers treat it as success: the event is
// obsolete, not failed.
var ErrStale = errors.New("stale write: index holds a newer version")

// SearchEngine indexes and searches product and order documents.
// All writes are versioned: a write whose version is not strictly greater
// than the indexed one returns ErrStale.
type SearchEngine interface {
	// IndexProduct adds or replaces a product document.
	IndexProduct(ctx context.Context, doc *domain.ProductDocument) error

	// DeleteProduct removes a product document. Deleting an absent document
	// is not an error.
	DeleteProduct(ctx context.Context, id string, version int64) error

	// IndexOrder adds or replaces an order document.
	IndexOrder(ctx context.Context, doc *domain.OrderDocument) error

	// DeleteOrder removes an order document.
	DeleteOrder(ctx context.Context, id string, version int64) error

	// SearchProducts executes a product search query.
	SearchProducts(ctx context.Context, query *domain.ProductQuery) (*domain.ProductResult, error)

	// SearchOrders executes an order search query.
	SearchOrders(ctx context.Context, query *domain.OrderQuery) (*domain.OrderResult, error)

	// BulkIndexProducts adds or replaces multiple product documents. Used by
	// the reindex path.
	BulkIndexProducts(ctx context.Context, docs []domain.ProductDocument) error
}
