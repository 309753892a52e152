// Package memory provides an in-memory SearchEngine used by unit tests and
// as a dev fallback. It mirrors the Elasticsearch engine's semantics,
// including external-version fencing and delete tombstones.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
	"github.com/eloritzkovitz/voltrico/internal/search/engine"
)

// Engine is an in-memory implementation of the SearchEngine interface.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	products map[string]domain.ProductDocument
	orders   map[string]domain.OrderDocument

	// tombstones records the version of the last delete per document id, so
	// an out-of-order create arriving after its delete is fenced out.
	productTombstones map[string]int64
	orderTombstones   map[string]int64
}

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		products:          make(map[string]domain.ProductDocument),
		orders:            make(map[string]domain.OrderDocument),
		productTombstones: make(map[string]int64),
		orderTombstones:   make(map[string]int64),
	}
}

// IndexProduct adds or replaces a product document unless the index already
// holds a newer version.
func (e *Engine) IndexProduct(_ context.Context, doc *domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ts, ok := e.productTombstones[doc.ID]; ok && ts >= doc.Version {
		return engine.ErrStale
	}
	if existing, ok := e.products[doc.ID]; ok && existing.Version >= doc.Version {
		return engine.ErrStale
	}

	e.products[doc.ID] = *doc
	return nil
}

// DeleteProduct removes a product document and records a tombstone.
func (e *Engine) DeleteProduct(_ context.Context, id string, version int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.products[id]; ok && existing.Version >= version {
		return engine.ErrStale
	}
	if ts, ok := e.productTombstones[id]; ok && ts >= version {
		return engine.ErrStale
	}

	delete(e.products, id)
	e.productTombstones[id] = version
	return nil
}

// IndexOrder adds or replaces an order document unless the index already
// holds a newer version.
func (e *Engine) IndexOrder(_ context.Context, doc *domain.OrderDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ts, ok := e.orderTombstones[doc.ID]; ok && ts >= doc.Version {
		return engine.ErrStale
	}
	if existing, ok := e.orders[doc.ID]; ok && existing.Version >= doc.Version {
		return engine.ErrStale
	}

	e.orders[doc.ID] = *doc
	return nil
}

// DeleteOrder removes an order document and records a tombstone.
func (e *Engine) DeleteOrder(_ context.Context, id string, version int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.orders[id]; ok && existing.Version >= version {
		return engine.ErrStale
	}
	if ts, ok := e.orderTombstones[id]; ok && ts >= version {
		return engine.ErrStale
	}

	delete(e.orders, id)
	e.orderTombstones[id] = version
	return nil
}

// SearchProducts executes a product search query against the in-memory index.
func (e *Engine) SearchProducts(_ context.Context, query *domain.ProductQuery) (*domain.ProductResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matched := make([]domain.ProductDocument, 0)
	queryLower := strings.ToLower(query.Query)

	for _, p := range e.products {
		if !matchesProduct(p, query, queryLower) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, query.SortBy, query.Order)

	total := len(matched)
	offset, end := pageBounds(total, query.Page, query.Limit)

	return &domain.ProductResult{
		Total:    total,
		Products: matched[offset:end],
		Page:     query.Page,
		Limit:    query.Limit,
	}, nil
}

// SearchOrders executes an order search query against the in-memory index.
func (e *Engine) SearchOrders(_ context.Context, query *domain.OrderQuery) (*domain.OrderResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matched := make([]domain.OrderDocument, 0)

	for _, o := range e.orders {
		if !matchesOrder(o, query) {
			continue
		}
		matched = append(matched, o)
	}

	sortOrders(matched, query.SortBy, query.Order)

	total := len(matched)
	offset, end := pageBounds(total, query.Page, query.Limit)

	return &domain.OrderResult{
		Total:  total,
		Orders: matched[offset:end],
		Page:   query.Page,
		Limit:  query.Limit,
	}, nil
}

// BulkIndexProducts adds or replaces multiple product documents. Stale
// documents are silently skipped, matching the Elasticsearch bulk behavior.
func (e *Engine) BulkIndexProducts(ctx context.Context, docs []domain.ProductDocument) error {
	for i := range docs {
		if err := e.IndexProduct(ctx, &docs[i]); err != nil && err != engine.ErrStale {
			return err
		}
	}
	return nil
}

func pageBounds(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

func matchesProduct(p domain.ProductDocument, query *domain.ProductQuery, queryLower string) bool {
	if queryLower != "" {
		if !strings.Contains(strings.ToLower(p.Name), queryLower) {
			return false
		}
	}
	if query.Category != nil && p.Category != *query.Category {
		return false
	}
	if query.PriceMin != nil && p.Price < *query.PriceMin {
		return false
	}
	if query.PriceMax != nil && p.Price > *query.PriceMax {
		return false
	}
	return true
}

func matchesOrder(o domain.OrderDocument, query *domain.OrderQuery) bool {
	if query.Status != nil && o.Status != *query.Status {
		return false
	}
	if query.CustomerID != nil && o.CustomerID != *query.CustomerID {
		return false
	}
	if query.DateFrom != nil && o.Date.Before(*query.DateFrom) {
		return false
	}
	if query.DateTo != nil && o.Date.After(*query.DateTo) {
		return false
	}
	return true
}

func sortProducts(products []domain.ProductDocument, sortBy, order string) {
	desc := order == domain.OrderDesc

	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "price":
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case "category":
			if a.Category != b.Category {
				return a.Category < b.Category
			}
		default: // name
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		}
		// Tie-break on id so pagination is stable.
		return products[i].ID < products[j].ID
	})
}

func sortOrders(orders []domain.OrderDocument, sortBy, order string) {
	desc := order == domain.OrderDesc

	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if desc {
			a, b = b, a
		}
		switch sortBy {
		case "status":
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		case "customerId":
			if a.CustomerID != b.CustomerID {
				return a.CustomerID < b.CustomerID
			}
		default: // date
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		return orders[i].ID < orders[j].ID
	})
}
