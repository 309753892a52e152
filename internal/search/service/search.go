package service

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
	"github.com/eloritzkovitz/voltrico/internal/search/engine"
)

// CatalogClient fetches product pages from the catalog service. Used by the
// reindex path.
type CatalogClient interface {
	ListProducts(ctx context.Context, page, limit int) ([]domain.ProductDocument, int, error)
}

// SearchService implements the business logic for search operations: query
// normalization and validation, versioned index writes, and full reindexing.
type SearchService struct {
	engine  engine.SearchEngine
	catalog CatalogClient
	logger  *slog.Logger
}

// NewSearchService creates a new search service. catalog may be nil when the
// reindex endpoint is not exposed.
func NewSearchService(eng engine.SearchEngine, catalog CatalogClient, logger *slog.Logger) *SearchService {
	return &SearchService{
		engine:  eng,
		catalog: catalog,
		logger:  logger,
	}
}

// UpsertProduct writes a product document into the index. A stale version is
// treated as success: the index already reflects a newer state.
func (s *SearchService) UpsertProduct(ctx context.Context, doc *domain.ProductDocument) error {
	if doc.ID == "" {
		return apperrors.InvalidInput("product document id is required")
	}

	err := s.engine.IndexProduct(ctx, doc)
	if err == engine.ErrStale {
		s.logger.InfoContext(ctx, "skipped stale product write",
			slog.String("product_id", doc.ID),
			slog.Int64("version", doc.Version),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	s.logger.InfoContext(ctx, "product indexed",
		slog.String("product_id", doc.ID),
		slog.Int64("version", doc.Version),
	)
	return nil
}

// DeleteProduct removes a product from the index.
func (s *SearchService) DeleteProduct(ctx context.Context, id string, version int64) error {
	if id == "" {
		return apperrors.InvalidInput("product id is required")
	}

	err := s.engine.DeleteProduct(ctx, id, version)
	if err == engine.ErrStale {
		s.logger.InfoContext(ctx, "skipped stale product delete",
			slog.String("product_id", id),
			slog.Int64("version", version),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted from index",
		slog.String("product_id", id),
	)
	return nil
}

// UpsertOrder writes an order document into the index.
func (s *SearchService) UpsertOrder(ctx context.Context, doc *domain.OrderDocument) error {
	if doc.ID == "" {
		return apperrors.InvalidInput("order document id is required")
	}

	err := s.engine.IndexOrder(ctx, doc)
	if err == engine.ErrStale {
		s.logger.InfoContext(ctx, "skipped stale order write",
			slog.String("order_id", doc.ID),
			slog.Int64("version", doc.Version),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	s.logger.InfoContext(ctx, "order indexed",
		slog.String("order_id", doc.ID),
		slog.Int64("version", doc.Version),
	)
	return nil
}

// DeleteOrder removes an order from the index.
func (s *SearchService) DeleteOrder(ctx context.Context, id string, version int64) error {
	if id == "" {
		return apperrors.InvalidInput("order id is required")
	}

	err := s.engine.DeleteOrder(ctx, id, version)
	if err == engine.ErrStale {
		s.logger.InfoContext(ctx, "skipped stale order delete",
			slog.String("order_id", id),
			slog.Int64("version", version),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.InfoContext(ctx, "order deleted from index",
		slog.String("order_id", id),
	)
	return nil
}

// SearchProducts validates, normalizes and executes a product search.
func (s *SearchService) SearchProducts(ctx context.Context, query *domain.ProductQuery) (*domain.ProductResult, error) {
	normalizePaging(&query.Page, &query.Limit)

	if query.SortBy == "" {
		query.SortBy = domain.DefaultProductSort
	} else if !domain.ValidProductSort(query.SortBy) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("sortBy must be one of: name, price, category; got %q", query.SortBy))
	}
	if query.Order == "" {
		query.Order = domain.OrderAsc
	} else if !domain.ValidOrder(query.Order) {
		return nil, apperrors.InvalidInput("order must be asc or desc")
	}
	if query.PriceMin != nil && query.PriceMax != nil && *query.PriceMin > *query.PriceMax {
		return nil, apperrors.InvalidInput("priceMin must not exceed priceMax")
	}

	result, err := s.engine.SearchProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	s.logger.DebugContext(ctx, "product search executed",
		slog.String("query", query.Query),
		slog.Int("total", result.Total),
	)
	return result, nil
}

// SearchOrders validates, normalizes and executes an order search.
func (s *SearchService) SearchOrders(ctx context.Context, query *domain.OrderQuery) (*domain.OrderResult, error) {
	normalizePaging(&query.Page, &query.Limit)

	if query.SortBy == "" {
		query.SortBy = domain.DefaultOrderSort
	} else if !domain.ValidOrderSort(query.SortBy) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("sortBy must be one of: date, status, customerId; got %q", query.SortBy))
	}
	if query.Order == "" {
		query.Order = domain.OrderDesc
	} else if !domain.ValidOrder(query.Order) {
		return nil, apperrors.InvalidInput("order must be asc or desc")
	}
	if query.DateFrom != nil && query.DateTo != nil && query.DateFrom.After(*query.DateTo) {
		return nil, apperrors.InvalidInput("dateFrom must not be after dateTo")
	}

	result, err := s.engine.SearchOrders(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}

	s.logger.DebugContext(ctx, "order search executed",
		slog.Int("total", result.Total),
	)
	return result, nil
}

// normalizePaging applies the 1-indexed page floor, the default limit, and the
// limit ceiling. Out-of-range values are clamped rather than rejected.
func normalizePaging(page, limit *int) {
	if *page < 1 {
		*page = 1
	}
	if *limit < 1 {
		*limit = domain.DefaultLimit
	}
	if *limit > domain.MaxLimit {
		*limit = domain.MaxLimit
	}
}

// reindexPageSize is the catalog page size used during a full reindex.
const reindexPageSize = 100

// Reindex rebuilds the products index by paging the catalog service's product
// list and bulk-indexing every page. Live consumer writes win any version
// conflicts, so reindexing is safe while events keep flowing.
func (s *SearchService) Reindex(ctx context.Context) error {
	if s.catalog == nil {
		return apperrors.Unavailable("catalog", fmt.Errorf("no catalog client configured"))
	}

	indexed := 0
	for page := 1; ; page++ {
		docs, total, err := s.catalog.ListProducts(ctx, page, reindexPageSize)
		if err != nil {
			return fmt.Errorf("reindex: fetch catalog page %d: %w", page, err)
		}
		if len(docs) == 0 {
			break
		}

		if err := s.engine.BulkIndexProducts(ctx, docs); err != nil {
			return fmt.Errorf("reindex: bulk index page %d: %w", page, err)
		}
		indexed += len(docs)

		if indexed >= total {
			break
		}
	}

	s.logger.InfoContext(ctx, "reindex completed", slog.Int("indexed", indexed))
	return nil
}
