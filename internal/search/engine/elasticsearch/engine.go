package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
	"github.com/eloritzkovitz/voltrico/internal/search/engine"
)

// Engine is an Elasticsearch-backed implementation of the SearchEngine
// interface. Writes use external versioning keyed on the entity's change
// sequence, so a replayed or reordered event can never overwrite a newer
// document.
type Engine struct {
	client        *elasticsearch.Client
	productsIndex string
	ordersIndex   string
	logger        *slog.Logger
}

type esSearchResponse[T any] struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source T `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine connected to the given URL and ensures
// both indices exist. Empty index names fall back to the defaults.
func New(esURL, productsIndex, ordersIndex string, logger *slog.Logger) (*Engine, error) {
	if productsIndex == "" {
		productsIndex = DefaultProductsIndex
	}
	if ordersIndex == "" {
		ordersIndex = DefaultOrdersIndex
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:        client,
		productsIndex: productsIndex,
		ordersIndex:   ordersIndex,
		logger:        logger,
	}

	if err := e.ensureIndex(productsIndex, productsMapping()); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure products index: %w", err)
	}
	if err := e.ensureIndex(ordersIndex, ordersMapping()); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure orders index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *Engine) ensureIndex(name, mapping string) error {
	res, err := e.client.Indices.Exists([]string{name})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", name)
		return nil
	}

	res, err = e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("create index %s: %s", name, decodeError(res.Body, res.Status()))
	}

	e.logger.Info("elasticsearch index created", "index", name)
	return nil
}

// wireVersion narrows an entity version to the int the client options take.
// External versions must be non-negative, and on 32-bit platforms int cannot
// hold the full int64 range.
func wireVersion(version int64) (int, error) {
	if version < 0 || version > math.MaxInt {
		return 0, fmt.Errorf("version %d outside representable range", version)
	}
	return int(version), nil
}

func decodeError(body io.Reader, status string) string {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Sprintf("%s: %s", errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Sprintf("unexpected status %s", status)
}

// IndexProduct adds or replaces a product document with external versioning.
func (e *Engine) IndexProduct(ctx context.Context, doc *domain.ProductDocument) error {
	return e.index(ctx, e.productsIndex, doc.ID, doc.Version, doc)
}

// IndexOrder adds or replaces an order document with external versioning.
func (e *Engine) IndexOrder(ctx context.Context, doc *domain.OrderDocument) error {
	return e.index(ctx, e.ordersIndex, doc.ID, doc.Version, doc)
}

func (e *Engine) index(ctx context.Context, indexName, id string, version int64, doc any) error {
	v, err := wireVersion(version)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	res, err := e.client.Index(
		indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(id),
		e.client.Index.WithVersion(v),
		e.client.Index.WithVersionType("external"),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// 409 means the index holds an equal or newer version.
	if res.StatusCode == 409 {
		return engine.ErrStale
	}
	if res.IsError() {
		return fmt.Errorf("elasticsearch index: %s", decodeError(res.Body, res.Status()))
	}

	e.logger.Debug("indexed document", "index", indexName, "id", id, "version", version)
	return nil
}

// DeleteProduct removes a product document with external versioning.
func (e *Engine) DeleteProduct(ctx context.Context, id string, version int64) error {
	return e.delete(ctx, e.productsIndex, id, version)
}

// DeleteOrder removes an order document with external versioning.
func (e *Engine) DeleteOrder(ctx context.Context, id string, version int64) error {
	return e.delete(ctx, e.ordersIndex, id, version)
}

func (e *Engine) delete(ctx context.Context, indexName, id string, version int64) error {
	v, err := wireVersion(version)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}

	res, err := e.client.Delete(
		indexName,
		id,
		e.client.Delete.WithVersion(v),
		e.client.Delete.WithVersionType("external"),
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 409 {
		return engine.ErrStale
	}
	// 404 means the document was never indexed; Elasticsearch still records
	// the delete version as a tombstone so a later out-of-order create is
	// rejected as stale.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete: %s", decodeError(res.Body, res.Status()))
	}

	e.logger.Debug("deleted document", "index", indexName, "id", id, "version", version)
	return nil
}

// SearchProducts executes a product search query.
func (e *Engine) SearchProducts(ctx context.Context, query *domain.ProductQuery) (*domain.ProductResult, error) {
	esQuery := buildProductQuery(query)

	var esResp esSearchResponse[domain.ProductDocument]
	if err := e.search(ctx, e.productsIndex, esQuery, &esResp); err != nil {
		return nil, err
	}

	products := make([]domain.ProductDocument, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		products = append(products, hit.Source)
	}

	return &domain.ProductResult{
		Total:    esResp.Hits.Total.Value,
		Products: products,
		Page:     query.Page,
		Limit:    query.Limit,
	}, nil
}

// SearchOrders executes an order search query.
func (e *Engine) SearchOrders(ctx context.Context, query *domain.OrderQuery) (*domain.OrderResult, error) {
	esQuery := buildOrderQuery(query)

	var esResp esSearchResponse[domain.OrderDocument]
	if err := e.search(ctx, e.ordersIndex, esQuery, &esResp); err != nil {
		return nil, err
	}

	orders := make([]domain.OrderDocument, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		orders = append(orders, hit.Source)
	}

	return &domain.OrderResult{
		Total:  esResp.Hits.Total.Value,
		Orders: orders,
		Page:   query.Page,
		Limit:  query.Limit,
	}, nil
}

func (e *Engine) search(ctx context.Context, indexName string, esQuery map[string]any, out any) error {
	data, err := json.Marshal(esQuery)
	if err != nil {
		return fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch search: %s", decodeError(res.Body, res.Status()))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("elasticsearch search: decode response: %w", err)
	}
	return nil
}

func buildProductQuery(query *domain.ProductQuery) map[string]any {
	var must any
	if query.Query != "" {
		must = map[string]any{
			"match": map[string]any{"name": query.Query},
		}
	} else {
		must = map[string]any{"match_all": map[string]any{}}
	}

	var filters []any
	if query.Category != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"category": *query.Category},
		})
	}
	if query.PriceMin != nil || query.PriceMax != nil {
		rangeFilter := map[string]any{}
		if query.PriceMin != nil {
			rangeFilter["gte"] = *query.PriceMin
		}
		if query.PriceMax != nil {
			rangeFilter["lte"] = *query.PriceMax
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"price": rangeFilter},
		})
	}

	// Sorting on the analyzed name field needs its keyword subfield.
	sortField := query.SortBy
	if sortField == "name" {
		sortField = "name.keyword"
	}

	return buildQuery(must, filters, sortField, query.Order, query.Page, query.Limit)
}

func buildOrderQuery(query *domain.OrderQuery) map[string]any {
	must := any(map[string]any{"match_all": map[string]any{}})

	var filters []any
	if query.Status != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"status": *query.Status},
		})
	}
	if query.CustomerID != nil {
		filters = append(filters, map[string]any{
			"term": map[string]any{"customerId": *query.CustomerID},
		})
	}
	if query.DateFrom != nil || query.DateTo != nil {
		rangeFilter := map[string]any{}
		if query.DateFrom != nil {
			rangeFilter["gte"] = query.DateFrom.Format(time.RFC3339)
		}
		if query.DateTo != nil {
			rangeFilter["lte"] = query.DateTo.Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"date": rangeFilter},
		})
	}

	return buildQuery(must, filters, query.SortBy, query.Order, query.Page, query.Limit)
}

func buildQuery(must any, filters []any, sortField, order string, page, limit int) map[string]any {
	boolQuery := map[string]any{
		"must": []any{must},
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	if page < 1 {
		page = 1
	}

	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  (page - 1) * limit,
		"size":  limit,
		// Secondary sort on id keeps pagination stable across equal keys.
		"sort": []any{
			map[string]any{sortField: map[string]any{"order": order}},
			map[string]any{"id": map[string]any{"order": "asc"}},
		},
		"track_total_hits": true,
	}
}

// BulkIndexProducts adds or replaces multiple product documents using the
// bulk NDJSON API with external versioning per document.
func (e *Engine) BulkIndexProducts(ctx context.Context, docs []domain.ProductDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i := range docs {
		action := map[string]any{
			"index": map[string]any{
				"_index":       e.productsIndex,
				"_id":          docs[i].ID,
				"version":      docs[i].Version,
				"version_type": "external",
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.productsIndex),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch bulk index: %s", decodeError(res.Body, res.Status()))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			// Version conflicts during reindex mean the live consumer already
			// wrote something newer; that is fine.
			if item.Index.Status == 409 {
				continue
			}
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		if len(errMsgs) > 0 {
			return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
		}
	}

	e.logger.Info("bulk indexed products", "count", len(docs))
	return nil
}
