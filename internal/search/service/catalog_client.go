package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/eloritzkovitz/voltrico/pkg/httpclient"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
)

// HTTPCatalogClient fetches product pages from the catalog service's list
// endpoint through a circuit-breaker protected HTTP client.
type HTTPCatalogClient struct {
	baseURL string
	client  *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewHTTPCatalogClient creates a catalog client for the given base URL.
func NewHTTPCatalogClient(baseURL string, client *httpclient.CircuitBreakerClient, logger *slog.Logger) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

type listProductsResponse struct {
	Data struct {
		Products []domain.ProductDocument `json:"products"`
		Total    int                      `json:"total"`
	} `json:"data"`
}

// ListProducts fetches one page of products from the catalog service.
func (c *HTTPCatalogClient) ListProducts(ctx context.Context, page, limit int) ([]domain.ProductDocument, int, error) {
	u := fmt.Sprintf("%s/products?page=%s&limit=%s",
		c.baseURL,
		url.QueryEscape(fmt.Sprintf("%d", page)),
		url.QueryEscape(fmt.Sprintf("%d", limit)),
	)

	resp, err := c.client.Get(ctx, u)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog list products: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return nil, 0, fmt.Errorf("catalog list products: unexpected status %d", resp.StatusCode)
	}

	var out listProductsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("catalog list products: decode response: %w", err)
	}

	return out.Data.Products, out.Data.Total, nil
}
