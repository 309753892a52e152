package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/httputil"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
	"github.com/eloritzkovitz/voltrico/internal/search/service"
)

// SearchHandler handles HTTP requests for the search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// SearchProducts handles GET /search/products.
func (h *SearchHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := &domain.ProductQuery{
		Query:  strings.TrimSpace(params.Get("query")),
		SortBy: params.Get("sortBy"),
		Order:  params.Get("order"),
	}

	if v := params.Get("category"); v != "" {
		query.Category = &v
	}
	if v := params.Get("priceMin"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			httputil.WriteError(w, r, apperrors.InvalidInput("priceMin must be a non-negative number"), h.logger)
			return
		}
		query.PriceMin = &price
	}
	if v := params.Get("priceMax"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			httputil.WriteError(w, r, apperrors.InvalidInput("priceMax must be a non-negative number"), h.logger)
			return
		}
		query.PriceMax = &price
	}

	var ok bool
	if query.Page, query.Limit, ok = parsePaging(w, r, params.Get("page"), params.Get("limit"), h.logger); !ok {
		return
	}

	result, err := h.service.SearchProducts(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SearchOrders handles GET /search/orders.
func (h *SearchHandler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := &domain.OrderQuery{
		SortBy: params.Get("sortBy"),
		Order:  params.Get("order"),
	}

	if v := params.Get("status"); v != "" {
		query.Status = &v
	}
	if v := params.Get("customerId"); v != "" {
		query.CustomerID = &v
	}
	if v := params.Get("dateFrom"); v != "" {
		ts, err := parseDate(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("dateFrom must be an RFC3339 timestamp or YYYY-MM-DD date"), h.logger)
			return
		}
		query.DateFrom = &ts
	}
	if v := params.Get("dateTo"); v != "" {
		ts, err := parseDate(v)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("dateTo must be an RFC3339 timestamp or YYYY-MM-DD date"), h.logger)
			return
		}
		query.DateTo = &ts
	}

	var ok bool
	if query.Page, query.Limit, ok = parsePaging(w, r, params.Get("page"), params.Get("limit"), h.logger); !ok {
		return
	}

	result, err := h.service.SearchOrders(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Reindex handles POST /search/reindex. The rebuild runs in the background;
// the request is acknowledged immediately.
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx := context.Background()
		if err := h.service.Reindex(ctx); err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed", slog.String("error", err.Error()))
		}
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}

// parsePaging parses page and limit. Non-numeric values are client errors;
// out-of-range numeric values are left for the service to clamp.
func parsePaging(w http.ResponseWriter, r *http.Request, pageStr, limitStr string, logger *slog.Logger) (page, limit int, ok bool) {
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("page must be an integer"), logger)
			return 0, 0, false
		}
		page = p
	}
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("limit must be an integer"), logger)
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

func parseDate(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", v)
}
