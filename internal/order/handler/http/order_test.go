package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eloritzkovitz/voltrico/internal/order/domain"
	"github.com/eloritzkovitz/voltrico/internal/order/service"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/health"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

type fakeOrderRepo struct {
	orders map[string]*domain.Order
	events []*outbox.Row
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrderRepo) Create(_ context.Context, o *domain.Order, event *outbox.Row) error {
	cp := *o
	f.orders[o.ID] = &cp
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOrderRepo) Update(_ context.Context, o *domain.Order, event *outbox.Row) error {
	if _, ok := f.orders[o.ID]; !ok {
		return apperrors.NotFound("order", o.ID)
	}
	cp := *o
	f.orders[o.ID] = &cp
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOrderRepo) Delete(_ context.Context, id string, version int64, event *outbox.Row) error {
	existing, ok := f.orders[id]
	if !ok {
		return apperrors.NotFound("order", id)
	}
	if existing.Version != version {
		return apperrors.Conflict("order", id)
	}
	delete(f.orders, id)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	cp := *o
	return &cp, nil
}

func setupRouter(t *testing.T) (http.Handler, *fakeOrderRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeOrderRepo()
	svc := service.NewOrderService(repo, logger)
	return NewRouter(svc, health.NewHandler(), logger), repo
}

func createOrder(t *testing.T, router http.Handler) domain.Order {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders",
		bytes.NewBufferString(`{"customerId":"cust-1","productId":"prod-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestCreateOrder_Created(t *testing.T) {
	router, repo := setupRouter(t)

	order := createOrder(t, router)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Len(t, repo.events, 1)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing customer", `{"productId":"prod-1"}`},
		{"missing product", `{"customerId":"cust-1"}`},
		{"malformed json", `{"customerId":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateOrderStatus_OK(t *testing.T) {
	router, _ := setupRouter(t)
	order := createOrder(t, router)

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID+"/status",
		bytes.NewBufferString(`{"status":"shipped"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.OrderStatusShipped, resp.Data.Status)
	assert.Equal(t, int64(2), resp.Data.Version)
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	router, _ := setupRouter(t)
	order := createOrder(t, router)

	req := httptest.NewRequest(http.MethodPut, "/orders/"+order.ID+"/status",
		bytes.NewBufferString(`{"status":"teleported"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteOrder_OK(t *testing.T) {
	router, repo := setupRouter(t)
	order := createOrder(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/orders/"+order.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, repo.orders)
	assert.Len(t, repo.events, 2)
}
