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

	"github.com/eloritzkovitz/voltrico/internal/catalog/domain"
	"github.com/eloritzkovitz/voltrico/internal/catalog/repository"
	"github.com/eloritzkovitz/voltrico/internal/catalog/service"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/health"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

type fakeProductRepo struct {
	products map[string]*domain.Product
	events   []*outbox.Row
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[string]*domain.Product)}
}

func (f *fakeProductRepo) Create(_ context.Context, p *domain.Product, event *outbox.Row) error {
	cp := *p
	f.products[p.ID] = &cp
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *domain.Product, event *outbox.Row) error {
	if _, ok := f.products[p.ID]; !ok {
		return apperrors.NotFound("product", p.ID)
	}
	cp := *p
	f.products[p.ID] = &cp
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProductRepo) Delete(_ context.Context, id string, version int64, event *outbox.Row) error {
	existing, ok := f.products[id]
	if !ok {
		return apperrors.NotFound("product", id)
	}
	if existing.Version != version {
		return apperrors.Conflict("product", id)
	}
	delete(f.products, id)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) List(_ context.Context, _ repository.ProductFilter) ([]domain.Product, int, error) {
	out := []domain.Product{}
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func setupRouter(t *testing.T) (http.Handler, *fakeProductRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeProductRepo()
	svc := service.NewProductService(repo, logger)
	return NewRouter(svc, health.NewHandler(), logger), repo
}

func TestCreateProduct_Created(t *testing.T) {
	router, repo := setupRouter(t)

	body := `{"name":"Electric Kettle","brand":"Acme","price":29.99,"category":"kitchen"}`
	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, int64(1), resp.Data.Version)
	assert.Len(t, repo.events, 1)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"price":10}`},
		{"negative price", `{"name":"Kettle","price":-5}`},
		{"bad image url", `{"name":"Kettle","price":5,"imageURL":"not a url"}`},
		{"malformed json", `{"name":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProduct_ReturnsNewVersion(t *testing.T) {
	router, _ := setupRouter(t)

	create := httptest.NewRequest(http.MethodPost, "/products",
		bytes.NewBufferString(`{"name":"Electric Kettle","price":29.99}`))
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, create)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	update := httptest.NewRequest(http.MethodPut, "/products/"+created.Data.ID,
		bytes.NewBufferString(`{"price":24.99}`))
	updateRec := httptest.NewRecorder()
	router.ServeHTTP(updateRec, update)
	require.Equal(t, http.StatusOK, updateRec.Code)

	var updated struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(updateRec.Body.Bytes(), &updated))
	assert.Equal(t, int64(2), updated.Data.Version)
	assert.Equal(t, 24.99, updated.Data.Price)
}

func TestDeleteProduct_OK(t *testing.T) {
	router, repo := setupRouter(t)

	create := httptest.NewRequest(http.MethodPost, "/products",
		bytes.NewBufferString(`{"name":"Electric Kettle","price":29.99}`))
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, create)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created struct {
		Data domain.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	del := httptest.NewRequest(http.MethodDelete, "/products/"+created.Data.ID, nil)
	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, del)
	require.Equal(t, http.StatusOK, delRec.Code)

	// Create + delete events recorded.
	assert.Len(t, repo.events, 2)
	assert.Empty(t, repo.products)
}

func TestListProducts_Envelope(t *testing.T) {
	router, _ := setupRouter(t)

	create := httptest.NewRequest(http.MethodPost, "/products",
		bytes.NewBufferString(`{"name":"Electric Kettle","price":29.99}`))
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, create)
	require.Equal(t, http.StatusCreated, createRec.Code)

	req := httptest.NewRequest(http.MethodGet, "/products?page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Products []domain.Product `json:"products"`
			Total    int              `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Products, 1)
	assert.Equal(t, "Electric Kettle", resp.Data.Products[0].Name)
}

func TestListProducts_BadPaging(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products?page=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
