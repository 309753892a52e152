package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eloritzkovitz/voltrico/internal/catalog/domain"
	"github.com/eloritzkovitz/voltrico/internal/catalog/repository"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	pkgkafka "github.com/eloritzkovitz/voltrico/pkg/kafka"
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
	if _, ok := f.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	cp := *p
	f.products[p.ID] = &cp
	f.events = append(f.events, event)
	return nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *domain.Product, event *outbox.Row) error {
	existing, ok := f.products[p.ID]
	if !ok {
		return apperrors.NotFound("product", p.ID)
	}
	if existing.Version != p.Version-1 {
		return apperrors.Conflict("product", p.ID)
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

func (f *fakeProductRepo) List(_ context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (f *fakeProductRepo) lastEvent(t *testing.T) *pkgkafka.Event {
	t.Helper()
	require.NotEmpty(t, f.events)
	event, err := pkgkafka.UnmarshalEvent(f.events[len(f.events)-1].Payload)
	require.NoError(t, err)
	return event
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateProduct_RecordsOutboxEvent(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, testLogger())

	product, err := svc.CreateProduct(context.Background(), &CreateProductInput{
		Name:     "Electric Kettle",
		Brand:    "Acme",
		Price:    29.99,
		Category: "kitchen",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, product.ID)
	assert.Equal(t, int64(1), product.Version)

	require.Len(t, repo.events, 1)
	row := repo.events[0]
	assert.Equal(t, pkgkafka.TopicProductEvents, row.Topic)
	assert.Equal(t, pkgkafka.EventProductCreated, row.EventType)
	assert.Equal(t, product.ID, row.EntityID)

	event := repo.lastEvent(t)
	assert.Equal(t, int64(1), event.Version)

	var snapshot domain.Product
	require.NoError(t, event.UnmarshalData(&snapshot))
	assert.Equal(t, "Electric Kettle", snapshot.Name)
	assert.Equal(t, 29.99, snapshot.Price)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(), testLogger())

	_, err := svc.CreateProduct(context.Background(), &CreateProductInput{Name: ""})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreateProduct(context.Background(), &CreateProductInput{Name: "Kettle", Price: -1})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateProduct_BumpsVersion(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, testLogger())

	product, err := svc.CreateProduct(context.Background(), &CreateProductInput{
		Name: "Electric Kettle", Price: 29.99,
	})
	require.NoError(t, err)

	newPrice := 24.99
	updated, err := svc.UpdateProduct(context.Background(), product.ID, &UpdateProductInput{
		Price: &newPrice,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, 24.99, updated.Price)
	assert.Equal(t, "Electric Kettle", updated.Name)

	event := repo.lastEvent(t)
	assert.Equal(t, pkgkafka.EventProductUpdated, event.Type)
	assert.Equal(t, int64(2), event.Version)

	var snapshot domain.Product
	require.NoError(t, event.UnmarshalData(&snapshot))
	assert.Equal(t, 24.99, snapshot.Price)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(), testLogger())

	name := "Kettle"
	_, err := svc.UpdateProduct(context.Background(), "missing", &UpdateProductInput{Name: &name})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteProduct_EmitsNextVersion(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, testLogger())

	product, err := svc.CreateProduct(context.Background(), &CreateProductInput{
		Name: "Electric Kettle", Price: 29.99,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), product.ID))

	event := repo.lastEvent(t)
	assert.Equal(t, pkgkafka.EventProductDeleted, event.Type)
	assert.Equal(t, int64(2), event.Version)

	var payload struct {
		ID string `json:"id"`
	}
	require.NoError(t, event.UnmarshalData(&payload))
	assert.Equal(t, product.ID, payload.ID)

	_, err = svc.GetProduct(context.Background(), product.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteProduct_ConcurrentUpdateConflicts(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, testLogger())

	product, err := svc.CreateProduct(context.Background(), &CreateProductInput{
		Name: "Electric Kettle", Price: 29.99,
	})
	require.NoError(t, err)

	// A writer commits version 2 after the delete path has read version 1.
	// Without the version guard both events would carry version 2 and the
	// search index could fence the delete as stale.
	repo.products[product.ID].Version = 2

	err = svc.DeleteProduct(context.Background(), product.ID)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	// Only the create event was recorded; the row survives.
	assert.Len(t, repo.events, 1)
	_, err = svc.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(), testLogger())

	err := svc.DeleteProduct(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestListProducts_ClampsPaging(t *testing.T) {
	repo := newFakeProductRepo()
	svc := NewProductService(repo, testLogger())

	_, _, err := svc.ListProducts(context.Background(), repository.ProductFilter{Page: -1, Limit: 5000})
	require.NoError(t, err)
}
