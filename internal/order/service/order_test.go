package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eloritzkovitz/voltrico/internal/order/domain"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	pkgkafka "github.com/eloritzkovitz/voltrico/pkg/kafka"
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
	existing, ok := f.orders[o.ID]
	if !ok {
		return apperrors.NotFound("order", o.ID)
	}
	if existing.Version != o.Version-1 {
		return apperrors.Conflict("order", o.ID)
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

func (f *fakeOrderRepo) lastEvent(t *testing.T) *pkgkafka.Event {
	t.Helper()
	require.NotEmpty(t, f.events)
	event, err := pkgkafka.UnmarshalEvent(f.events[len(f.events)-1].Payload)
	require.NoError(t, err)
	return event
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateOrder_RecordsOutboxEvent(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo, testLogger())

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: "cust-1",
		ProductID:  "prod-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, int64(1), order.Version)
	assert.Equal(t, order.ID, order.OrderID)
	assert.False(t, order.Date.IsZero())

	require.Len(t, repo.events, 1)
	assert.Equal(t, pkgkafka.TopicOrderEvents, repo.events[0].Topic)
	assert.Equal(t, pkgkafka.EventOrderCreated, repo.events[0].EventType)

	var snapshot domain.Order
	require.NoError(t, repo.lastEvent(t).UnmarshalData(&snapshot))
	assert.Equal(t, "cust-1", snapshot.CustomerID)
}

func TestCreateOrder_Validation(t *testing.T) {
	svc := NewOrderService(newFakeOrderRepo(), testLogger())

	_, err := svc.CreateOrder(context.Background(), &CreateOrderInput{ProductID: "p"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreateOrder(context.Background(), &CreateOrderInput{CustomerID: "c"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateOrderStatus_BumpsVersion(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo, testLogger())

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: "cust-1",
		ProductID:  "prod-1",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	event := repo.lastEvent(t)
	assert.Equal(t, pkgkafka.EventOrderUpdated, event.Type)
	assert.Equal(t, int64(2), event.Version)
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	svc := NewOrderService(newFakeOrderRepo(), testLogger())

	_, err := svc.UpdateOrderStatus(context.Background(), "o1", "teleported")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestDeleteOrder_EmitsNextVersion(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo, testLogger())

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: "cust-1",
		ProductID:  "prod-1",
	})
	require.NoError(t, err)

	_, err = svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), order.ID))

	event := repo.lastEvent(t)
	assert.Equal(t, pkgkafka.EventOrderDeleted, event.Type)
	assert.Equal(t, int64(3), event.Version)

	_, err = svc.GetOrder(context.Background(), order.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteOrder_ConcurrentUpdateConflicts(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderService(repo, testLogger())

	order, err := svc.CreateOrder(context.Background(), &CreateOrderInput{
		CustomerID: "cust-1",
		ProductID:  "prod-1",
	})
	require.NoError(t, err)

	// A status transition commits version 2 after the delete path has read
	// version 1.
	repo.orders[order.ID].Version = 2

	err = svc.DeleteOrder(context.Background(), order.ID)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	assert.Len(t, repo.events, 1)
	_, err = svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
}
