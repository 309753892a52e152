package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eloritzkovitz/voltrico/internal/order/domain"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

func testOrder() *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:         "order-1",
		OrderID:    "order-1",
		CustomerID: "cust-1",
		ProductID:  "prod-1",
		Status:     domain.OrderStatusPending,
		Date:       now,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func testEvent(version int64) *outbox.Row {
	return &outbox.Row{
		EventID:   "evt-1",
		Topic:     "order_events",
		EventType: "ORDER_CREATED",
		EntityID:  "order-1",
		Version:   version,
		Payload:   []byte(`{}`),
	}
}

func TestOrderRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := testOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.OrderID, o.CustomerID, o.ProductID, o.Status, o.Date, o.Version, o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs("evt-1", "order_events", "ORDER_CREATED", "order-1", int64(1), []byte(`{}`), outbox.StatusPending).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	require.NoError(t, repo.Create(context.Background(), o, testEvent(1)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := testOrder()
	o.Version = 2
	o.Status = domain.OrderStatusShipped

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs(o.CustomerID, o.ProductID, o.Status, o.Date, o.Version, o.UpdatedAt, o.ID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT version FROM orders").
		WithArgs(o.ID).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(3)))
	mock.ExpectRollback()

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	err = repo.Update(context.Background(), o, testEvent(2))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := testOrder()
	o.Version = 2

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT version FROM orders").
		WithArgs(o.ID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	err = repo.Update(context.Background(), o, testEvent(2))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Delete_RollsBackOnOutboxFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders").
		WithArgs("order-1", int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	err = repo.Delete(context.Background(), "order-1", 1, testEvent(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Delete_VersionConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// The row exists at version 2; a delete that read version 1 loses.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM orders").
		WithArgs("order-1", int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT version FROM orders").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(2)))
	mock.ExpectRollback()

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	err = repo.Delete(context.Background(), "order-1", 1, testEvent(2))
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "order_id", "customer_id", "product_id", "status", "date", "version", "created_at", "updated_at",
	}).AddRow("order-1", "order-1", "cust-1", "prod-1", "pending", now, int64(1), now, now)

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs("order-1").
		WillReturnRows(rows)

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	order, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, "cust-1", order.CustomerID)
	assert.Equal(t, int64(1), order.Version)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewOrderRepository(mock, outbox.NewPostgresStore(mock, time.Minute))
	_, err = repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
