package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eloritzkovitz/voltrico/internal/order/domain"
	"github.com/eloritzkovitz/voltrico/internal/order/repository"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	pkgkafka "github.com/eloritzkovitz/voltrico/pkg/kafka"
	"github.com/eloritzkovitz/voltrico/pkg/logger"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

// eventSource identifies this service in emitted event envelopes.
const eventSource = "order-service"

// OrderService implements the business logic for order operations. Every
// mutation records a change event through the repository's outbox so the
// search projection converges on the committed state.
type OrderService struct {
	repo   repository.OrderRepository
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		logger: logger,
	}
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	CustomerID string
	ProductID  string
	Date       *time.Time
}

// CreateOrder creates a new pending order at version 1.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*domain.Order, error) {
	if input.CustomerID == "" {
		return nil, apperrors.InvalidInput("customer id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	now := time.Now().UTC()
	date := now
	if input.Date != nil {
		date = input.Date.UTC()
	}

	id := uuid.New().String()
	order := &domain.Order{
		ID:         id,
		OrderID:    id,
		CustomerID: input.CustomerID,
		ProductID:  input.ProductID,
		Status:     domain.OrderStatusPending,
		Date:       date,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	event, err := changeEvent(ctx, pkgkafka.EventOrderCreated, order.ID, order.Version, order)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, order, event); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("customer_id", order.CustomerID),
	)

	return order, nil
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// UpdateOrderStatus transitions an order to a new status and bumps its
// version.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if !domain.IsValidStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for update: %w", err)
	}

	order.Status = status
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	event, err := changeEvent(ctx, pkgkafka.EventOrderUpdated, order.ID, order.Version, order)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, order, event); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("status", status),
		slog.Int64("version", order.Version),
	)

	return order, nil
}

// DeleteOrder removes an order by its ID. The delete event carries the next
// version so it fences any in-flight update events.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get order for delete: %w", err)
	}

	event, err := changeEvent(ctx, pkgkafka.EventOrderDeleted, id, order.Version+1, map[string]string{"id": id})
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, order.Version, event); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.InfoContext(ctx, "order deleted",
		slog.String("order_id", id),
	)

	return nil
}

// changeEvent builds the outbox row for a change event, propagating the
// request's correlation ID into the envelope.
func changeEvent(ctx context.Context, eventType, entityID string, version int64, data any) (*outbox.Row, error) {
	event, err := pkgkafka.NewEvent(eventType, entityID, version, eventSource, data)
	if err != nil {
		return nil, fmt.Errorf("build %s event: %w", eventType, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	payload, err := event.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	return &outbox.Row{
		EventID:   event.EventID,
		Topic:     pkgkafka.TopicOrderEvents,
		EventType: event.Type,
		EntityID:  event.EntityID,
		Version:   event.Version,
		Payload:   payload,
	}, nil
}
