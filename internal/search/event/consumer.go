package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/eloritzkovitz/voltrico/pkg/kafka"

	"github.com/eloritzkovitz/voltrico/internal/search/domain"
	"github.com/eloritzkovitz/voltrico/internal/search/service"
)

// deletePayload is the id-only snapshot carried by *_DELETED events.
type deletePayload struct {
	ID string `json:"id"`
}

// Consumer projects product and order change events into the search index.
type Consumer struct {
	searchService *service.SearchService
	logger        *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(searchService *service.SearchService, logger *slog.Logger) *Consumer {
	return &Consumer{
		searchService: searchService,
		logger:        logger,
	}
}

// Handle processes a change event based on its type. The event type set is
// closed; anything else is logged and acked so it cannot wedge the partition.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.Type {
	case pkgkafka.EventProductCreated, pkgkafka.EventProductUpdated:
		return c.upsertProduct(ctx, event)
	case pkgkafka.EventProductDeleted:
		return c.deleteProduct(ctx, event)
	case pkgkafka.EventOrderCreated, pkgkafka.EventOrderUpdated:
		return c.upsertOrder(ctx, event)
	case pkgkafka.EventOrderDeleted:
		return c.deleteOrder(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) upsertProduct(ctx context.Context, event *pkgkafka.Event) error {
	var doc domain.ProductDocument
	if err := event.UnmarshalData(&doc); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.Type, err)
	}

	if doc.ID == "" {
		doc.ID = event.EntityID
	}
	doc.Version = event.Version

	if err := c.searchService.UpsertProduct(ctx, &doc); err != nil {
		return fmt.Errorf("project %s: %w", event.Type, err)
	}
	return nil
}

func (c *Consumer) deleteProduct(ctx context.Context, event *pkgkafka.Event) error {
	id := event.EntityID
	if id == "" {
		var data deletePayload
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.Type, err)
		}
		id = data.ID
	}

	if err := c.searchService.DeleteProduct(ctx, id, event.Version); err != nil {
		return fmt.Errorf("project %s: %w", event.Type, err)
	}
	return nil
}

func (c *Consumer) upsertOrder(ctx context.Context, event *pkgkafka.Event) error {
	var doc domain.OrderDocument
	if err := event.UnmarshalData(&doc); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.Type, err)
	}

	if doc.ID == "" {
		doc.ID = event.EntityID
	}
	doc.Version = event.Version

	if err := c.searchService.UpsertOrder(ctx, &doc); err != nil {
		return fmt.Errorf("project %s: %w", event.Type, err)
	}
	return nil
}

func (c *Consumer) deleteOrder(ctx context.Context, event *pkgkafka.Event) error {
	id := event.EntityID
	if id == "" {
		var data deletePayload
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.Type, err)
		}
		id = data.ID
	}

	if err := c.searchService.DeleteOrder(ctx, id, event.Version); err != nil {
		return fmt.Errorf("project %s: %w", event.Type, err)
	}
	return nil
}
