package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eloritzkovitz/voltrico/internal/catalog/domain"
	"github.com/eloritzkovitz/voltrico/internal/catalog/repository"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	pkgkafka "github.com/eloritzkovitz/voltrico/pkg/kafka"
	"github.com/eloritzkovitz/voltrico/pkg/logger"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

// eventSource identifies this service in emitted event envelopes.
const eventSource = "catalog-service"

// ProductService implements the business logic for product operations. Every
// mutation records a change event through the repository's outbox so the
// search projection converges on the committed state.
type ProductService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		logger: logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name         string
	Brand        string
	Model        string
	Description  string
	Price        float64
	Category     string
	Color        string
	Dimensions   string
	Weight       string
	EnergyRating string
	MadeIn       string
	Distributor  string
	Warranty     string
	Quality      string
	ImageURL     string
	Features     []string
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left unchanged.
type UpdateProductInput struct {
	Name         *string
	Brand        *string
	Model        *string
	Description  *string
	Price        *float64
	Category     *string
	Color        *string
	Dimensions   *string
	Weight       *string
	EnergyRating *string
	MadeIn       *string
	Distributor  *string
	Warranty     *string
	Quality      *string
	ImageURL     *string
	Features     []string
}

// CreateProduct creates a new product at version 1.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Brand:        input.Brand,
		Model:        input.Model,
		Description:  input.Description,
		Price:        input.Price,
		Category:     input.Category,
		Color:        input.Color,
		Dimensions:   input.Dimensions,
		Weight:       input.Weight,
		EnergyRating: input.EnergyRating,
		MadeIn:       input.MadeIn,
		Distributor:  input.Distributor,
		Warranty:     input.Warranty,
		Quality:      input.Quality,
		ImageURL:     input.ImageURL,
		Features:     input.Features,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	event, err := changeEvent(ctx, pkgkafka.EventProductCreated, product.ID, product.Version, product)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product, event); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.Int64("version", product.Version),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated list of products.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// UpdateProduct applies partial updates to an existing product and bumps its
// version.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = *input.Name
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Model != nil {
		product.Model = *input.Model
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Color != nil {
		product.Color = *input.Color
	}
	if input.Dimensions != nil {
		product.Dimensions = *input.Dimensions
	}
	if input.Weight != nil {
		product.Weight = *input.Weight
	}
	if input.EnergyRating != nil {
		product.EnergyRating = *input.EnergyRating
	}
	if input.MadeIn != nil {
		product.MadeIn = *input.MadeIn
	}
	if input.Distributor != nil {
		product.Distributor = *input.Distributor
	}
	if input.Warranty != nil {
		product.Warranty = *input.Warranty
	}
	if input.Quality != nil {
		product.Quality = *input.Quality
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.Features != nil {
		product.Features = input.Features
	}

	product.Version++
	product.UpdatedAt = time.Now().UTC()

	event, err := changeEvent(ctx, pkgkafka.EventProductUpdated, product.ID, product.Version, product)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product, event); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.Int64("version", product.Version),
	)

	return product, nil
}

// DeleteProduct removes a product by its ID. The delete event carries the
// next version so it fences any in-flight update events.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	event, err := changeEvent(ctx, pkgkafka.EventProductDeleted, id, product.Version+1, map[string]string{"id": id})
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, product.Version, event); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
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
		Topic:     pkgkafka.TopicProductEvents,
		EventType: event.Type,
		EntityID:  event.EntityID,
		Version:   event.Version,
		Payload:   payload,
	}, nil
}
