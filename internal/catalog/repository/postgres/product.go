package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eloritzkovitz/voltrico/internal/catalog/domain"
	"github.com/eloritzkovitz/voltrico/internal/catalog/repository"
	"github.com/eloritzkovitz/voltrico/pkg/database"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/outbox"
)

const productColumns = `id, name, brand, model, description, price, category, color, dimensions,
	       weight, energy_rating, made_in, distributor, warranty, quality, image_url,
	       features, version, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// Every mutation commits the product row and its outbox event in one
// transaction.
type ProductRepository struct {
	db     database.DBTX
	outbox outbox.Store
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX, outboxStore outbox.Store) *ProductRepository {
	return &ProductRepository{db: db, outbox: outboxStore}
}

// Create inserts a new product and its change event atomically.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product, event *outbox.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO products (id, name, brand, model, description, price, category, color,
		                      dimensions, weight, energy_rating, made_in, distributor, warranty,
		                      quality, image_url, features, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = tx.Exec(ctx, query,
		p.ID, p.Name, p.Brand, p.Model, p.Description, p.Price, p.Category, p.Color,
		p.Dimensions, p.Weight, p.EnergyRating, p.MadeIn, p.Distributor, p.Warranty,
		p.Quality, p.ImageURL, p.Features, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "id", p.ID)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// Update writes the product at its new version and its change event
// atomically. The WHERE clause matches the previous version, so a row changed
// by a concurrent writer is not overwritten.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, event *outbox.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE products
		SET name = $1, brand = $2, model = $3, description = $4, price = $5, category = $6,
		    color = $7, dimensions = $8, weight = $9, energy_rating = $10, made_in = $11,
		    distributor = $12, warranty = $13, quality = $14, image_url = $15, features = $16,
		    version = $17, updated_at = $18
		WHERE id = $19 AND version = $20`

	ct, err := tx.Exec(ctx, query,
		p.Name, p.Brand, p.Model, p.Description, p.Price, p.Category,
		p.Color, p.Dimensions, p.Weight, p.EnergyRating, p.MadeIn,
		p.Distributor, p.Warranty, p.Quality, p.ImageURL, p.Features,
		p.Version, p.UpdatedAt,
		p.ID, p.Version-1,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, tx, p.ID)
	}

	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// Delete removes a product at the given version and inserts its change event
// atomically. Matching on version means a delete that raced a concurrent
// update fails instead of emitting an event whose version collides with the
// update's.
func (r *ProductRepository) Delete(ctx context.Context, id string, version int64, event *outbox.Row) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.conflictOrMissing(ctx, tx, id)
	}

	if err := r.outbox.InsertTx(ctx, tx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	var p domain.Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Brand, &p.Model, &p.Description, &p.Price, &p.Category, &p.Color,
		&p.Dimensions, &p.Weight, &p.EnergyRating, &p.MadeIn, &p.Distributor, &p.Warranty,
		&p.Quality, &p.ImageURL, &p.Features, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Stable page order so the search reindexer sees every row exactly once.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY id
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Brand, &p.Model, &p.Description, &p.Price, &p.Category, &p.Color,
			&p.Dimensions, &p.Weight, &p.EnergyRating, &p.MadeIn, &p.Distributor, &p.Warranty,
			&p.Quality, &p.ImageURL, &p.Features, &p.Version, &p.CreatedAt, &p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// conflictOrMissing resolves a zero-row optimistic mutation: the row either
// does not exist (not found) or exists at a different version (conflict).
func (r *ProductRepository) conflictOrMissing(ctx context.Context, tx pgx.Tx, id string) error {
	var version int64
	err := tx.QueryRow(ctx, `SELECT version FROM products WHERE id = $1`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("product", id)
	}
	if err != nil {
		return fmt.Errorf("check product version: %w", err)
	}
	return apperrors.Conflict("product", id)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
