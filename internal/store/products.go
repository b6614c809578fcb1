package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"farm-market/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ProductFilter narrows ListProducts. Zero-value fields are not applied.
type ProductFilter struct {
	Category      string
	FarmerID      string
	AvailableOnly bool
}

// ProductUpdate carries optional field changes; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	ImageURL    *string
	IsAvailable *bool
}

// CreateProduct inserts a new product listing
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, farmer_id, farmer_name, name, description, category,
		                      price, quantity, unit, image_url, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	return s.db.GetContext(ctx, &product.CreatedAt, query,
		product.ID, product.FarmerID, product.FarmerName, product.Name,
		product.Description, product.Category, product.Price, product.Quantity,
		product.Unit, product.ImageURL, product.IsAvailable)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ListProducts retrieves products matching the filter, newest first, capped at 100
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := "SELECT * FROM products WHERE 1=1"
	args := []interface{}{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.FarmerID != "" {
		args = append(args, filter.FarmerID)
		query += fmt.Sprintf(" AND farmer_id = $%d", len(args))
	}
	if filter.AvailableOnly {
		query += " AND is_available = true AND quantity > 0"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// UpdateProduct applies a partial update to a product owned by the given farmer
func (s *Store) UpdateProduct(ctx context.Context, id, farmerID string, upd ProductUpdate) error {
	query := `
		UPDATE products SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			price = COALESCE($3, price),
			quantity = COALESCE($4, quantity),
			image_url = COALESCE($5, image_url),
			is_available = COALESCE($6, is_available)
		WHERE id = $7 AND farmer_id = $8`

	res, err := s.db.ExecContext(ctx, query,
		upd.Name, upd.Description, upd.Price, upd.Quantity, upd.ImageURL, upd.IsAvailable,
		id, farmerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s for farmer %s: %w", id, farmerID, ErrNotFound)
	}
	return nil
}

// DeleteProduct removes a product owned by the given farmer
func (s *Store) DeleteProduct(ctx context.Context, id, farmerID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM products WHERE id = $1 AND farmer_id = $2", id, farmerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s for farmer %s: %w", id, farmerID, ErrNotFound)
	}
	return nil
}
