package service

import (
	"context"
	"errors"
	"fmt"

	"farm-market/internal/models"
	"farm-market/internal/store"
	"farm-market/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService owns the product listings farmers manage and buyers browse.
type CatalogService struct {
	catalog CatalogStore
	cache   Cache
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog CatalogStore, cache Cache) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		cache:   cache,
		logger:  util.GetLogger(),
	}
}

// CreateProductRequest is the farmer-submitted listing.
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Category    string          `json:"category" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit" binding:"required"`
	ImageURL    string          `json:"image_url"`
}

// UpdateProductRequest carries optional listing changes.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	ImageURL    *string          `json:"image_url"`
	IsAvailable *bool            `json:"is_available"`
}

// CreateProduct adds a listing owned by the given farmer.
func (s *CatalogService) CreateProduct(ctx context.Context, farmer *models.User, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if farmer.Role != models.RoleFarmer {
		return nil, fmt.Errorf("only farmers can create products: %w", ErrForbidden)
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", ErrInvalidArgument)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative: %w", ErrInvalidArgument)
	}

	product := &models.Product{
		ID:          uuid.NewString(),
		FarmerID:    farmer.ID,
		FarmerName:  farmer.FullName,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		ImageURL:    req.ImageURL,
		IsAvailable: true,
	}

	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	util.ProductsCreatedTotal.Inc()
	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("farmer_id", product.FarmerID))
	return product, nil
}

// GetProduct returns a single listing, serving repeated reads from cache.
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProduct")
	defer span.End()

	if _, err := uuid.Parse(productID); err != nil {
		return nil, fmt.Errorf("invalid product ID %s: %w", productID, ErrInvalidArgument)
	}

	if cached, err := s.cache.GetProduct(ctx, productID); err != nil {
		s.logger.Warn("Product cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.Error(err))
	}
	return product, nil
}

// ListProducts returns listings matching the filter, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	return s.catalog.ListProducts(ctx, filter)
}

// ListMyProducts returns the farmer's own listings, available or not.
func (s *CatalogService) ListMyProducts(ctx context.Context, farmer *models.User) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListMyProducts")
	defer span.End()

	if farmer.Role != models.RoleFarmer {
		return nil, fmt.Errorf("only farmers can access this listing: %w", ErrForbidden)
	}
	return s.catalog.ListProducts(ctx, store.ProductFilter{FarmerID: farmer.ID})
}

// UpdateProduct applies a partial update to a listing the farmer owns.
func (s *CatalogService) UpdateProduct(ctx context.Context, farmer *models.User, productID string, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if farmer.Role != models.RoleFarmer {
		return nil, fmt.Errorf("only farmers can update products: %w", ErrForbidden)
	}
	if _, err := uuid.Parse(productID); err != nil {
		return nil, fmt.Errorf("invalid product ID %s: %w", productID, ErrInvalidArgument)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative: %w", ErrInvalidArgument)
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative: %w", ErrInvalidArgument)
	}

	upd := store.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURL:    req.ImageURL,
		IsAvailable: req.IsAvailable,
	}
	if err := s.catalog.UpdateProduct(ctx, productID, farmer.ID, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("product %s not found or not owned by you: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Error(err))
	}

	return s.catalog.GetProductByID(ctx, productID)
}

// DeleteProduct removes a listing the farmer owns.
func (s *CatalogService) DeleteProduct(ctx context.Context, farmer *models.User, productID string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	if farmer.Role != models.RoleFarmer {
		return fmt.Errorf("only farmers can delete products: %w", ErrForbidden)
	}
	if _, err := uuid.Parse(productID); err != nil {
		return fmt.Errorf("invalid product ID %s: %w", productID, ErrInvalidArgument)
	}

	if err := s.catalog.DeleteProduct(ctx, productID, farmer.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("product %s not found or not owned by you: %w", productID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Error(err))
	}
	return nil
}
