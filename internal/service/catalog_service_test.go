package service

import (
	"context"
	"testing"

	"farm-market/internal/models"
	"farm-market/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalogService(t *testing.T) (*CatalogService, *fakeStore, *fakeCache) {
	t.Helper()
	fs := newFakeStore()
	cache := newFakeCache()
	return NewCatalogService(fs, cache), fs, cache
}

func TestCreateProduct(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)
	ctx := context.Background()

	farmer := &models.User{ID: uuid.NewString(), FullName: "Greta Olsen", Role: models.RoleFarmer}
	req := &CreateProductRequest{
		Name:     "Tomatoes",
		Category: "vegetables",
		Price:    decimal.RequireFromString("2.50"),
		Quantity: 40,
		Unit:     "kg",
	}

	product, err := svc.CreateProduct(ctx, farmer, req)
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, farmer.ID, product.FarmerID)
	assert.Equal(t, "Greta Olsen", product.FarmerName)
	assert.True(t, product.IsAvailable, "new listings start available")

	fetched, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, fetched.Name)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)
	ctx := context.Background()

	buyer := &models.User{ID: uuid.NewString(), Role: models.RoleBuyer}
	farmer := &models.User{ID: uuid.NewString(), Role: models.RoleFarmer}

	_, err := svc.CreateProduct(ctx, buyer, &CreateProductRequest{
		Name: "Tomatoes", Category: "vegetables", Price: decimal.NewFromInt(2), Unit: "kg",
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateProduct(ctx, farmer, &CreateProductRequest{
		Name: "Tomatoes", Category: "vegetables",
		Price: decimal.RequireFromString("-1"), Unit: "kg",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.CreateProduct(ctx, farmer, &CreateProductRequest{
		Name: "Tomatoes", Category: "vegetables",
		Price: decimal.NewFromInt(2), Quantity: -3, Unit: "kg",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetProductCaching(t *testing.T) {
	svc, fs, cache := newTestCatalogService(t)
	ctx := context.Background()

	farmer := seedUser(t, fs, models.RoleFarmer, "greta")
	product := seedProduct(t, fs, farmer, "Tomatoes", "2.50", 10)

	first, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)

	// subsequent reads come from cache and survive the row vanishing
	require.NoError(t, fs.DeleteProduct(ctx, product.ID, farmer.ID))
	second, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, cache.InvalidateProduct(ctx, product.ID))
	_, err = svc.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetProductInvalidID(t *testing.T) {
	svc, _, _ := newTestCatalogService(t)

	_, err := svc.GetProduct(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestListProductsFiltering(t *testing.T) {
	svc, fs, _ := newTestCatalogService(t)
	ctx := context.Background()

	greta := seedUser(t, fs, models.RoleFarmer, "greta")
	hans := seedUser(t, fs, models.RoleFarmer, "hans")
	seedProduct(t, fs, greta, "Tomatoes", "2.50", 10)
	require.NoError(t, fs.CreateProduct(ctx, &models.Product{
		ID:          uuid.NewString(),
		FarmerID:    hans.ID,
		FarmerName:  hans.FullName,
		Name:        "Eggs",
		Category:    "dairy",
		Price:       decimal.RequireFromString("0.30"),
		Quantity:    24,
		Unit:        "dozen",
		IsAvailable: true,
	}))
	seedProduct(t, fs, greta, "Strawberries", "4.00", 0)

	all, err := svc.ListProducts(ctx, store.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := svc.ListProducts(ctx, store.ProductFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2, "sold-out listings hidden from browse")

	dairy, err := svc.ListProducts(ctx, store.ProductFilter{Category: "dairy"})
	require.NoError(t, err)
	require.Len(t, dairy, 1)
	assert.Equal(t, "Eggs", dairy[0].Name)

	gretas, err := svc.ListMyProducts(ctx, greta)
	require.NoError(t, err)
	assert.Len(t, gretas, 2, "farmers see their own sold-out listings too")

	buyer := seedUser(t, fs, models.RoleBuyer, "bob")
	_, err = svc.ListMyProducts(ctx, buyer)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateProduct(t *testing.T) {
	svc, fs, _ := newTestCatalogService(t)
	ctx := context.Background()

	greta := seedUser(t, fs, models.RoleFarmer, "greta")
	hans := seedUser(t, fs, models.RoleFarmer, "hans")
	product := seedProduct(t, fs, greta, "Tomatoes", "2.50", 10)

	newPrice := decimal.RequireFromString("3.00")
	newQty := 25
	updated, err := svc.UpdateProduct(ctx, greta, product.ID, &UpdateProductRequest{
		Price:    &newPrice,
		Quantity: &newQty,
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, 25, updated.Quantity)
	assert.Equal(t, "Tomatoes", updated.Name, "unset fields untouched")

	// another farmer cannot touch the listing
	_, err = svc.UpdateProduct(ctx, hans, product.ID, &UpdateProductRequest{Quantity: &newQty})
	require.ErrorIs(t, err, ErrNotFound)

	negative := decimal.RequireFromString("-1")
	_, err = svc.UpdateProduct(ctx, greta, product.ID, &UpdateProductRequest{Price: &negative})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.UpdateProduct(ctx, greta, uuid.NewString(), &UpdateProductRequest{Quantity: &newQty})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	svc, fs, _ := newTestCatalogService(t)
	ctx := context.Background()

	greta := seedUser(t, fs, models.RoleFarmer, "greta")
	hans := seedUser(t, fs, models.RoleFarmer, "hans")
	product := seedProduct(t, fs, greta, "Tomatoes", "2.50", 10)

	err := svc.DeleteProduct(ctx, hans, product.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteProduct(ctx, greta, product.ID))

	_, err = svc.GetProduct(ctx, product.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
