package api

import (
	"net/http"

	"farm-market/internal/service"
	"farm-market/internal/store"

	"github.com/gin-gonic/gin"
)

// createProduct handles product listing creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// listProducts handles public catalog browsing
func (h *Handler) listProducts(c *gin.Context) {
	filter := store.ProductFilter{
		Category:      c.Query("category"),
		FarmerID:      c.Query("farmer_id"),
		AvailableOnly: c.DefaultQuery("available_only", "true") != "false",
	}

	products, err := h.catalogService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// listMyProducts handles a farmer's own listings
func (h *Handler) listMyProducts(c *gin.Context) {
	products, err := h.catalogService.ListMyProducts(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// updateProduct handles partial product updates
func (h *Handler) updateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), currentUser(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// deleteProduct handles product removal
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
