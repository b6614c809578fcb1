package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"farm-market/internal/auth"
	"farm-market/internal/service"
	"farm-market/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	authService    *service.AuthService
	catalogService *service.CatalogService
	orderService   *service.OrderService
	tokens         *auth.TokenMaker
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authService *service.AuthService,
	catalogService *service.CatalogService,
	orderService *service.OrderService,
	tokens *auth.TokenMaker,
) *Handler {
	return &Handler{
		authService:    authService,
		catalogService: catalogService,
		orderService:   orderService,
		tokens:         tokens,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	products := router.Group("/products")
	{
		products.GET("", h.listProducts)
		products.GET("/:id", h.getProduct)

		authed := products.Group("", h.authMiddleware())
		authed.POST("", h.createProduct)
		authed.GET("/my-products", h.listMyProducts)
		authed.PUT("/:id", h.updateProduct)
		authed.DELETE("/:id", h.deleteProduct)
	}

	orders := router.Group("/orders", h.authMiddleware())
	{
		orders.POST("", h.placeOrder)
		orders.GET("/my-orders", h.listMyOrders)
		orders.GET("/:id", h.getOrder)
		orders.PATCH("/:id/status", h.updateOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError translates the service error taxonomy into HTTP statuses.
// Unclassified errors surface as a generic internal failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		util.GetLogger().Error("request failed: " + err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
