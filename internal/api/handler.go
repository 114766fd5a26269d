package api

import (
	"net/http"
	"strconv"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/service"
	"commerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"

	ctxUserID   = "userID"
	ctxUserRole = "userRole"
)

// Handler contains HTTP handlers
type Handler struct {
	orders       *service.OrderService
	returns      *service.ReturnService
	products     *service.ProductService
	transactions *service.TransactionService
	defaultLimit int
	maxLimit     int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	returns *service.ReturnService,
	products *service.ProductService,
	transactions *service.TransactionService,
	defaultLimit, maxLimit int,
) *Handler {
	return &Handler{
		orders:       orders,
		returns:      returns,
		products:     products,
		transactions: transactions,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
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

	v1 := router.Group("/api/v1")
	v1.Use(identity())
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.POST("/products", requireRole(models.RoleMerchant), h.createProduct)
		v1.PATCH("/products/:id", requireRole(models.RoleMerchant), h.updateProduct)
		v1.DELETE("/products/:id", requireRole(models.RoleMerchant), h.deleteProduct)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", requireRole(models.RoleAdmin), h.updateOrderStatus)

		v1.POST("/orders/returns", h.createReturn)
		v1.PATCH("/orders/returns/:id/status", requireRole(models.RoleAdmin), h.resolveReturn)

		v1.GET("/transactions", h.listMyTransactions)
		v1.GET("/transactions/all", requireRole(models.RoleAdmin), h.listAllTransactions)
	}
}

// identity reads the caller identity set by the API gateway. Requests
// without it never reach this service in production.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader(headerUserID), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid user identity",
			})
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, c.GetHeader(headerUserRole))
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUserRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}
		c.Next()
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

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	detail, err := h.orders.CreateOrder(c.Request.Context(), c.GetInt64(ctxUserID), &req)
	if err != nil {
		h.renderError(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := h.orders.GetOrder(c.Request.Context(), c.GetInt64(ctxUserID), orderID)
	if err != nil {
		h.renderError(c, err, "Failed to get order")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// listOrders handles listing the caller's orders
func (h *Handler) listOrders(c *gin.Context) {
	page, limit := h.pagination(c)

	result, err := h.orders.ListOrders(c.Request.Context(), c.GetInt64(ctxUserID), page, limit)
	if err != nil {
		h.renderError(c, err, "Failed to list orders")
		return
	}

	c.JSON(http.StatusOK, result)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus handles the admin status transition
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.UpdateOrderStatus(c.Request.Context(), orderID, req.Status); err != nil {
		h.renderError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": req.Status})
}

// createReturn handles return submission
func (h *Handler) createReturn(c *gin.Context) {
	var req service.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	detail, err := h.returns.CreateReturn(c.Request.Context(), c.GetInt64(ctxUserID), &req)
	if err != nil {
		h.renderError(c, err, "Failed to create return")
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// resolveReturn handles the admin return resolution
func (h *Handler) resolveReturn(c *gin.Context) {
	returnID, ok := pathID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resolved, err := h.returns.ResolveReturn(c.Request.Context(), returnID, req.Status)
	if err != nil {
		h.renderError(c, err, "Failed to resolve return")
		return
	}

	c.JSON(http.StatusOK, resolved)
}

// createProduct handles product creation with an optional image upload
func (h *Handler) createProduct(c *gin.Context) {
	req, err := parseCreateProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	up, err := formUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid file upload",
			"details": err.Error(),
		})
		return
	}
	defer up.close()

	product, err := h.products.CreateProduct(c.Request.Context(), c.GetInt64(ctxUserID), req, up.upload())
	if err != nil {
		h.renderError(c, err, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.renderError(c, err, "Failed to get product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// listProducts handles the catalog listing
func (h *Handler) listProducts(c *gin.Context) {
	page, limit := h.pagination(c)

	result, err := h.products.ListProducts(c.Request.Context(), c.Query("name"), page, limit)
	if err != nil {
		h.renderError(c, err, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, result)
}

// updateProduct handles product edits with an optional replacement image
func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	req, err := parseUpdateProductForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	up, err := formUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid file upload",
			"details": err.Error(),
		})
		return
	}
	defer up.close()

	product, err := h.products.UpdateProduct(c.Request.Context(), c.GetInt64(ctxUserID), productID, req, up.upload())
	if err != nil {
		h.renderError(c, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// deleteProduct handles product soft deletion
func (h *Handler) deleteProduct(c *gin.Context) {
	productID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), c.GetInt64(ctxUserID), productID); err != nil {
		h.renderError(c, err, "Failed to delete product")
		return
	}

	c.Status(http.StatusNoContent)
}

// listMyTransactions handles the caller's ledger listing
func (h *Handler) listMyTransactions(c *gin.Context) {
	page, limit := h.pagination(c)

	result, err := h.transactions.ListMine(c.Request.Context(), c.GetInt64(ctxUserID), page, limit)
	if err != nil {
		h.renderError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, result)
}

// listAllTransactions handles the admin ledger listing
func (h *Handler) listAllTransactions(c *gin.Context) {
	page, limit := h.pagination(c)

	result, err := h.transactions.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		h.renderError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) renderError(c *gin.Context, err error, fallback string) {
	switch {
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   fallback,
			"details": err.Error(),
		})
	}
}

func (h *Handler) pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultLimit)))
	if limit < 1 {
		limit = h.defaultLimit
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return page, limit
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
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
