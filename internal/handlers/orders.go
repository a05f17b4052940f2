package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/engine"
	"resto-system/internal/middleware"
)

type OrderHandler struct {
	db     *gorm.DB
	engine *engine.Engine
}

func NewOrderHandler(db *gorm.DB, eng *engine.Engine) *OrderHandler {
	return &OrderHandler{db: db, engine: eng}
}

type ListOrdersQuery struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   string `form:"status"`
	TableID  int64  `form:"table_id"`
}

type CreateOrderRequest struct {
	TableID       int64              `json:"table_id" binding:"required"`
	CustomerCount int32              `json:"customer_count" binding:"required,min=1"`
	Items         []engine.ItemInput `json:"items" binding:"required,min=1,dive"`
	Notes         string             `json:"notes"`
}

func (h *OrderHandler) List(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters"))
		return
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	q := h.db.Model(&models.Order{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.TableID > 0 {
		q = q.Where("restaurant_table_id = ?", query.TableID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}

	var orders []models.Order
	err := q.
		Preload("RestaurantTable").
		Preload("Waiter").
		Preload("Items.MenuItem").
		Order("created_at desc").
		Offset((query.Page - 1) * query.PageSize).
		Limit(query.PageSize).
		Find(&orders).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orders, map[string]interface{}{
		"page":      query.Page,
		"page_size": query.PageSize,
		"total":     total,
	}))
}

func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var order models.Order
	err := h.db.
		Preload("RestaurantTable").
		Preload("Waiter").
		Preload("Items.MenuItem").
		First(&order, orderID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Order not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.CreateOrder(c.Request.Context(), actor, req.TableID, req.CustomerCount, req.Items, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created successfully", order))
}
