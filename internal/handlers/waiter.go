package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/engine"
	"resto-system/internal/middleware"
	"resto-system/internal/tickets"
)

type WaiterHandler struct {
	db      *gorm.DB
	engine  *engine.Engine
	tracker *tickets.Tracker
}

func NewWaiterHandler(db *gorm.DB, eng *engine.Engine, tracker *tickets.Tracker) *WaiterHandler {
	return &WaiterHandler{db: db, engine: eng, tracker: tracker}
}

type AssignTableRequest struct {
	CustomerCount int32  `json:"customer_count" binding:"required,min=1"`
	Notes         string `json:"notes"`
}

type AddItemsRequest struct {
	Items []engine.ItemInput `json:"items" binding:"required,min=1,dive"`
}

type UpdateItemRequest struct {
	Quantity            int32   `json:"quantity" binding:"required,min=1"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

func (h *WaiterHandler) Tables(c *gin.Context) {
	var tables []models.RestaurantTable
	err := h.db.
		Preload("Orders", "status NOT IN ?", []string{models.OrderPaid, models.OrderCancelled}).
		Preload("Orders.Items.MenuItem").
		Order("name asc").
		Find(&tables).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Tables retrieved successfully", tables))
}

// waiterOrder decorates an order with the number of items not yet sent
// to the kitchen, so the list view can flag orders with pending sends.
type waiterOrder struct {
	models.Order
	UnprintedItems int64 `json:"unprinted_items"`
}

// MyOrders lists the live orders owned by the calling waiter.
func (h *WaiterHandler) MyOrders(c *gin.Context) {
	actor := middleware.CurrentUser(c)

	var orders []models.Order
	err := h.db.
		Where("user_id = ? AND status NOT IN ?", actor.ID,
			[]string{models.OrderPaid, models.OrderCancelled}).
		Preload("RestaurantTable").
		Preload("Items.MenuItem").
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]waiterOrder, 0, len(orders))
	for _, order := range orders {
		unprinted, err := h.tracker.UnprintedCount(order.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, waiterOrder{Order: order, UnprintedItems: unprinted})
	}

	c.JSON(http.StatusOK, successResponse("Orders retrieved successfully", out))
}

func (h *WaiterHandler) AssignTable(c *gin.Context) {
	tableID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.AssignTable(c.Request.Context(), actor, tableID, req.CustomerCount, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Table assigned successfully", order))
}

func (h *WaiterHandler) UnassignTable(c *gin.Context) {
	tableID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	table, err := h.engine.UnassignTable(c.Request.Context(), actor, tableID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table cleared successfully", table))
}

func (h *WaiterHandler) AddItems(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.AddItems(c.Request.Context(), actor, orderID, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Items added successfully", order))
}

func (h *WaiterHandler) UpdateItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.UpdateItem(c.Request.Context(), actor, orderID, itemID, req.Quantity, req.SpecialInstructions)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item updated successfully", order))
}

func (h *WaiterHandler) RemoveItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.RemoveItem(c.Request.Context(), actor, orderID, itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item removed successfully", order))
}

func (h *WaiterHandler) SendToKitchen(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.SendToKitchen(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order sent to kitchen", order))
}

func (h *WaiterHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.CancelOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order cancelled successfully", order))
}

func (h *WaiterHandler) MarkServed(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.MarkServed(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order served", order))
}
