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

type KitchenHandler struct {
	db      *gorm.DB
	engine  *engine.Engine
	tracker *tickets.Tracker
}

func NewKitchenHandler(db *gorm.DB, eng *engine.Engine, tracker *tickets.Tracker) *KitchenHandler {
	return &KitchenHandler{db: db, engine: eng, tracker: tracker}
}

type UpdateItemStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AddNoteRequest struct {
	Note string `json:"note" binding:"required"`
}

type ReportIssueRequest struct {
	Issue string `json:"issue" binding:"required"`
}

// ActiveOrders lists the orders the kitchen works from, oldest first.
func (h *KitchenHandler) ActiveOrders(c *gin.Context) {
	var orders []models.Order
	err := h.db.
		Where("status IN ?", []string{models.OrderConfirmed, models.OrderPreparing, models.OrderReady}).
		Preload("RestaurantTable").
		Preload("Waiter").
		Preload("Items.MenuItem").
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Orders retrieved successfully", orders))
}

func (h *KitchenHandler) Stats(c *gin.Context) {
	counts := map[string]int64{}
	for _, status := range []string{models.OrderConfirmed, models.OrderPreparing, models.OrderReady} {
		var n int64
		if err := h.db.Model(&models.Order{}).Where("status = ?", status).Count(&n).Error; err != nil {
			respondError(c, err)
			return
		}
		counts[status] = n
	}

	c.JSON(http.StatusOK, successResponse("Stats retrieved successfully", counts))
}

func (h *KitchenHandler) StartPreparing(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.StartPreparing(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order preparation started", order))
}

func (h *KitchenHandler) MarkReady(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.MarkReady(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order marked as ready", order))
}

func (h *KitchenHandler) MarkServed(c *gin.Context) {
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

func (h *KitchenHandler) UpdateItemStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId")
	if !ok {
		return
	}

	var req UpdateItemStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.UpdateItemStatus(c.Request.Context(), actor, orderID, itemID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item status updated", order))
}

func (h *KitchenHandler) AddNote(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.AddNote(c.Request.Context(), actor, orderID, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Note added", order))
}

func (h *KitchenHandler) ReportIssue(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	if err := h.engine.ReportIssue(c.Request.Context(), actor, orderID, req.Issue); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Issue reported", nil))
}

func (h *KitchenHandler) TodayPrints(c *gin.Context) {
	prints, err := h.tracker.TodayPrints()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Prints retrieved successfully", prints))
}

func (h *KitchenHandler) OrderPrints(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	prints, err := h.tracker.OrderPrints(orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Prints retrieved successfully", prints))
}
