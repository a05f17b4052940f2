package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/engine"
	"resto-system/internal/middleware"
)

type ReceptionHandler struct {
	db      *gorm.DB
	engine  *engine.Engine
	taxRate decimal.Decimal
}

func NewReceptionHandler(db *gorm.DB, eng *engine.Engine, taxRate string) *ReceptionHandler {
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		rate = decimal.NewFromFloat(0.10)
	}
	return &ReceptionHandler{db: db, engine: eng, taxRate: rate}
}

// Bill is computed at presentation time; the stored total stays tax-free.
type Bill struct {
	Order    *models.Order `json:"order"`
	Subtotal string        `json:"subtotal"`
	TaxRate  string        `json:"tax_rate"`
	Tax      string        `json:"tax"`
	Total    string        `json:"total"`
}

func (h *ReceptionHandler) Tables(c *gin.Context) {
	var tables []models.RestaurantTable
	err := h.db.
		Preload("Orders", "status NOT IN ?", []string{models.OrderPaid, models.OrderCancelled}).
		Preload("Orders.Waiter").
		Order("name asc").
		Find(&tables).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Tables retrieved successfully", tables))
}

func (h *ReceptionHandler) TableStats(c *gin.Context) {
	stats := map[string]int64{}
	for _, status := range []string{models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableMaintenance} {
		var n int64
		if err := h.db.Model(&models.RestaurantTable{}).Where("status = ?", status).Count(&n).Error; err != nil {
			respondError(c, err)
			return
		}
		stats[status] = n
	}

	c.JSON(http.StatusOK, successResponse("Stats retrieved successfully", stats))
}

func (h *ReceptionHandler) ActiveOrders(c *gin.Context) {
	var orders []models.Order
	err := h.db.
		Where("status NOT IN ?", []string{models.OrderPaid, models.OrderCancelled}).
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

// DashboardStats backs the reception landing screen.
func (h *ReceptionHandler) DashboardStats(c *gin.Context) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var activeOrders, occupiedTables, paidToday int64
	if err := h.db.Model(&models.Order{}).
		Where("status NOT IN ?", []string{models.OrderPaid, models.OrderCancelled}).
		Count(&activeOrders).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.Model(&models.RestaurantTable{}).
		Where("status = ?", models.TableOccupied).
		Count(&occupiedTables).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.Model(&models.Order{}).
		Where("status = ? AND completed_at >= ?", models.OrderPaid, startOfDay).
		Count(&paidToday).Error; err != nil {
		respondError(c, err)
		return
	}

	var paidOrders []models.Order
	if err := h.db.
		Where("status = ? AND completed_at >= ?", models.OrderPaid, startOfDay).
		Find(&paidOrders).Error; err != nil {
		respondError(c, err)
		return
	}
	revenue := decimal.Zero
	for _, o := range paidOrders {
		amount, err := decimal.NewFromString(o.TotalAmount)
		if err != nil {
			log.Printf("order %d has malformed total %q: %v", o.ID, o.TotalAmount, err)
			continue
		}
		revenue = revenue.Add(amount)
	}

	c.JSON(http.StatusOK, successResponse("Stats retrieved successfully", map[string]interface{}{
		"active_orders":   activeOrders,
		"occupied_tables": occupiedTables,
		"paid_today":      paidToday,
		"revenue_today":   revenue.StringFixed(2),
	}))
}

func (h *ReceptionHandler) Bill(c *gin.Context) {
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

	subtotal, err := decimal.NewFromString(order.TotalAmount)
	if err != nil {
		log.Printf("order %d has malformed total %q: %v", order.ID, order.TotalAmount, err)
		c.JSON(http.StatusInternalServerError, errorResponse("Order total is malformed"))
		return
	}
	tax := subtotal.Mul(h.taxRate).Round(2)
	total := subtotal.Add(tax)

	c.JSON(http.StatusOK, successResponse("Bill generated successfully", Bill{
		Order:    &order,
		Subtotal: subtotal.StringFixed(2),
		TaxRate:  h.taxRate.String(),
		Tax:      tax.StringFixed(2),
		Total:    total.StringFixed(2),
	}))
}

func (h *ReceptionHandler) MarkPaid(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := middleware.CurrentUser(c)
	order, err := h.engine.MarkPaid(c.Request.Context(), actor, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order paid successfully", order))
}

func (h *ReceptionHandler) CancelOrder(c *gin.Context) {
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
