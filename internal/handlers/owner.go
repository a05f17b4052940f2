package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
)

type OwnerHandler struct {
	db *gorm.DB
}

func NewOwnerHandler(db *gorm.DB) *OwnerHandler {
	return &OwnerHandler{db: db}
}

type CreateStaffRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Fullname string `json:"fullname" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type UpdateStaffRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Fullname *string `json:"fullname,omitempty"`
	Role     *string `json:"role,omitempty"`
}

func validRole(role string) bool {
	switch role {
	case models.RoleWaiter, models.RoleKitchen, models.RoleReception, models.RoleOwner:
		return true
	}
	return false
}

func (h *OwnerHandler) ListStaff(c *gin.Context) {
	q := h.db.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var staff []models.User
	if err := q.Order("fullname asc").Find(&staff).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Staff retrieved successfully", staff))
}

func (h *OwnerHandler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	if !validRole(req.Role) {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid role"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to hash password"))
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Fullname: req.Fullname,
		Role:     req.Role,
		IsActive: true,
	}
	if err := h.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Failed to create user, username or email may already exist"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Staff member created successfully", user))
}

func (h *OwnerHandler) UpdateStaff(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("User not found"))
		return
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Fullname != nil {
		updates["fullname"] = *req.Fullname
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid role"))
			return
		}
		updates["role"] = *req.Role
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			c.JSON(http.StatusBadRequest, errorResponse("Password must be at least 6 characters"))
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to hash password"))
			return
		}
		updates["password"] = string(hashed)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("No fields to update"))
		return
	}

	if err := h.db.Model(&user).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.First(&user, userID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Staff member updated successfully", user))
}

// ToggleStaff flips the active flag; deactivated users fail auth on
// their next request.
func (h *OwnerHandler) ToggleStaff(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("User not found"))
		return
	}

	if err := h.db.Model(&user).Update("is_active", !user.IsActive).Error; err != nil {
		respondError(c, err)
		return
	}
	user.IsActive = !user.IsActive

	c.JSON(http.StatusOK, successResponse("Staff status updated successfully", user))
}

// Analytics summarizes revenue and volume over the requested window
// (default the last 7 days).
func (h *OwnerHandler) Analytics(c *gin.Context) {
	days := 7
	if d := c.Query("days"); d == "30" {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	var paidOrders []models.Order
	err := h.db.
		Where("status = ? AND completed_at >= ?", models.OrderPaid, since).
		Find(&paidOrders).Error
	if err != nil {
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

	var cancelled int64
	err = h.db.Model(&models.Order{}).
		Where("status = ? AND updated_at >= ?", models.OrderCancelled, since).
		Count(&cancelled).Error
	if err != nil {
		respondError(c, err)
		return
	}

	type topItem struct {
		MenuItemID int64  `json:"menu_item_id"`
		Name       string `json:"name"`
		Quantity   int64  `json:"quantity"`
	}
	var topItems []topItem
	err = h.db.Model(&models.OrderItem{}).
		Select("order_items.menu_item_id, menu_items.name, SUM(order_items.quantity) as quantity").
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status = ? AND orders.completed_at >= ?", models.OrderPaid, since).
		Where("order_items.status <> ?", models.ItemCancelled).
		Group("order_items.menu_item_id, menu_items.name").
		Order("quantity desc").
		Limit(10).
		Scan(&topItems).Error
	if err != nil {
		respondError(c, err)
		return
	}

	avg := decimal.Zero
	if len(paidOrders) > 0 {
		avg = revenue.Div(decimal.NewFromInt(int64(len(paidOrders)))).Round(2)
	}

	c.JSON(http.StatusOK, successResponse("Analytics retrieved successfully", map[string]interface{}{
		"period_days":      days,
		"paid_orders":      len(paidOrders),
		"cancelled_orders": cancelled,
		"revenue":          revenue.StringFixed(2),
		"average_order":    avg.StringFixed(2),
		"top_items":        topItems,
	}))
}
