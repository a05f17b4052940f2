package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/engine"
	"resto-system/internal/events"
	"resto-system/internal/middleware"
)

type TableHandler struct {
	db     *gorm.DB
	engine *engine.Engine
	fanout *events.Fanout
}

func NewTableHandler(db *gorm.DB, eng *engine.Engine, fanout *events.Fanout) *TableHandler {
	return &TableHandler{db: db, engine: eng, fanout: fanout}
}

type CreateTableRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int32  `json:"capacity" binding:"required,min=1"`
}

type UpdateTableRequest struct {
	Name     *string `json:"name,omitempty"`
	Capacity *int32  `json:"capacity,omitempty"`
	Status   *string `json:"status,omitempty"`
}

type UpdateLayoutRequest struct {
	Tables []TableCoordinates `json:"tables" binding:"required,dive"`
}

type TableCoordinates struct {
	ID                int64  `json:"id" binding:"required"`
	VisualCoordinates string `json:"visual_coordinates" binding:"required"`
}

func (h *TableHandler) List(c *gin.Context) {
	var tables []models.RestaurantTable
	if err := h.db.Order("name asc").Find(&tables).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Tables retrieved successfully", tables))
}

func (h *TableHandler) Get(c *gin.Context) {
	tableID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var table models.RestaurantTable
	err := h.db.
		Preload("Orders", "status NOT IN ?", []string{models.OrderPaid, models.OrderCancelled}).
		Preload("Orders.Items.MenuItem").
		First(&table, tableID).Error
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Table not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Table retrieved successfully", table))
}

func (h *TableHandler) Create(c *gin.Context) {
	var req CreateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	table := models.RestaurantTable{
		Name:     req.Name,
		Capacity: req.Capacity,
		Status:   models.TableAvailable,
	}
	if err := h.db.Create(&table).Error; err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Failed to create table, name may already exist"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Table created successfully", table))
}

func (h *TableHandler) Update(c *gin.Context) {
	tableID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var table models.RestaurantTable
	if err := h.db.First(&table, tableID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Table not found"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			c.JSON(http.StatusBadRequest, errorResponse("Capacity must be at least 1"))
			return
		}
		updates["capacity"] = *req.Capacity
	}
	if req.Status != nil {
		switch *req.Status {
		case models.TableAvailable, models.TableMaintenance:
			updates["status"] = *req.Status
		default:
			c.JSON(http.StatusBadRequest, errorResponse("Status can only be set to available or maintenance"))
			return
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("No fields to update"))
		return
	}

	if err := h.db.Model(&table).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}
	if err := h.db.First(&table, tableID).Error; err != nil {
		respondError(c, err)
		return
	}

	h.fanout.Publish(c.Request.Context(), h.fanout.TableStatusChanged(&table))

	c.JSON(http.StatusOK, successResponse("Table updated successfully", table))
}

func (h *TableHandler) Delete(c *gin.Context) {
	tableID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var active int64
	err := h.db.Model(&models.Order{}).
		Where("restaurant_table_id = ? AND status NOT IN ?", tableID,
			[]string{models.OrderPaid, models.OrderCancelled}).
		Count(&active).Error
	if err != nil {
		respondError(c, err)
		return
	}
	if active > 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Table has an active order"))
		return
	}

	res := h.db.Delete(&models.RestaurantTable{}, tableID)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Table not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Table deleted successfully", nil))
}

func (h *TableHandler) Reserve(c *gin.Context) {
	tableID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req engine.ReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	actor := middleware.CurrentUser(c)
	table, err := h.engine.ReserveTable(c.Request.Context(), actor, tableID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Table reserved successfully", table))
}

// Layout returns the floor plan coordinates for the table map screen.
func (h *TableHandler) Layout(c *gin.Context) {
	var tables []models.RestaurantTable
	if err := h.db.Order("id asc").Find(&tables).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Layout retrieved successfully", tables))
}

func (h *TableHandler) UpdateLayout(c *gin.Context) {
	var req UpdateLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range req.Tables {
			res := tx.Model(&models.RestaurantTable{}).Where("id = ?", t.ID).
				Update("visual_coordinates", t.VisualCoordinates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return engine.NotFoundf("table %d not found", t.ID)
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Layout updated successfully", nil))
}

func (h *TableHandler) Stats(c *gin.Context) {
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
