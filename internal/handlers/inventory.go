package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/events"
	"resto-system/internal/middleware"
)

type InventoryHandler struct {
	db     *gorm.DB
	fanout *events.Fanout
}

func NewInventoryHandler(db *gorm.DB, fanout *events.Fanout) *InventoryHandler {
	return &InventoryHandler{db: db, fanout: fanout}
}

type CreateInventoryItemRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	SupplierID   *int64  `json:"supplier_id,omitempty"`
	UnitPrice    string  `json:"unit_price" binding:"required"`
	Quantity     int32   `json:"quantity"`
	ReorderLevel int32   `json:"reorder_level"`
	Unit         string  `json:"unit" binding:"required"`
}

type UpdateInventoryItemRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	SupplierID   *int64  `json:"supplier_id,omitempty"`
	UnitPrice    *string `json:"unit_price,omitempty"`
	ReorderLevel *int32  `json:"reorder_level,omitempty"`
	Unit         *string `json:"unit,omitempty"`
}

type AdjustStockRequest struct {
	Type     string  `json:"type" binding:"required"`
	Quantity int32   `json:"quantity" binding:"required,min=1"`
	Cost     *string `json:"cost,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type CreateSupplierRequest struct {
	Name          string  `json:"name" binding:"required"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

func (h *InventoryHandler) ListItems(c *gin.Context) {
	var items []models.InventoryItem
	if err := h.db.Preload("Supplier").Order("name asc").Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Inventory items retrieved successfully", items))
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var item models.InventoryItem
	if err := h.db.Preload("Supplier").First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Inventory item not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Inventory item retrieved successfully", item))
}

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	if !validPrice(req.UnitPrice) {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid unit price"))
		return
	}
	if req.Quantity < 0 || req.ReorderLevel < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Quantities cannot be negative"))
		return
	}

	item := models.InventoryItem{
		Name:         req.Name,
		Description:  req.Description,
		SupplierID:   req.SupplierID,
		UnitPrice:    req.UnitPrice,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		Unit:         req.Unit,
	}
	if err := h.db.Create(&item).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Inventory item created successfully", item))
}

func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var item models.InventoryItem
	if err := h.db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Inventory item not found"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.SupplierID != nil {
		updates["supplier_id"] = *req.SupplierID
	}
	if req.UnitPrice != nil {
		if !validPrice(*req.UnitPrice) {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid unit price"))
			return
		}
		updates["unit_price"] = *req.UnitPrice
	}
	if req.ReorderLevel != nil {
		updates["reorder_level"] = *req.ReorderLevel
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("No fields to update"))
		return
	}

	if err := h.db.Model(&item).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Inventory item updated successfully", item))
}

// AdjustStock records an audited quantity change; adjustments and the
// item row commit together.
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	switch req.Type {
	case models.StockAdd, models.StockRemove, models.StockSet:
	default:
		c.JSON(http.StatusBadRequest, errorResponse("Type must be add, remove or set"))
		return
	}

	actor := middleware.CurrentUser(c)

	var item models.InventoryItem
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			return err
		}

		oldQty := item.Quantity
		var newQty int32
		switch req.Type {
		case models.StockAdd:
			newQty = oldQty + req.Quantity
		case models.StockRemove:
			newQty = oldQty - req.Quantity
		case models.StockSet:
			newQty = req.Quantity
		}
		if newQty < 0 {
			return gorm.ErrInvalidValue
		}

		if err := tx.Model(&item).Update("quantity", newQty).Error; err != nil {
			return err
		}

		txn := models.StockTransaction{
			InventoryItemID: item.ID,
			UserID:          actor.ID,
			Type:            req.Type,
			Quantity:        req.Quantity,
			OldQuantity:     oldQty,
			NewQuantity:     newQty,
			Cost:            req.Cost,
			Notes:           req.Notes,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		item.Quantity = newQty
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, errorResponse("Inventory item not found"))
			return
		}
		if err == gorm.ErrInvalidValue {
			c.JSON(http.StatusBadRequest, errorResponse("Stock cannot go negative"))
			return
		}
		respondError(c, err)
		return
	}

	h.fanout.Publish(c.Request.Context(), h.fanout.InventoryUpdated(&item))

	c.JSON(http.StatusOK, successResponse("Stock adjusted successfully", item))
}

func (h *InventoryHandler) StockHistory(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var txns []models.StockTransaction
	err := h.db.
		Where("inventory_item_id = ?", itemID).
		Preload("User").
		Order("created_at desc").
		Find(&txns).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock history retrieved successfully", txns))
}

// LowStock reports items at or below their reorder level.
func (h *InventoryHandler) LowStock(c *gin.Context) {
	var items []models.InventoryItem
	err := h.db.
		Where("quantity <= reorder_level").
		Preload("Supplier").
		Order("quantity asc").
		Find(&items).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Low stock items retrieved successfully", items))
}

func (h *InventoryHandler) ListSuppliers(c *gin.Context) {
	var suppliers []models.Supplier
	if err := h.db.Order("name asc").Find(&suppliers).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Suppliers retrieved successfully", suppliers))
}

func (h *InventoryHandler) CreateSupplier(c *gin.Context) {
	var req CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	supplier := models.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		Notes:         req.Notes,
	}
	if err := h.db.Create(&supplier).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Supplier created successfully", supplier))
}

func (h *InventoryHandler) DeleteSupplier(c *gin.Context) {
	supplierID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var linked int64
	if err := h.db.Model(&models.InventoryItem{}).Where("supplier_id = ?", supplierID).Count(&linked).Error; err != nil {
		respondError(c, err)
		return
	}
	if linked > 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Supplier still has inventory items"))
		return
	}

	res := h.db.Delete(&models.Supplier{}, supplierID)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Supplier not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Supplier deleted successfully", nil))
}
