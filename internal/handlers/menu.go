package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
)

type MenuHandler struct {
	db *gorm.DB
}

func NewMenuHandler(db *gorm.DB) *MenuHandler {
	return &MenuHandler{db: db}
}

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateMenuItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       string  `json:"price" binding:"required"`
	CategoryID  int64   `json:"category_id" binding:"required"`
	ImagePath   *string `json:"image_path,omitempty"`
}

type UpdateMenuItemRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
}

func validPrice(s string) bool {
	price, err := decimal.NewFromString(s)
	return err == nil && price.GreaterThanOrEqual(decimal.Zero)
}

func (h *MenuHandler) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.db.Preload("MenuItems").Order("name asc").Find(&categories).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved successfully", categories))
}

func (h *MenuHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	category := models.Category{Name: req.Name, Description: req.Description}
	if err := h.db.Create(&category).Error; err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Failed to create category, name may already exist"))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created successfully", category))
}

func (h *MenuHandler) UpdateCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var category models.Category
	if err := h.db.First(&category, categoryID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Category not found"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := h.db.Model(&category).Updates(updates).Error; err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, successResponse("Category updated successfully", category))
}

func (h *MenuHandler) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var items int64
	if err := h.db.Model(&models.MenuItem{}).Where("category_id = ?", categoryID).Count(&items).Error; err != nil {
		respondError(c, err)
		return
	}
	if items > 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Category still has menu items"))
		return
	}

	res := h.db.Delete(&models.Category{}, categoryID)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Category not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category deleted successfully", nil))
}

func (h *MenuHandler) ListItems(c *gin.Context) {
	q := h.db.Preload("Category")
	if categoryID := c.Query("category_id"); categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}
	if c.Query("available") == "true" {
		q = q.Where("is_available = ?", true)
	}

	var items []models.MenuItem
	if err := q.Order("name asc").Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu items retrieved successfully", items))
}

func (h *MenuHandler) GetItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var item models.MenuItem
	if err := h.db.Preload("Category").First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Menu item not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item retrieved successfully", item))
}

func (h *MenuHandler) CreateItem(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}
	if !validPrice(req.Price) {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid price"))
		return
	}

	var category models.Category
	if err := h.db.First(&category, req.CategoryID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Category not found"))
		return
	}

	item := models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		IsAvailable: true,
		ImagePath:   req.ImagePath,
	}
	if err := h.db.Create(&item).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Menu item created successfully", item))
}

// UpdateItem changes the live menu; existing order items keep the price
// they were created with.
func (h *MenuHandler) UpdateItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var item models.MenuItem
	if err := h.db.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Menu item not found"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		if !validPrice(*req.Price) {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid price"))
			return
		}
		updates["price"] = *req.Price
	}
	if req.CategoryID != nil {
		var category models.Category
		if err := h.db.First(&category, *req.CategoryID).Error; err != nil {
			c.JSON(http.StatusNotFound, errorResponse("Category not found"))
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if req.ImagePath != nil {
		updates["image_path"] = *req.ImagePath
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("No fields to update"))
		return
	}

	if err := h.db.Model(&item).Updates(updates).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item updated successfully", item))
}

func (h *MenuHandler) DeleteItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var ordered int64
	if err := h.db.Model(&models.OrderItem{}).Where("menu_item_id = ?", itemID).Count(&ordered).Error; err != nil {
		respondError(c, err)
		return
	}
	if ordered > 0 {
		var item models.MenuItem
		if err := h.db.First(&item, itemID).Error; err != nil {
			c.JSON(http.StatusNotFound, errorResponse("Menu item not found"))
			return
		}
		if err := h.db.Model(&item).Update("is_available", false).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse("Menu item has order history, marked unavailable instead", item))
		return
	}

	res := h.db.Delete(&models.MenuItem{}, itemID)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Menu item not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Menu item deleted successfully", nil))
}
