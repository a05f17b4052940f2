package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/middleware"
)

type NotificationHandler struct {
	db *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	q := h.db.Where("user_id = ?", user.ID)
	if c.Query("unread") == "true" {
		q = q.Where("read_at IS NULL")
	}

	var notifications []models.Notification
	if err := q.Order("created_at desc").Limit(100).Find(&notifications).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Notifications retrieved successfully", notifications))
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var count int64
	err := h.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", user.ID).
		Count(&count).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Unread count retrieved successfully", map[string]int64{
		"unread": count,
	}))
}

// loadOwn fetches the notification only if it belongs to the caller;
// someone else's notification is a 403, not a 404.
func (h *NotificationHandler) loadOwn(c *gin.Context, id int64) (*models.Notification, bool) {
	user := middleware.CurrentUser(c)

	var n models.Notification
	if err := h.db.First(&n, id).Error; err != nil {
		c.JSON(http.StatusNotFound, errorResponse("Notification not found"))
		return nil, false
	}
	if n.UserID != user.ID {
		c.JSON(http.StatusForbidden, errorResponse("Notification belongs to another user"))
		return nil, false
	}
	return &n, true
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	n, ok := h.loadOwn(c, id)
	if !ok {
		return
	}

	if n.ReadAt == nil {
		now := time.Now()
		if err := h.db.Model(n).Update("read_at", now).Error; err != nil {
			respondError(c, err)
			return
		}
		n.ReadAt = &now
	}

	c.JSON(http.StatusOK, successResponse("Notification marked as read", n))
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user := middleware.CurrentUser(c)

	now := time.Now()
	err := h.db.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", user.ID).
		Update("read_at", now).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("All notifications marked as read", nil))
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	n, ok := h.loadOwn(c, id)
	if !ok {
		return
	}

	if err := h.db.Delete(n).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Notification deleted successfully", nil))
}

func (h *NotificationHandler) ClearAll(c *gin.Context) {
	user := middleware.CurrentUser(c)

	err := h.db.Where("user_id = ?", user.ID).Delete(&models.Notification{}).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Notifications cleared successfully", nil))
}
