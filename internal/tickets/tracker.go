package tickets

import (
	"time"

	"gorm.io/gorm"

	"resto-system/internal/database/models"
)

// Tracker owns the kitchen print log. Print records are append-only;
// reprints are distinguished by event type and never reset item flags.
type Tracker struct {
	db *gorm.DB
}

func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// RecordPrint appends one print event inside the caller's transaction.
func (t *Tracker) RecordPrint(tx *gorm.DB, orderID, actorID int64, eventType string) error {
	print := models.KitchenPrint{
		OrderID:   orderID,
		UserID:    actorID,
		Type:      eventType,
		PrintedAt: time.Now(),
	}
	return tx.Create(&print).Error
}

// UnprintedCount counts non-cancelled items that have not yet been sent
// to the kitchen.
func (t *Tracker) UnprintedCount(orderID int64) (int64, error) {
	var count int64
	err := t.db.Model(&models.OrderItem{}).
		Where("order_id = ? AND printed_to_kitchen = ? AND status <> ?",
			orderID, false, models.ItemCancelled).
		Count(&count).Error
	return count, err
}

// UnprintedItemIDs lists the items a send-to-kitchen event should cover.
func (t *Tracker) UnprintedItemIDs(tx *gorm.DB, orderID int64) ([]int64, error) {
	var ids []int64
	err := tx.Model(&models.OrderItem{}).
		Where("order_id = ? AND printed_to_kitchen = ? AND status <> ?",
			orderID, false, models.ItemCancelled).
		Pluck("id", &ids).Error
	return ids, err
}

// MarkPrinted flips the sent-to-kitchen flag on the given items so later
// unprinted queries reflect only genuinely new items.
func (t *Tracker) MarkPrinted(tx *gorm.DB, orderID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return tx.Model(&models.OrderItem{}).
		Where("order_id = ? AND id IN ?", orderID, itemIDs).
		Update("printed_to_kitchen", true).Error
}

// TodayPrints returns today's log for the kitchen dashboard.
func (t *Tracker) TodayPrints() ([]models.KitchenPrint, error) {
	var prints []models.KitchenPrint
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := t.db.
		Preload("Order.RestaurantTable").
		Preload("Order.Waiter").
		Where("created_at >= ?", startOfDay).
		Order("created_at desc").
		Find(&prints).Error
	return prints, err
}

// OrderPrints returns the full print history of one order.
func (t *Tracker) OrderPrints(orderID int64) ([]models.KitchenPrint, error) {
	var prints []models.KitchenPrint
	err := t.db.
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&prints).Error
	return prints, err
}
