package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resto-system/internal/database/models"
)

func newTestTracker(t *testing.T) (*Tracker, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RestaurantTable{},
		&models.Order{},
		&models.OrderItem{},
		&models.KitchenPrint{},
	))

	return NewTracker(db), db
}

func seedOrderWithItems(t *testing.T, db *gorm.DB, itemStatuses ...string) *models.Order {
	t.Helper()

	order := &models.Order{
		RestaurantTableID: 1,
		UserID:            1,
		CustomerCount:     2,
		Status:            models.OrderPending,
		TotalAmount:       "0.00",
	}
	require.NoError(t, db.Create(order).Error)

	for _, status := range itemStatuses {
		item := &models.OrderItem{
			OrderID:      order.ID,
			MenuItemID:   1,
			Quantity:     1,
			PriceAtOrder: "10.00",
			Status:       status,
		}
		require.NoError(t, db.Create(item).Error)
	}
	return order
}

func TestUnprintedCountSkipsCancelledItems(t *testing.T) {
	tracker, db := newTestTracker(t)
	order := seedOrderWithItems(t, db, models.ItemPending, models.ItemPending, models.ItemCancelled)

	count, err := tracker.UnprintedCount(order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMarkPrintedClearsUnprintedSet(t *testing.T) {
	tracker, db := newTestTracker(t)
	order := seedOrderWithItems(t, db, models.ItemPending, models.ItemPending)

	ids, err := tracker.UnprintedItemIDs(db, order.ID)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.NoError(t, tracker.MarkPrinted(db, order.ID, ids))

	count, err := tracker.UnprintedCount(order.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// empty slice is a no-op, not an error
	require.NoError(t, tracker.MarkPrinted(db, order.ID, nil))
}

func TestUnprintedCountReflectsOnlyNewItems(t *testing.T) {
	tracker, db := newTestTracker(t)
	order := seedOrderWithItems(t, db, models.ItemPending)

	ids, err := tracker.UnprintedItemIDs(db, order.ID)
	require.NoError(t, err)
	require.NoError(t, tracker.MarkPrinted(db, order.ID, ids))

	late := &models.OrderItem{
		OrderID:      order.ID,
		MenuItemID:   2,
		Quantity:     1,
		PriceAtOrder: "5.00",
		Status:       models.ItemPending,
	}
	require.NoError(t, db.Create(late).Error)

	count, err := tracker.UnprintedCount(order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err = tracker.UnprintedItemIDs(db, order.ID)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, late.ID, ids[0])
}

func TestRecordPrintAppendsAndNeverResetsFlags(t *testing.T) {
	tracker, db := newTestTracker(t)
	order := seedOrderWithItems(t, db, models.ItemPending)

	ids, err := tracker.UnprintedItemIDs(db, order.ID)
	require.NoError(t, err)
	require.NoError(t, tracker.MarkPrinted(db, order.ID, ids))

	require.NoError(t, tracker.RecordPrint(db, order.ID, 1, models.PrintSendToKitchen))
	require.NoError(t, tracker.RecordPrint(db, order.ID, 1, models.PrintSendToKitchen))

	prints, err := tracker.OrderPrints(order.ID)
	require.NoError(t, err)
	assert.Len(t, prints, 2)

	// a reprint is only a second log row
	count, err := tracker.UnprintedCount(order.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTodayPrintsIncludesFreshEntries(t *testing.T) {
	tracker, db := newTestTracker(t)
	order := seedOrderWithItems(t, db, models.ItemPending)

	require.NoError(t, tracker.RecordPrint(db, order.ID, 1, models.PrintNewOrder))

	prints, err := tracker.TodayPrints()
	require.NoError(t, err)
	require.Len(t, prints, 1)
	assert.Equal(t, models.PrintNewOrder, prints[0].Type)
}
