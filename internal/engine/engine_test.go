package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resto-system/internal/database/models"
	"resto-system/internal/events"
	"resto-system/internal/tickets"
)

type recordingBroadcaster struct {
	published []events.Event
}

func (r *recordingBroadcaster) Publish(ctx context.Context, channel string, payload interface{}) error {
	ev, _ := payload.(events.Event)
	ev.Channel = channel
	r.published = append(r.published, ev)
	return nil
}

type testEnv struct {
	db        *gorm.DB
	engine    *Engine
	bc        *recordingBroadcaster
	waiter    *models.User
	kitchen   *models.User
	reception *models.User
	owner     *models.User
	table     *models.RestaurantTable
	burger    *models.MenuItem
	pasta     *models.MenuItem
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RestaurantTable{},
		&models.Category{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.KitchenPrint{},
		&models.Notification{},
	))

	env := &testEnv{db: db, bc: &recordingBroadcaster{}}
	env.engine = New(db, tickets.NewTracker(db), events.NewFanout(env.bc))

	env.waiter = seedUser(t, db, "amira", models.RoleWaiter)
	env.kitchen = seedUser(t, db, "budi", models.RoleKitchen)
	env.reception = seedUser(t, db, "citra", models.RoleReception)
	env.owner = seedUser(t, db, "dewi", models.RoleOwner)

	env.table = &models.RestaurantTable{Name: "T1", Capacity: 4, Status: models.TableAvailable}
	require.NoError(t, db.Create(env.table).Error)

	category := &models.Category{Name: "Mains"}
	require.NoError(t, db.Create(category).Error)

	env.burger = &models.MenuItem{Name: "Burger", Price: "10.00", CategoryID: category.ID, IsAvailable: true}
	env.pasta = &models.MenuItem{Name: "Pasta", Price: "12.50", CategoryID: category.ID, IsAvailable: true}
	require.NoError(t, db.Create(env.burger).Error)
	require.NoError(t, db.Create(env.pasta).Error)

	return env
}

func timeIn(t *testing.T, hours int) time.Time {
	t.Helper()
	return time.Now().Add(time.Duration(hours) * time.Hour)
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Fullname: username,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func (env *testEnv) reloadTable(t *testing.T) *models.RestaurantTable {
	t.Helper()
	var table models.RestaurantTable
	require.NoError(t, env.db.First(&table, env.table.ID).Error)
	return &table
}

func (env *testEnv) printCount(t *testing.T, orderID int64, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&models.KitchenPrint{}).
		Where("order_id = ? AND type = ?", orderID, eventType).
		Count(&n).Error)
	return n
}

func TestAssignTableOccupiesAndOpensOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.AssignTable(ctx, env.waiter, env.table.ID, 2, "")
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "0.00", order.TotalAmount)
	assert.Equal(t, env.waiter.ID, order.UserID)
	assert.Equal(t, models.TableOccupied, env.reloadTable(t).Status)

	var notifs int64
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", env.reception.ID, events.NotifTableAssigned).
		Count(&notifs).Error)
	assert.Equal(t, int64(1), notifs)
	assert.NotEmpty(t, env.bc.published)
}

func TestAssignTableRejectsOccupiedTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.AssignTable(ctx, env.waiter, env.table.ID, 2, "")
	require.NoError(t, err)

	_, err = env.engine.AssignTable(ctx, env.waiter, env.table.ID, 2, "")
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))

	var orders int64
	require.NoError(t, env.db.Model(&models.Order{}).
		Where("restaurant_table_id = ?", env.table.ID).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestAssignTableValidatesCustomerCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.AssignTable(ctx, env.waiter, env.table.ID, 0, "")
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))

	_, err = env.engine.AssignTable(ctx, env.waiter, env.table.ID, 5, "")
	require.True(t, errors.As(err, &validation))

	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)
}

func TestAssignTableRequiresCapability(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.AssignTable(context.Background(), env.kitchen, env.table.ID, 2, "")
	var forbidden *AuthorizationError
	require.True(t, errors.As(err, &forbidden))
}

func TestCreateOrderSnapshotsPricesAndComputesTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 2},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "20.00", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "10.00", order.Items[0].PriceAtOrder)

	require.NoError(t, env.db.Model(env.burger).Update("price", "99.00").Error)
	order, err = env.engine.AddItems(ctx, env.waiter, order.ID, []ItemInput{
		{MenuItemID: env.pasta.ID, Quantity: 1},
	})
	require.NoError(t, err)

	// menu edit must not move the snapshot
	assert.Equal(t, "32.50", order.TotalAmount)
	assert.Equal(t, int64(1), env.printCount(t, order.ID, models.PrintNewOrder))
}

func TestUpdateItemQuantityRecomputesTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 2},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.TotalAmount)

	order, err = env.engine.UpdateItem(ctx, env.waiter, order.ID, order.Items[0].ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.00", order.TotalAmount)
}

func TestRemoveLastItemCancelsOrderAndFreesTable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	order, err = env.engine.RemoveItem(ctx, env.waiter, order.ID, order.Items[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderCancelled, order.Status)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)
	assert.Equal(t, int64(1), env.printCount(t, order.ID, models.PrintCancellation))
}

func TestRemoveItemKeepsOrderAliveWhenOthersRemain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
		{MenuItemID: env.pasta.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	order, err = env.engine.RemoveItem(ctx, env.waiter, order.ID, order.Items[0].ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, "12.50", order.TotalAmount)
	assert.Equal(t, models.TableOccupied, env.reloadTable(t).Status)
}

func TestTerminalOrdersRejectEveryTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.MarkPaid(ctx, env.reception, order.ID)
	require.NoError(t, err)

	var conflict *ConflictError

	_, err = env.engine.MarkPaid(ctx, env.reception, order.ID)
	require.True(t, errors.As(err, &conflict), "paying a paid order must conflict")

	_, err = env.engine.AddItems(ctx, env.waiter, order.ID, []ItemInput{
		{MenuItemID: env.pasta.ID, Quantity: 1},
	})
	require.True(t, errors.As(err, &conflict))

	_, err = env.engine.CancelOrder(ctx, env.waiter, order.ID)
	require.True(t, errors.As(err, &conflict))

	_, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.True(t, errors.As(err, &conflict))
}

func TestCancelledOrderCannotBePaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.CancelOrder(ctx, env.waiter, order.ID)
	require.NoError(t, err)

	_, err = env.engine.MarkPaid(ctx, env.reception, order.ID)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

// settleBehindBack registers a one-shot hook that rewrites the order's
// status right before the next orders update runs, standing in for a
// second session winning the race between the engine's read and its
// write.
func settleBehindBack(t *testing.T, db *gorm.DB, orderID int64, status string) {
	t.Helper()
	fired := false
	err := db.Callback().Update().Before("gorm:update").Register("settle_behind_back", func(db *gorm.DB) {
		if fired || db.Statement.Table != "orders" {
			return
		}
		fired = true
		_, execErr := db.Statement.ConnPool.ExecContext(db.Statement.Context,
			"UPDATE orders SET status = ? WHERE id = ?", status, orderID)
		if execErr != nil {
			db.AddError(execErr)
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Callback().Update().Remove("settle_behind_back")
	})
}

func TestMarkPaidConflictsWhenOrderSettledConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	settleBehindBack(t, env.db, order.ID, models.OrderCancelled)

	env.bc.published = nil
	_, err = env.engine.MarkPaid(ctx, env.reception, order.ID)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Empty(t, env.bc.published)

	var reloaded models.Order
	require.NoError(t, env.db.First(&reloaded, order.ID).Error)
	assert.NotEqual(t, models.OrderPaid, reloaded.Status)
	assert.Nil(t, reloaded.CompletedAt)

	var paidNotifs int64
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", env.waiter.ID, events.NotifOrderPaid).
		Count(&paidNotifs).Error)
	assert.Zero(t, paidNotifs)
}

func TestCancelConflictsWhenOrderSettledConcurrently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	settleBehindBack(t, env.db, order.ID, models.OrderPaid)

	_, err = env.engine.CancelOrder(ctx, env.waiter, order.ID)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))

	var reloaded models.Order
	require.NoError(t, env.db.First(&reloaded, order.ID).Error)
	assert.NotEqual(t, models.OrderCancelled, reloaded.Status)
	assert.Zero(t, env.printCount(t, order.ID, models.PrintCancellation))
}

func TestMarkPaidFreesTableAndSetsCompletedAt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	order, err = env.engine.MarkPaid(ctx, env.reception, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderPaid, order.Status)
	require.NotNil(t, order.CompletedAt)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)

	var notif models.Notification
	require.NoError(t, env.db.
		Where("user_id = ? AND type = ?", env.waiter.ID, events.NotifOrderPaid).
		First(&notif).Error)
}

func TestMarkPaidRequiresCapability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.MarkPaid(ctx, env.waiter, order.ID)
	var forbidden *AuthorizationError
	require.True(t, errors.As(err, &forbidden))
}

func TestKitchenLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	order, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.True(t, order.Items[0].PrintedToKitchen)

	order, err = env.engine.StartPreparing(ctx, env.kitchen, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, order.Status)

	order, err = env.engine.MarkReady(ctx, env.kitchen, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, order.Status)

	order, err = env.engine.MarkServed(ctx, env.waiter, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderServed, order.Status)
}

func TestStartPreparingRequiresConfirmedOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.StartPreparing(ctx, env.kitchen, order.ID)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestAllItemsReadyAutoAdvancesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 3, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
		{MenuItemID: env.burger.ID, Quantity: 1},
		{MenuItemID: env.pasta.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.NoError(t, err)
	order, err = env.engine.StartPreparing(ctx, env.kitchen, order.ID)
	require.NoError(t, err)

	items := order.Items
	require.Len(t, items, 3)

	order, err = env.engine.UpdateItemStatus(ctx, env.kitchen, order.ID, items[0].ID, models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, order.Status)

	order, err = env.engine.UpdateItemStatus(ctx, env.kitchen, order.ID, items[1].ID, models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPreparing, order.Status)

	// [ready, ready, cancelled] counts as all ready
	order, err = env.engine.UpdateItemStatus(ctx, env.kitchen, order.ID, items[2].ID, models.ItemCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, order.Status)
	assert.Equal(t, "20.00", order.TotalAmount)

	// re-checking an already-ready order stays a no-op
	order, err = env.engine.UpdateItemStatus(ctx, env.kitchen, order.ID, items[0].ID, models.ItemReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, order.Status)
	assert.Equal(t, int64(1), env.printCount(t, order.ID, models.PrintReady))

	var readyNotifs int64
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", env.waiter.ID, events.NotifOrderReady).
		Count(&readyNotifs).Error)
	assert.Equal(t, int64(1), readyNotifs)
}

func TestCancellingLastLiveItemCancelsOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 1, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.NoError(t, err)

	order, err = env.engine.UpdateItemStatus(ctx, env.kitchen, order.ID, order.Items[0].ID, models.ItemCancelled)
	require.NoError(t, err)

	assert.Equal(t, models.OrderCancelled, order.Status)
	assert.Equal(t, "0.00", order.TotalAmount)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)
}

func TestUpdateItemStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 1, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	_, err = env.engine.UpdateItemStatus(ctx, env.kitchen, order.ID, order.Items[0].ID, "burnt")
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
}

func TestSendToKitchenOnlyPrintsNewItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	order, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.NoError(t, err)

	order, err = env.engine.AddItems(ctx, env.waiter, order.ID, []ItemInput{
		{MenuItemID: env.pasta.ID, Quantity: 1},
	})
	require.NoError(t, err)

	order, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.NoError(t, err)

	for _, item := range order.Items {
		assert.True(t, item.PrintedToKitchen, "item %d should be printed", item.ID)
	}
	assert.Equal(t, int64(2), env.printCount(t, order.ID, models.PrintSendToKitchen))
}

func TestCancelOrderFreesTableAndNotifiesReception(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	order, err = env.engine.CancelOrder(ctx, env.waiter, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderCancelled, order.Status)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)

	var notif models.Notification
	require.NoError(t, env.db.
		Where("user_id = ? AND type = ?", env.reception.ID, events.NotifOrderCancelled).
		First(&notif).Error)
	require.NotNil(t, notif.Link)
}

func TestUnassignTableCancelsActiveOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	table, err := env.engine.UnassignTable(ctx, env.reception, env.table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, table.Status)

	var reloaded models.Order
	require.NoError(t, env.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, models.OrderCancelled, reloaded.Status)
}

func TestUnassignAvailableTableConflicts(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.UnassignTable(context.Background(), env.reception, env.table.ID)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestReserveTableOnlyWhenAvailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.AssignTable(ctx, env.waiter, env.table.ID, 2, "")
	require.NoError(t, err)

	_, err = env.engine.ReserveTable(ctx, env.reception, env.table.ID, ReservationInput{
		ReservationTime: timeIn(t, 2),
		CustomerName:    "Pak Agus",
		CustomerPhone:   "0812000111",
		CustomerCount:   2,
	})
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestOccupiedMeansExactlyOneLiveOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 2},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, env.reloadTable(t).Status)

	_, err = env.engine.MarkPaid(ctx, env.reception, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)

	// the table can host a fresh party right away
	next, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 3, []ItemInput{
		{MenuItemID: env.pasta.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)
	assert.NotEqual(t, order.ID, next.ID)

	var live int64
	require.NoError(t, env.db.Model(&models.Order{}).
		Where("restaurant_table_id = ? AND status NOT IN ?", env.table.ID,
			[]string{models.OrderPaid, models.OrderCancelled}).
		Count(&live).Error)
	assert.Equal(t, int64(1), live)
}

func TestFullDinnerService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 2},
	}, "window seat")
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.TotalAmount)

	order, err = env.engine.UpdateItem(ctx, env.waiter, order.ID, order.Items[0].ID, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.00", order.TotalAmount)

	order, err = env.engine.SendToKitchen(ctx, env.waiter, order.ID)
	require.NoError(t, err)
	order, err = env.engine.StartPreparing(ctx, env.kitchen, order.ID)
	require.NoError(t, err)
	order, err = env.engine.MarkReady(ctx, env.kitchen, order.ID)
	require.NoError(t, err)
	order, err = env.engine.MarkServed(ctx, env.kitchen, order.ID)
	require.NoError(t, err)

	order, err = env.engine.MarkPaid(ctx, env.owner, order.ID)
	require.NoError(t, err)

	assert.Equal(t, models.OrderPaid, order.Status)
	assert.Equal(t, "10.00", order.TotalAmount)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)
}

func TestFailedTransactionPublishesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: 9999, Quantity: 1},
	}, "")
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))

	assert.Empty(t, env.bc.published)
	assert.Equal(t, models.TableAvailable, env.reloadTable(t).Status)

	var orders int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
}

func TestRecomputeRejectsMalformedStoredPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
		{MenuItemID: env.pasta.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	require.NoError(t, env.db.Model(&models.OrderItem{}).
		Where("id = ?", order.Items[0].ID).
		Update("price_at_order", "not-a-price").Error)

	_, err = env.engine.UpdateItem(ctx, env.waiter, order.ID, order.Items[1].ID, 2, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed price")

	// the stored total is untouched by the failed recompute
	var reloaded models.Order
	require.NoError(t, env.db.First(&reloaded, order.ID).Error)
	assert.Equal(t, "22.50", reloaded.TotalAmount)
}

func TestAddNoteAppendsTimestampedLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "original")
	require.NoError(t, err)

	order, err = env.engine.AddNote(ctx, env.kitchen, order.ID, "out of fries")
	require.NoError(t, err)

	assert.Contains(t, order.Notes, "original")
	assert.Contains(t, order.Notes, "out of fries")
}

func TestReportIssueNotifiesReception(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, env.waiter, env.table.ID, 2, []ItemInput{
		{MenuItemID: env.burger.ID, Quantity: 1},
	}, "")
	require.NoError(t, err)

	require.NoError(t, env.engine.ReportIssue(ctx, env.kitchen, order.ID, "stove down"))

	var notif models.Notification
	require.NoError(t, env.db.
		Where("user_id = ? AND type = ?", env.reception.ID, events.NotifKitchenIssue).
		First(&notif).Error)
	assert.Contains(t, notif.Message, "stove down")
}
