package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"resto-system/internal/database/models"
	"resto-system/internal/events"
	"resto-system/internal/tickets"
)

// Engine is the single authority for order-status transitions and their
// side effects on table occupancy and order totals. Every operation takes
// the acting user explicitly and runs its read-decide-write section in one
// transaction; table preconditions are closed with conditional updates so
// a concurrent loser gets a ConflictError instead of a double transition.
// Notification rows are persisted inside the transaction; broadcasts are
// published only after commit.
type Engine struct {
	db      *gorm.DB
	tracker *tickets.Tracker
	fanout  *events.Fanout
}

func New(db *gorm.DB, tracker *tickets.Tracker, fanout *events.Fanout) *Engine {
	return &Engine{db: db, tracker: tracker, fanout: fanout}
}

type ItemInput struct {
	MenuItemID          int64   `json:"menu_item_id" binding:"required"`
	Quantity            int32   `json:"quantity" binding:"required,min=1"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

type ReservationInput struct {
	ReservationTime time.Time `json:"reservation_time" binding:"required"`
	CustomerName    string    `json:"customer_name" binding:"required"`
	CustomerPhone   string    `json:"customer_phone" binding:"required"`
	CustomerCount   int32     `json:"customer_count" binding:"required,min=1"`
}

func requireRole(actor *models.User, roles ...string) error {
	if actor == nil {
		return Forbiddenf("authentication required")
	}
	if !actor.HasRole(roles...) {
		return Forbiddenf("role %s may not perform this action", actor.Role)
	}
	return nil
}

// withTx runs fn in a transaction and publishes the events fn returns
// once the commit has succeeded, so subscribers never observe state that
// is later rolled back.
func (e *Engine) withTx(ctx context.Context, fn func(tx *gorm.DB) ([]events.Event, error)) error {
	tx := e.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	evts, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	e.fanout.Publish(ctx, evts)
	return nil
}

func (e *Engine) loadTable(tx *gorm.DB, tableID int64) (*models.RestaurantTable, error) {
	var table models.RestaurantTable
	if err := tx.First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("table %d not found", tableID)
		}
		return nil, err
	}
	return &table, nil
}

func (e *Engine) loadOrder(tx *gorm.DB, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("order %d not found", orderID)
		}
		return nil, err
	}
	return &order, nil
}

// loadActiveOrder rejects terminal orders with a ConflictError; terminal
// mutation attempts are always reported, never silently dropped.
func (e *Engine) loadActiveOrder(tx *gorm.DB, orderID int64) (*models.Order, error) {
	order, err := e.loadOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalOrderStatus(order.Status) {
		return nil, Conflictf("order %d is %s and can no longer be modified", order.ID, order.Status)
	}
	return order, nil
}

func (e *Engine) reloadOrder(tx *gorm.DB, orderID int64) (*models.Order, error) {
	var order models.Order
	err := tx.
		Preload("RestaurantTable").
		Preload("Waiter").
		Preload("Items.MenuItem").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// recomputeTotal derives the order total from scratch over the current
// non-cancelled items. Totals are never incrementally trusted.
func (e *Engine) recomputeTotal(tx *gorm.DB, orderID int64) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ? AND status <> ?", orderID, models.ItemCancelled).
		Find(&items).Error; err != nil {
		return err
	}

	total := decimal.Zero
	for _, item := range items {
		price, err := decimal.NewFromString(item.PriceAtOrder)
		if err != nil {
			return fmt.Errorf("order %d item %d has malformed price %q: %w",
				orderID, item.ID, item.PriceAtOrder, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	return tx.Model(&models.Order{}).Where("id = ?", orderID).
		Update("total_amount", total.StringFixed(2)).Error
}

// freeTable returns a table to the floor, clearing reservation metadata.
func (e *Engine) freeTable(tx *gorm.DB, tableID int64) (*models.RestaurantTable, error) {
	err := tx.Model(&models.RestaurantTable{}).Where("id = ?", tableID).
		Updates(map[string]interface{}{
			"status":           models.TableAvailable,
			"reservation_time": nil,
			"customer_name":    nil,
			"customer_phone":   nil,
			"customer_count":   nil,
		}).Error
	if err != nil {
		return nil, err
	}
	return e.loadTable(tx, tableID)
}

// occupyTable is the conditional available→occupied transition. The
// WHERE clause on the current status closes the double-assign race: the
// second of two concurrent requests updates zero rows and loses.
func (e *Engine) occupyTable(tx *gorm.DB, tableID int64) (*models.RestaurantTable, error) {
	res := tx.Model(&models.RestaurantTable{}).
		Where("id = ? AND status = ?", tableID, models.TableAvailable).
		Update("status", models.TableOccupied)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		table, err := e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		return nil, Conflictf("table %s is not available", table.Name)
	}
	return e.loadTable(tx, tableID)
}

// AssignTable seats customers at an available table and opens an empty
// pending order for it.
func (e *Engine) AssignTable(ctx context.Context, actor *models.User, tableID int64, customerCount int32, notes string) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}
	if customerCount < 1 {
		return nil, Invalidf("customer_count must be at least 1")
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		table, err := e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		if customerCount > table.Capacity {
			return nil, Invalidf("customer_count %d exceeds table capacity %d", customerCount, table.Capacity)
		}

		table, err = e.occupyTable(tx, tableID)
		if err != nil {
			return nil, err
		}

		order := models.Order{
			RestaurantTableID: tableID,
			UserID:            actor.ID,
			CustomerCount:     customerCount,
			Status:            models.OrderPending,
			TotalAmount:       "0.00",
			Notes:             notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.TableAssigned(tx, table, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder assigns a table and adds the first items in one step.
func (e *Engine) CreateOrder(ctx context.Context, actor *models.User, tableID int64, customerCount int32, items []ItemInput, notes string) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}
	if customerCount < 1 {
		return nil, Invalidf("customer_count must be at least 1")
	}
	if len(items) == 0 {
		return nil, Invalidf("order must have at least one item")
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		table, err := e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		if customerCount > table.Capacity {
			return nil, Invalidf("customer_count %d exceeds table capacity %d", customerCount, table.Capacity)
		}

		table, err = e.occupyTable(tx, tableID)
		if err != nil {
			return nil, err
		}

		order := models.Order{
			RestaurantTableID: tableID,
			UserID:            actor.ID,
			CustomerCount:     customerCount,
			Status:            models.OrderPending,
			TotalAmount:       "0.00",
			Notes:             notes,
		}
		if err := tx.Create(&order).Error; err != nil {
			return nil, err
		}

		if err := e.createItems(tx, &order, items); err != nil {
			return nil, err
		}
		if err := e.recomputeTotal(tx, order.ID); err != nil {
			return nil, err
		}
		if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintNewOrder); err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderCreated(tx, table, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// createItems snapshots the current menu price onto each new item; later
// menu edits never touch price_at_order.
func (e *Engine) createItems(tx *gorm.DB, order *models.Order, items []ItemInput) error {
	for _, input := range items {
		if input.Quantity < 1 {
			return Invalidf("item quantity must be at least 1")
		}

		var menuItem models.MenuItem
		if err := tx.First(&menuItem, input.MenuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("menu item %d not found", input.MenuItemID)
			}
			return err
		}
		if !menuItem.IsAvailable {
			return Invalidf("menu item %s is not available", menuItem.Name)
		}

		item := models.OrderItem{
			OrderID:             order.ID,
			MenuItemID:          menuItem.ID,
			Quantity:            input.Quantity,
			PriceAtOrder:        menuItem.Price,
			Status:              models.ItemPending,
			PrintedToKitchen:    false,
			SpecialInstructions: input.SpecialInstructions,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}
	return nil
}

// AddItems appends items to a live order and re-derives its total.
func (e *Engine) AddItems(ctx context.Context, actor *models.User, orderID int64, items []ItemInput) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, Invalidf("at least one item is required")
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := e.createItems(tx, order, items); err != nil {
			return nil, err
		}
		if err := e.recomputeTotal(tx, order.ID); err != nil {
			return nil, err
		}
		if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintAddItems); err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem changes quantity or instructions on a live order's item.
func (e *Engine) UpdateItem(ctx context.Context, actor *models.User, orderID, itemID int64, quantity int32, instructions *string) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, Invalidf("quantity must be at least 1")
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		item, err := e.loadItem(tx, order.ID, itemID)
		if err != nil {
			return nil, err
		}
		if item.Status == models.ItemCancelled {
			return nil, Conflictf("item %d is cancelled", item.ID)
		}

		updates := map[string]interface{}{"quantity": quantity}
		if instructions != nil {
			updates["special_instructions"] = *instructions
		}
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := e.recomputeTotal(tx, order.ID); err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) loadItem(tx *gorm.DB, orderID, itemID int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundf("order item %d not found", itemID)
		}
		return nil, err
	}
	return &item, nil
}

// RemoveItem deletes an item; removing the last non-cancelled item
// cancels the order and frees its table.
func (e *Engine) RemoveItem(ctx context.Context, actor *models.User, orderID, itemID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		res := tx.Where("id = ? AND order_id = ?", itemID, order.ID).Delete(&models.OrderItem{})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, NotFoundf("order item %d not found", itemID)
		}

		if err := e.recomputeTotal(tx, order.ID); err != nil {
			return nil, err
		}

		remaining, err := e.liveItemCount(tx, order.ID)
		if err != nil {
			return nil, err
		}
		if remaining == 0 {
			return e.cancelInTx(tx, actor, order, &out)
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) liveItemCount(tx *gorm.DB, orderID int64) (int64, error) {
	var count int64
	err := tx.Model(&models.OrderItem{}).
		Where("order_id = ? AND status <> ?", orderID, models.ItemCancelled).
		Count(&count).Error
	return count, err
}

// cancelInTx performs the cancellation side effects shared by explicit
// cancel, unassign and the remove-last-item rule. The conditional update
// keeps a concurrent settlement from being overwritten: the loser updates
// zero rows and gets a conflict instead of cancelling a paid order.
func (e *Engine) cancelInTx(tx *gorm.DB, actor *models.User, order *models.Order, out **models.Order) ([]events.Event, error) {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", order.ID,
			[]string{models.OrderPaid, models.OrderCancelled}).
		Update("status", models.OrderCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Conflictf("order %d was already settled", order.ID)
	}

	table, err := e.freeTable(tx, order.RestaurantTableID)
	if err != nil {
		return nil, err
	}

	if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintCancellation); err != nil {
		return nil, err
	}

	reloaded, err := e.reloadOrder(tx, order.ID)
	if err != nil {
		return nil, err
	}
	*out = reloaded
	return e.fanout.OrderCancelled(tx, table, reloaded)
}

// CancelOrder aborts a live order and frees its table.
func (e *Engine) CancelOrder(ctx context.Context, actor *models.User, orderID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception, models.RoleOwner); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}
		return e.cancelInTx(tx, actor, order, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SendToKitchen marks the unprinted items as sent and confirms the order.
func (e *Engine) SendToKitchen(ctx context.Context, actor *models.User, orderID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		ids, err := e.tracker.UnprintedItemIDs(tx, order.ID)
		if err != nil {
			return nil, err
		}
		if err := e.tracker.MarkPrinted(tx, order.ID, ids); err != nil {
			return nil, err
		}

		err = tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", models.OrderConfirmed).Error
		if err != nil {
			return nil, err
		}
		if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintSendToKitchen); err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StartPreparing moves a confirmed order into preparation.
func (e *Engine) StartPreparing(ctx context.Context, actor *models.User, orderID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleKitchen); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderConfirmed).
			Update("status", models.OrderPreparing)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, Conflictf("order %d is %s, expected %s", order.ID, order.Status, models.OrderConfirmed)
		}

		if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintStartPrep); err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderPreparing(tx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReady completes preparation for the whole order.
func (e *Engine) MarkReady(ctx context.Context, actor *models.User, orderID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleKitchen); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderPreparing).
			Update("status", models.OrderReady)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, Conflictf("order %d is %s, expected %s", order.ID, order.Status, models.OrderPreparing)
		}

		if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintReady); err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderReady(tx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkServed hands a ready order to the table.
func (e *Engine) MarkServed(ctx context.Context, actor *models.User, orderID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleKitchen, models.RoleWaiter); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderReady).
			Update("status", models.OrderServed)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, Conflictf("order %d is %s, expected %s", order.ID, order.Status, models.OrderReady)
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaid settles the order and returns its table to the floor.
func (e *Engine) MarkPaid(ctx context.Context, actor *models.User, orderID int64) (*models.Order, error) {
	if err := requireRole(actor, models.RoleReception, models.RoleOwner); err != nil {
		return nil, err
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadOrder(tx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Status == models.OrderPaid {
			return nil, Conflictf("order %d is already paid", order.ID)
		}
		if order.Status == models.OrderCancelled {
			return nil, Conflictf("order %d is cancelled and cannot be paid", order.ID)
		}

		now := time.Now()
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status NOT IN ?", order.ID,
				[]string{models.OrderPaid, models.OrderCancelled}).
			Updates(map[string]interface{}{
				"status":       models.OrderPaid,
				"completed_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, Conflictf("order %d was already settled", order.ID)
		}

		table, err := e.freeTable(tx, order.RestaurantTableID)
		if err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		return e.fanout.OrderPaid(tx, table, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItemStatus is the kitchen's per-item workflow. If every remaining
// non-cancelled item is ready the order auto-advances to ready, once;
// cancelling the last live item cancels the order.
func (e *Engine) UpdateItemStatus(ctx context.Context, actor *models.User, orderID, itemID int64, status string) (*models.Order, error) {
	if err := requireRole(actor, models.RoleKitchen); err != nil {
		return nil, err
	}
	switch status {
	case models.ItemPending, models.ItemPreparing, models.ItemReady, models.ItemCancelled:
	default:
		return nil, Invalidf("invalid item status %q", status)
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		item, err := e.loadItem(tx, order.ID, itemID)
		if err != nil {
			return nil, err
		}
		if err := tx.Model(item).Update("status", status).Error; err != nil {
			return nil, err
		}
		if err := e.recomputeTotal(tx, order.ID); err != nil {
			return nil, err
		}

		remaining, err := e.liveItemCount(tx, order.ID)
		if err != nil {
			return nil, err
		}
		if remaining == 0 {
			return e.cancelInTx(tx, actor, order, &out)
		}

		advanced, err := e.autoAdvanceReady(tx, actor, order, remaining)
		if err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		if err != nil {
			return nil, err
		}
		if advanced {
			return e.fanout.OrderReady(tx, out)
		}
		return e.fanout.OrderStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// autoAdvanceReady moves the order to ready when every non-cancelled item
// is ready. Re-checking an already-ready order is a no-op.
func (e *Engine) autoAdvanceReady(tx *gorm.DB, actor *models.User, order *models.Order, liveItems int64) (bool, error) {
	if liveItems == 0 {
		return false, nil
	}

	var notReady int64
	err := tx.Model(&models.OrderItem{}).
		Where("order_id = ? AND status <> ? AND status <> ?",
			order.ID, models.ItemCancelled, models.ItemReady).
		Count(&notReady).Error
	if err != nil {
		return false, err
	}
	if notReady > 0 {
		return false, nil
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND status <> ? AND status NOT IN ?",
			order.ID, models.OrderReady, []string{models.OrderPaid, models.OrderCancelled}).
		Update("status", models.OrderReady)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := e.tracker.RecordPrint(tx, order.ID, actor.ID, models.PrintReady); err != nil {
		return false, err
	}
	return true, nil
}

// UnassignTable clears an occupied table, cancelling any live order on it.
func (e *Engine) UnassignTable(ctx context.Context, actor *models.User, tableID int64) (*models.RestaurantTable, error) {
	if err := requireRole(actor, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}

	var out *models.RestaurantTable
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		table, err := e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		if table.Status != models.TableOccupied && table.Status != models.TableReserved {
			return nil, Conflictf("table %s is not occupied", table.Name)
		}

		var order models.Order
		err = tx.Where("restaurant_table_id = ? AND status NOT IN ?",
			tableID, []string{models.OrderPaid, models.OrderCancelled}).
			First(&order).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		var evts []events.Event
		if err == nil {
			var cancelled *models.Order
			evts, err = e.cancelInTx(tx, actor, &order, &cancelled)
			if err != nil {
				return nil, err
			}
		} else {
			table, err = e.freeTable(tx, tableID)
			if err != nil {
				return nil, err
			}
			evts = e.fanout.TableStatusChanged(table)
		}

		out, err = e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		return evts, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReserveTable holds an available table for a future party.
func (e *Engine) ReserveTable(ctx context.Context, actor *models.User, tableID int64, input ReservationInput) (*models.RestaurantTable, error) {
	if err := requireRole(actor, models.RoleReception, models.RoleWaiter); err != nil {
		return nil, err
	}
	if input.ReservationTime.Before(time.Now()) {
		return nil, Invalidf("reservation_time must be in the future")
	}

	var out *models.RestaurantTable
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		table, err := e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		if input.CustomerCount > table.Capacity {
			return nil, Invalidf("customer_count %d exceeds table capacity %d", input.CustomerCount, table.Capacity)
		}

		res := tx.Model(&models.RestaurantTable{}).
			Where("id = ? AND status = ?", tableID, models.TableAvailable).
			Updates(map[string]interface{}{
				"status":           models.TableReserved,
				"reservation_time": input.ReservationTime,
				"customer_name":    input.CustomerName,
				"customer_phone":   input.CustomerPhone,
				"customer_count":   input.CustomerCount,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, Conflictf("table %s is not available", table.Name)
		}

		out, err = e.loadTable(tx, tableID)
		if err != nil {
			return nil, err
		}
		return e.fanout.TableStatusChanged(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddNote appends a timestamped line to the order notes.
func (e *Engine) AddNote(ctx context.Context, actor *models.User, orderID int64, note string) (*models.Order, error) {
	if err := requireRole(actor, models.RoleKitchen, models.RoleWaiter, models.RoleReception); err != nil {
		return nil, err
	}
	if note == "" {
		return nil, Invalidf("note is required")
	}

	var out *models.Order
	err := e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadActiveOrder(tx, orderID)
		if err != nil {
			return nil, err
		}

		stamped := order.Notes + "\n" + time.Now().Format("15:04") + ": " + note
		err = tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("notes", stamped).Error
		if err != nil {
			return nil, err
		}

		out, err = e.reloadOrder(tx, order.ID)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReportIssue notifies reception of a kitchen problem with an order.
func (e *Engine) ReportIssue(ctx context.Context, actor *models.User, orderID int64, issue string) error {
	if err := requireRole(actor, models.RoleKitchen); err != nil {
		return err
	}
	if issue == "" {
		return Invalidf("issue is required")
	}

	return e.withTx(ctx, func(tx *gorm.DB) ([]events.Event, error) {
		order, err := e.loadOrder(tx, orderID)
		if err != nil {
			return nil, err
		}
		return e.fanout.KitchenIssue(tx, order, issue)
	})
}
