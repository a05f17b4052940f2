package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"resto-system/internal/database/models"
)

// Notification type tags.
const (
	NotifTableAssigned  = "table_assigned"
	NotifNewOrder       = "new_order"
	NotifOrderCancelled = "order_cancelled"
	NotifOrderStatus    = "order_status"
	NotifOrderReady     = "order_ready"
	NotifOrderPaid      = "order_paid"
	NotifKitchenIssue   = "kitchen_issue"
)

// Fanout persists per-user notification rows inside the caller's
// transaction and hands back the broadcast events to publish once that
// transaction has committed. Persistence failures propagate so the caller
// can roll back; publishing is best-effort.
type Fanout struct {
	bc Broadcaster
}

func NewFanout(bc Broadcaster) *Fanout {
	return &Fanout{bc: bc}
}

// Publish sends the accumulated events. Broadcast failures are logged and
// swallowed; a missed event is recovered by the client's refresh-on-load.
func (f *Fanout) Publish(ctx context.Context, evts []Event) {
	if f.bc == nil {
		return
	}
	for _, ev := range evts {
		if err := f.bc.Publish(ctx, ev.Channel, ev); err != nil {
			log.Printf("broadcast %s on %s failed: %v", ev.Event, ev.Channel, err)
		}
	}
}

// receptionPayload is the reception-notifications channel contract.
type receptionPayload struct {
	Message   string                  `json:"message"`
	Link      string                  `json:"link,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	Order     *models.Order           `json:"order,omitempty"`
	Table     *models.RestaurantTable `json:"table,omitempty"`
}

func billLink(orderID int64) string {
	return fmt.Sprintf("/reception/orders/%d/bill", orderID)
}

func (f *Fanout) notifyRole(tx *gorm.DB, role string, n models.Notification) error {
	var users []models.User
	if err := tx.Where("role = ? AND is_active = ?", role, true).Find(&users).Error; err != nil {
		return err
	}
	if len(users) == 0 {
		log.Printf("no active %s users to notify for %s", role, n.Type)
		return nil
	}
	for _, u := range users {
		row := n
		row.UserID = u.ID
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (f *Fanout) notifyUser(tx *gorm.DB, userID int64, n models.Notification) error {
	n.UserID = userID
	return tx.Create(&n).Error
}

func (f *Fanout) TableAssigned(tx *gorm.DB, table *models.RestaurantTable, order *models.Order) ([]Event, error) {
	msg := fmt.Sprintf("Table %s has been assigned to Order #%d with %d customers.",
		table.Name, order.ID, order.CustomerCount)
	link := billLink(order.ID)

	err := f.notifyRole(tx, models.RoleReception, models.Notification{
		Type:    NotifTableAssigned,
		Title:   "Table Assigned",
		Message: msg,
		Link:    &link,
		Data:    models.JSONMap{"order_id": order.ID, "table_id": table.ID},
	})
	if err != nil {
		return nil, err
	}

	return []Event{
		{Channel: ChannelReception, Event: EventTableAssigned, Data: receptionPayload{
			Message: msg, Link: link, CreatedAt: time.Now(), Order: order, Table: table,
		}},
		{Channel: ChannelRestaurant, Event: EventOrderCreated, Data: order},
		{Channel: ChannelRestaurant, Event: EventTableStatusChanged, Data: table},
	}, nil
}

func (f *Fanout) OrderCreated(tx *gorm.DB, table *models.RestaurantTable, order *models.Order) ([]Event, error) {
	msg := fmt.Sprintf("New order #%d created for table %s", order.ID, table.Name)

	err := f.notifyRole(tx, models.RoleReception, models.Notification{
		Type:    NotifNewOrder,
		Title:   "New Order",
		Message: msg,
		Data:    models.JSONMap{"order_id": order.ID, "table_id": table.ID},
	})
	if err != nil {
		return nil, err
	}

	return []Event{
		{Channel: ChannelRestaurant, Event: EventOrderCreated, Data: order},
		{Channel: ChannelRestaurant, Event: EventTableStatusChanged, Data: table},
	}, nil
}

func (f *Fanout) OrderCancelled(tx *gorm.DB, table *models.RestaurantTable, order *models.Order) ([]Event, error) {
	msg := fmt.Sprintf("Order #%d for Table %s has been cancelled.", order.ID, table.Name)
	link := billLink(order.ID)

	err := f.notifyRole(tx, models.RoleReception, models.Notification{
		Type:    NotifOrderCancelled,
		Title:   "Order Cancelled",
		Message: msg,
		Link:    &link,
		Data:    models.JSONMap{"order_id": order.ID},
	})
	if err != nil {
		return nil, err
	}

	return []Event{
		{Channel: ChannelReception, Event: EventOrderCancelled, Data: receptionPayload{
			Message: msg, Link: link, CreatedAt: time.Now(), Order: order,
		}},
		{Channel: ChannelRestaurant, Event: EventOrderUpdated, Data: order},
		{Channel: ChannelRestaurant, Event: EventTableStatusChanged, Data: table},
	}, nil
}

// OrderStatusChanged covers transitions with no dedicated recipient:
// dashboards refresh off restaurant-updates.
func (f *Fanout) OrderStatusChanged(order *models.Order) []Event {
	return []Event{
		{Channel: ChannelRestaurant, Event: EventOrderUpdated, Data: order},
	}
}

func (f *Fanout) OrderPreparing(tx *gorm.DB, order *models.Order) ([]Event, error) {
	err := f.notifyRole(tx, models.RoleReception, models.Notification{
		Type:    NotifOrderStatus,
		Title:   "Order Started",
		Message: fmt.Sprintf("Order #%d is now being prepared.", order.ID),
		Data:    models.JSONMap{"order_id": order.ID, "status": models.OrderPreparing},
	})
	if err != nil {
		return nil, err
	}
	return f.OrderStatusChanged(order), nil
}

func (f *Fanout) OrderReady(tx *gorm.DB, order *models.Order) ([]Event, error) {
	err := f.notifyUser(tx, order.UserID, models.Notification{
		Type:    NotifOrderReady,
		Title:   "Order Ready",
		Message: fmt.Sprintf("Order #%d is ready to serve.", order.ID),
		Data:    models.JSONMap{"order_id": order.ID},
	})
	if err != nil {
		return nil, err
	}
	return f.OrderStatusChanged(order), nil
}

func (f *Fanout) OrderPaid(tx *gorm.DB, table *models.RestaurantTable, order *models.Order) ([]Event, error) {
	err := f.notifyUser(tx, order.UserID, models.Notification{
		Type:    NotifOrderPaid,
		Title:   "Order Paid",
		Message: fmt.Sprintf("Order #%d has been paid and table cleared.", order.ID),
		Data:    models.JSONMap{"order_id": order.ID},
	})
	if err != nil {
		return nil, err
	}
	return []Event{
		{Channel: ChannelRestaurant, Event: EventOrderUpdated, Data: order},
		{Channel: ChannelRestaurant, Event: EventTableStatusChanged, Data: table},
	}, nil
}

func (f *Fanout) KitchenIssue(tx *gorm.DB, order *models.Order, issue string) ([]Event, error) {
	msg := fmt.Sprintf("Issue with Order #%d: %s", order.ID, issue)

	err := f.notifyRole(tx, models.RoleReception, models.Notification{
		Type:    NotifKitchenIssue,
		Title:   "Kitchen Issue",
		Message: msg,
		Data:    models.JSONMap{"order_id": order.ID, "issue": issue},
	})
	if err != nil {
		return nil, err
	}

	return []Event{
		{Channel: ChannelReception, Event: EventOrderUpdated, Data: receptionPayload{
			Message: msg, CreatedAt: time.Now(), Order: order,
		}},
	}, nil
}

func (f *Fanout) InventoryUpdated(item *models.InventoryItem) []Event {
	return []Event{
		{Channel: ChannelRestaurant, Event: EventInventoryUpdated, Data: item},
	}
}

func (f *Fanout) TableStatusChanged(table *models.RestaurantTable) []Event {
	return []Event{
		{Channel: ChannelRestaurant, Event: EventTableStatusChanged, Data: table},
	}
}
