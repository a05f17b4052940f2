package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Table statuses.
const (
	TableAvailable   = "available"
	TableOccupied    = "occupied"
	TableReserved    = "reserved"
	TableMaintenance = "maintenance"
)

// Order statuses. Paid and cancelled are terminal.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderServed    = "served"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

// Order item statuses.
const (
	ItemPending   = "pending"
	ItemPreparing = "preparing"
	ItemReady     = "ready"
	ItemCancelled = "cancelled"
)

// Kitchen print event types.
const (
	PrintNewOrder      = "new_order"
	PrintAddItems      = "add_items"
	PrintSendToKitchen = "send_to_kitchen"
	PrintStartPrep     = "start_preparing"
	PrintReady         = "ready"
	PrintCancellation  = "cancellation"
)

func IsTerminalOrderStatus(status string) bool {
	return status == OrderPaid || status == OrderCancelled
}

// JSONMap is stored as a JSON text column.
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("failed to scan JSONMap: %v", value)
	}
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

type RestaurantTable struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Capacity int32  `gorm:"not null" json:"capacity"`
	Status   string `gorm:"type:varchar(32);not null;default:'available';index" json:"status"`

	ReservationTime *time.Time `json:"reservation_time,omitempty"`
	CustomerName    *string    `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	CustomerPhone   *string    `gorm:"type:varchar(20)" json:"customer_phone,omitempty"`
	CustomerCount   *int32     `json:"customer_count,omitempty"`

	VisualCoordinates *string `gorm:"type:text" json:"visual_coordinates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Orders []Order `gorm:"foreignKey:RestaurantTableID" json:"orders,omitempty"`
}

type Order struct {
	ID                int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantTableID int64  `gorm:"not null;index" json:"restaurant_table_id"`
	UserID            int64  `gorm:"not null;index" json:"user_id"`
	CustomerCount     int32  `gorm:"not null" json:"customer_count"`
	Status            string `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	TotalAmount       string `gorm:"type:decimal(10,2);not null;default:'0.00'" json:"total_amount"`
	Notes             string `gorm:"type:text" json:"notes"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	RestaurantTable *RestaurantTable `gorm:"foreignKey:RestaurantTableID" json:"restaurant_table,omitempty"`
	Waiter          *User            `gorm:"foreignKey:UserID" json:"waiter,omitempty"`
	Items           []OrderItem      `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

type OrderItem struct {
	ID               int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64  `gorm:"not null;index" json:"order_id"`
	MenuItemID       int64  `gorm:"not null" json:"menu_item_id"`
	Quantity         int32  `gorm:"not null" json:"quantity"`
	PriceAtOrder     string `gorm:"type:decimal(10,2);not null" json:"price_at_order"`
	Status           string `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	PrintedToKitchen bool   `gorm:"not null;default:false" json:"printed_to_kitchen"`

	SpecialInstructions *string `gorm:"type:text" json:"special_instructions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MenuItem *MenuItem `gorm:"foreignKey:MenuItemID" json:"menu_item,omitempty"`
}

// KitchenPrint rows are append-only; nothing ever updates or deletes them.
type KitchenPrint struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	UserID    int64     `gorm:"not null" json:"user_id"`
	Type      string    `gorm:"type:varchar(32);not null" json:"type"`
	PrintedAt time.Time `gorm:"not null" json:"printed_at"`
	CreatedAt time.Time `json:"created_at"`

	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type Notification struct {
	ID      int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  int64   `gorm:"not null;index" json:"user_id"`
	Type    string  `gorm:"type:varchar(64);not null" json:"type"`
	Title   string  `gorm:"type:varchar(255)" json:"title"`
	Message string  `gorm:"type:text;not null" json:"message"`
	Data    JSONMap `gorm:"type:text" json:"data,omitempty"`
	Link    *string `gorm:"type:varchar(512)" json:"link,omitempty"`

	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Category struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	MenuItems []MenuItem `gorm:"foreignKey:CategoryID" json:"menu_items,omitempty"`
}

type MenuItem struct {
	ID          int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Price       string  `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID  int64   `gorm:"not null;index" json:"category_id"`
	IsAvailable bool    `gorm:"not null;default:true" json:"is_available"`
	ImagePath   *string `gorm:"type:varchar(512)" json:"image_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
