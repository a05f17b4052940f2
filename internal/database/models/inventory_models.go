package models

import "time"

// Stock transaction types.
const (
	StockAdd    = "add"
	StockRemove = "remove"
	StockSet    = "set"
)

type Supplier struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string  `gorm:"not null" json:"name"`
	ContactPerson *string `gorm:"type:varchar(255)" json:"contact_person,omitempty"`
	Email         *string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone         *string `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Address       *string `gorm:"type:text" json:"address,omitempty"`
	Notes         *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InventoryItems []InventoryItem `gorm:"foreignKey:SupplierID" json:"inventory_items,omitempty"`
}

type InventoryItem struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string  `gorm:"not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	SupplierID   *int64  `gorm:"index" json:"supplier_id,omitempty"`
	UnitPrice    string  `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Quantity     int32   `gorm:"not null;default:0" json:"quantity"`
	ReorderLevel int32   `gorm:"not null;default:0" json:"reorder_level"`
	Unit         string  `gorm:"type:varchar(50);not null" json:"unit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Supplier *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
}

type StockTransaction struct {
	ID              int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	InventoryItemID int64   `gorm:"not null;index" json:"inventory_item_id"`
	UserID          int64   `gorm:"not null" json:"user_id"`
	Type            string  `gorm:"type:varchar(32);not null" json:"type"`
	Quantity        int32   `gorm:"not null" json:"quantity"`
	OldQuantity     int32   `gorm:"not null" json:"old_quantity"`
	NewQuantity     int32   `gorm:"not null" json:"new_quantity"`
	Cost            *string `gorm:"type:decimal(10,2)" json:"cost,omitempty"`
	Notes           *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
