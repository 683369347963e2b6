package models

import (
	"github.com/shopspring/decimal"
)

// OrderItem links a menu item to an order with a quantity. It is the
// associative row of the order/menu many-to-many relationship; both
// foreign keys cascade so deleting either parent removes the row.
type OrderItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	MenuItemID uint            `gorm:"not null;index" json:"menu_item_id"`
	MenuItem   MenuItem        `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE" json:"menu_item"`
	Quantity   int             `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	LineTotal  decimal.Decimal `gorm:"-" json:"total_price"` // computed, price x quantity
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// Total returns the exact decimal price of this line: menu item price
// multiplied by quantity. MenuItem must be loaded.
func (i *OrderItem) Total() decimal.Decimal {
	return i.MenuItem.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
