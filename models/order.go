package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. StatusFilterAll is a search-form sentinel meaning
// "no status filter" and must never be stored on a row.
const (
	StatusWaiting = "waiting"
	StatusReady   = "ready"
	StatusPaid    = "paid"

	StatusFilterAll = "all"
)

// ValidStatus reports whether s is a storable order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusWaiting, StatusReady, StatusPaid:
		return true
	}
	return false
}

// Order represents the order placed at a table, with its line items
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	TableNumber int         `gorm:"not null;check:table_number > 0" json:"table_number"`
	Status      string      `gorm:"not null;default:'waiting'" json:"status"` // waiting, ready, paid
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// Total sums the line totals of all loaded items with exact decimal
// arithmetic. Items must be preloaded together with their menu items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Total())
	}
	return total
}

// Annotate fills the derived line totals on the loaded items.
func (o *Order) Annotate() {
	for i := range o.Items {
		o.Items[i].LineTotal = o.Items[i].Total()
	}
}
