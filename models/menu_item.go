package models

import (
	"github.com/shopspring/decimal"
)

// MenuItem represents a course on the menu with a fixed price
type MenuItem struct {
	ID    uint            `gorm:"primaryKey" json:"id"`
	Name  string          `gorm:"not null" json:"name"`
	Price decimal.Decimal `gorm:"not null;type:decimal(10,2)" json:"price"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}
