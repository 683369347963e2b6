package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bistro-app/bistro-api/models"
)

// OrderService owns the order lifecycle: atomic multi-item creation,
// status transitions, calendar-day search with aggregated totals and
// the paid-total report.
type OrderService struct {
	db  *gorm.DB
	loc *time.Location
}

// NewOrderService creates an order service bound to db. All calendar-day
// intervals are computed in loc; a nil loc means the process-local zone.
func NewOrderService(db *gorm.DB, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &OrderService{db: db, loc: loc}
}

// Location returns the time zone used for calendar-day calculations.
func (s *OrderService) Location() *time.Location {
	return s.loc
}

// OrderWithTotal pairs an order with its aggregated total price.
type OrderWithTotal struct {
	models.Order
	TotalPrice decimal.Decimal `json:"total_price"`
}

// DayRange expands a date to the closed interval covering that whole
// calendar day in the service's time zone.
func (s *OrderService) DayRange(day time.Time) (start, end time.Time) {
	start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	end = start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// Create inserts one order for tableNumber and one line item per entry
// of quantities, all inside a single transaction: either the order and
// every line item are persisted, or nothing is.
func (s *OrderService) Create(tableNumber int, quantities map[uint]int) (*models.Order, error) {
	if tableNumber <= 0 {
		return nil, &ValidationError{Reason: "table number must be a positive integer"}
	}
	for id, qty := range quantities {
		if qty <= 0 {
			return nil, &ValidationError{Reason: fmt.Sprintf("menu item %d must have a quantity greater than zero", id)}
		}
	}

	order := models.Order{TableNumber: tableNumber, Status: models.StatusWaiting}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if len(quantities) == 0 {
			return nil
		}
		items := make([]models.OrderItem, 0, len(quantities))
		for menuItemID, qty := range quantities {
			items = append(items, models.OrderItem{
				OrderID:    order.ID,
				MenuItemID: menuItemID,
				Quantity:   qty,
			})
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, &IntegrityError{Err: err}
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return s.Get(order.ID)
}

// CreateWithDefaults creates an order and then one quantity-1 line item
// per menu item id, inserting each row individually without a shared
// transaction. A failure partway leaves the rows created so far behind;
// this mirrors the REST contract and deliberately differs from Create.
func (s *OrderService) CreateWithDefaults(tableNumber int, menuItemIDs []uint) (*models.Order, error) {
	order := models.Order{TableNumber: tableNumber, Status: models.StatusWaiting}
	if err := s.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	for _, id := range menuItemIDs {
		var item models.MenuItem
		if err := s.db.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrMenuItemNotFound
			}
			return nil, fmt.Errorf("look up menu item %d: %w", id, err)
		}
		line := models.OrderItem{OrderID: order.ID, MenuItemID: item.ID, Quantity: 1}
		if err := s.db.Create(&line).Error; err != nil {
			return nil, fmt.Errorf("create line item: %w", err)
		}
	}
	return s.Get(order.ID)
}

// Get fetches one order with its line items and menu items eagerly loaded.
func (s *OrderService) Get(id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items.MenuItem").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("look up order %d: %w", id, err)
	}
	order.Annotate()
	return &order, nil
}

// List returns all orders, newest first, each annotated with the total
// computed in-process from its loaded line items.
func (s *OrderService) List() ([]OrderWithTotal, error) {
	var orders []models.Order
	err := s.db.Preload("Items.MenuItem").Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return annotateAll(orders), nil
}

// Filter narrows the listing by optional exact-match table number and
// status filters. Unlike Search there is no date bound.
func (s *OrderService) Filter(tableNumber *int, status string) ([]OrderWithTotal, error) {
	q := s.db.Preload("Items.MenuItem").Order("created_at DESC")
	if tableNumber != nil {
		q = q.Where("table_number = ?", *tableNumber)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("filter orders: %w", err)
	}
	return annotateAll(orders), nil
}

// UpdateStatus overwrites the status of the order with the given id.
// Any valid status may follow any other; re-setting the current status
// still refreshes updated_at.
func (s *OrderService) UpdateStatus(id uint, status string) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid status %q", status)}
	}
	var order models.Order
	if err := s.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("look up order %d: %w", id, err)
	}
	if err := s.db.Model(&order).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}
	return &order, nil
}

// Delete removes the order and, through the cascade, all its line items.
func (s *OrderService) Delete(id uint) error {
	res := s.db.Delete(&models.Order{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete order %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Search returns the orders created within the calendar day of the given
// date, optionally narrowed to a table number and a status. The sentinel
// status "all" (or an empty status) applies no status filter. Each order
// carries a total aggregated in a single join, so no per-order queries
// are issued; orders without line items get a total of zero.
func (s *OrderService) Search(day time.Time, tableNumber *int, status string) ([]OrderWithTotal, error) {
	if status != "" && status != models.StatusFilterAll && !models.ValidStatus(status) {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid status %q", status)}
	}
	start, end := s.DayRange(day)

	q := s.db.Preload("Items.MenuItem").
		Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at DESC")
	if tableNumber != nil {
		q = q.Where("table_number = ?", *tableNumber)
	}
	if status != "" && status != models.StatusFilterAll {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}

	// One grouped join annotates every matching order; a map miss below
	// means the order has no line items and its total stays zero.
	var rows []struct {
		OrderID uint
		Total   decimal.Decimal
	}
	tq := s.db.Model(&models.OrderItem{}).
		Select("order_items.order_id AS order_id, SUM(menu_items.price * order_items.quantity) AS total").
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.created_at BETWEEN ? AND ?", start, end).
		Group("order_items.order_id")
	if tableNumber != nil {
		tq = tq.Where("orders.table_number = ?", *tableNumber)
	}
	if status != "" && status != models.StatusFilterAll {
		tq = tq.Where("orders.status = ?", status)
	}
	if err := tq.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aggregate order totals: %w", err)
	}
	totals := make(map[uint]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.OrderID] = r.Total
	}

	results := make([]OrderWithTotal, len(orders))
	for i := range orders {
		orders[i].Annotate()
		results[i] = OrderWithTotal{Order: orders[i], TotalPrice: totals[orders[i].ID]}
	}
	return results, nil
}

// TotalPaid sums price x quantity over every line item belonging to a
// paid order created within the calendar day of the given date. The
// whole report is one scalar aggregation; an empty day yields exactly 0.00.
func (s *OrderService) TotalPaid(day time.Time) (decimal.Decimal, error) {
	start, end := s.DayRange(day)

	var row struct {
		Total decimal.Decimal
	}
	err := s.db.Model(&models.OrderItem{}).
		Select("COALESCE(SUM(menu_items.price * order_items.quantity), 0) AS total").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Where("orders.status = ?", models.StatusPaid).
		Where("orders.created_at BETWEEN ? AND ?", start, end).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("total paid orders: %w", err)
	}
	return row.Total, nil
}

func annotateAll(orders []models.Order) []OrderWithTotal {
	out := make([]OrderWithTotal, len(orders))
	for i := range orders {
		orders[i].Annotate()
		out[i] = OrderWithTotal{Order: orders[i], TotalPrice: orders[i].Total()}
	}
	return out
}
