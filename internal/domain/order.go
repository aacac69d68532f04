package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks an order through the kitchen.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// Order is a meal ordered by a user for one date.
type Order struct {
	ID        int64
	MenuID    int64
	Date      Date
	Username  string
	CompanyID *int64
	Company   string
	MainItem  MenuItem
	SideItems []MenuItem
	Total     decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}

// Active reports whether the order still counts against the budget.
func (o Order) Active() bool {
	return o.Status != OrderStatusCanceled
}
