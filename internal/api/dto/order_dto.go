package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
)

// OrderRequest payload for POST /orders/.
type OrderRequest struct {
	MenuID      int64   `json:"menu_id" validate:"required,gt=0"`
	MainItemID  int64   `json:"main_item_id" validate:"required,gt=0"`
	SideItemIDs []int64 `json:"side_item_ids" validate:"dive,gt=0"`
}

// OrderResponse describes a placed order.
type OrderResponse struct {
	ID          int64              `json:"id"`
	MenuID      int64              `json:"daily_menu"`
	Date        domain.Date        `json:"date"`
	User        string             `json:"user"`
	Company     *int64             `json:"company"`
	CompanyName string             `json:"company_name,omitempty"`
	MainItem    MenuItemResponse   `json:"food_item"`
	SideItems   []MenuItemResponse `json:"side_dishes"`
	Total       decimal.Decimal    `json:"total_price"`
	Status      domain.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

func NewOrderRequest(menuID int64, sel domain.MenuSelection) OrderRequest {
	sides := sel.SideItemIDs
	if sides == nil {
		sides = []int64{}
	}
	return OrderRequest{MenuID: menuID, MainItemID: sel.MainItemID, SideItemIDs: sides}
}

func FromOrder(o domain.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		MenuID:      o.MenuID,
		Date:        o.Date,
		User:        o.Username,
		Company:     o.CompanyID,
		CompanyName: o.Company,
		MainItem:    FromMenuItem(o.MainItem),
		SideItems:   fromMenuItems(o.SideItems),
		Total:       o.Total,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
}

func (r OrderResponse) ToDomain() domain.Order {
	return domain.Order{
		ID:        r.ID,
		MenuID:    r.MenuID,
		Date:      r.Date,
		Username:  r.User,
		CompanyID: r.Company,
		Company:   r.CompanyName,
		MainItem:  r.MainItem.ToDomain(),
		SideItems: toMenuItems(r.SideItems),
		Total:     r.Total,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
