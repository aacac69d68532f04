package dto

import (
	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// MenuItemResponse is a main or side dish. Price is invalid when the field
// is missing or null.
type MenuItemResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Price       decimal.NullDecimal `json:"price"`
}

// DailyMenuResponse is returned by GET /schedules/{id}/daily-menu.
type DailyMenuResponse struct {
	ID        int64              `json:"id"`
	Date      domain.Date        `json:"date"`
	MainItems []MenuItemResponse `json:"main_items"`
	SideItems []MenuItemResponse `json:"side_items"`
}

// ScheduleResponse is one entry of GET /schedules/my-menu/.
type ScheduleResponse struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Company     *int64              `json:"company"`
	CompanyName string              `json:"company_name,omitempty"`
	StartDate   domain.Date         `json:"start_date"`
	EndDate     domain.Date         `json:"end_date"`
	IsActive    bool                `json:"is_active"`
	DailyMenus  []DailyMenuResponse `json:"daily_menus,omitempty"`
}

func FromMenuItem(item domain.MenuItem) MenuItemResponse {
	return MenuItemResponse{ID: item.ID, Name: item.Name, Description: item.Description, Price: decimal.NewNullDecimal(item.Price)}
}

func (r MenuItemResponse) ToDomain() domain.MenuItem {
	return domain.MenuItem{ID: r.ID, Name: r.Name, Description: r.Description, Price: r.Price.Decimal}
}

func fromMenuItems(items []domain.MenuItem) []MenuItemResponse {
	out := make([]MenuItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, FromMenuItem(item))
	}
	return out
}

func toMenuItems(items []MenuItemResponse) []domain.MenuItem {
	out := make([]domain.MenuItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToDomain())
	}
	return out
}

func FromDailyMenu(m domain.DailyMenu) DailyMenuResponse {
	return DailyMenuResponse{
		ID:        m.ID,
		Date:      m.Date,
		MainItems: fromMenuItems(m.MainItems),
		SideItems: fromMenuItems(m.SideItems),
	}
}

func (r DailyMenuResponse) ToDomain() domain.DailyMenu {
	return domain.DailyMenu{
		ID:        r.ID,
		Date:      r.Date,
		MainItems: toMenuItems(r.MainItems),
		SideItems: toMenuItems(r.SideItems),
	}
}

// Validate rejects a menu whose items carry no price.
func (r DailyMenuResponse) Validate() error {
	for _, items := range [][]MenuItemResponse{r.MainItems, r.SideItems} {
		for _, item := range items {
			if !item.Price.Valid {
				return apperrors.NewInvalidCatalog("menu item has no price", map[string]any{
					"menu_id": r.ID,
					"id":      item.ID,
				})
			}
		}
	}
	return nil
}

func FromSchedule(s domain.Schedule) ScheduleResponse {
	menus := make([]DailyMenuResponse, 0, len(s.DailyMenus))
	for _, m := range s.DailyMenus {
		menus = append(menus, FromDailyMenu(m))
	}
	return ScheduleResponse{
		ID:          s.ID,
		Name:        s.Name,
		Company:     s.CompanyID,
		CompanyName: s.CompanyName,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		IsActive:    s.IsActive,
		DailyMenus:  menus,
	}
}

func (r ScheduleResponse) ToDomain() domain.Schedule {
	menus := make([]domain.DailyMenu, 0, len(r.DailyMenus))
	for _, m := range r.DailyMenus {
		menus = append(menus, m.ToDomain())
	}
	return domain.Schedule{
		ID:          r.ID,
		Name:        r.Name,
		CompanyID:   r.Company,
		CompanyName: r.CompanyName,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		IsActive:    r.IsActive,
		DailyMenus:  menus,
	}
}
