package domain

import "github.com/shopspring/decimal"

// MenuItem is a main dish or side dish offered on a daily menu.
type MenuItem struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
}

// DailyMenu is an immutable snapshot of what is offered on one date.
type DailyMenu struct {
	ID        int64
	Date      Date
	MainItems []MenuItem
	SideItems []MenuItem
}

// MainItem looks up a main dish by id.
func (m DailyMenu) MainItem(id int64) (MenuItem, bool) {
	return findItem(m.MainItems, id)
}

// SideItem looks up a side dish by id.
func (m DailyMenu) SideItem(id int64) (MenuItem, bool) {
	return findItem(m.SideItems, id)
}

func findItem(items []MenuItem, id int64) (MenuItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

// Schedule groups the daily menus a company can order from over a date range.
type Schedule struct {
	ID          int64
	Name        string
	CompanyID   *int64
	CompanyName string
	StartDate   Date
	EndDate     Date
	IsActive    bool
	DailyMenus  []DailyMenu
}

// Covers reports whether d falls inside the schedule range, inclusive.
func (s Schedule) Covers(d Date) bool {
	return !d.Before(s.StartDate) && !d.After(s.EndDate)
}

// MenuSelection is one main item plus zero or more distinct side items. MainItemID 0 means none chosen.
type MenuSelection struct {
	MainItemID  int64
	SideItemIDs []int64
}

// NewMenuSelection drops duplicate side ids, keeping first-seen order.
func NewMenuSelection(mainItemID int64, sideItemIDs ...int64) MenuSelection {
	seen := make(map[int64]struct{}, len(sideItemIDs))
	sides := make([]int64, 0, len(sideItemIDs))
	for _, id := range sideItemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sides = append(sides, id)
	}
	return MenuSelection{MainItemID: mainItemID, SideItemIDs: sides}
}

// HasMain reports whether a main item was chosen.
func (s MenuSelection) HasMain() bool {
	return s.MainItemID != 0
}
