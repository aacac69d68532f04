// Package pricing computes what a menu selection costs.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// Price returns the main item's price plus the prices of all side items.
// Every id must be on the menu; one unknown id fails the whole calculation.
// A negative price is a catalog integrity error.
func Price(sel domain.MenuSelection, menu domain.DailyMenu) (decimal.Decimal, error) {
	main, ok := menu.MainItem(sel.MainItemID)
	if !ok {
		return decimal.Zero, apperrors.NewUnknownItem("main item", sel.MainItemID)
	}
	if err := checkPrice(main); err != nil {
		return decimal.Zero, err
	}

	total := main.Price
	for _, id := range sel.SideItemIDs {
		side, ok := menu.SideItem(id)
		if !ok {
			return decimal.Zero, apperrors.NewUnknownItem("side item", id)
		}
		if err := checkPrice(side); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(side.Price)
	}
	return total, nil
}

func checkPrice(item domain.MenuItem) error {
	if item.Price.IsNegative() {
		return apperrors.NewInvalidCatalog("menu item has a negative price", map[string]any{
			"id":    item.ID,
			"price": item.Price.String(),
		})
	}
	return nil
}
