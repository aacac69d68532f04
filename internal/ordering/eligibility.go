// Package ordering decides whether an order may be placed or cancelled and
// submits it to the backend. Local decisions are advisory; the backend
// re-checks budget and lead time.
package ordering

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/pricing"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// DefaultLeadDays is the minimum number of days between today and the meal date.
const DefaultLeadDays = 2

// CanModify reports whether an order for target may still be created or
// cancelled on today: the whole-day difference must be at least leadDays.
func CanModify(target, today domain.Date, leadDays int) bool {
	return today.DaysUntil(target) >= leadDays
}

// ValidateSelection checks sel against menu and budget. The returned error is
// non-nil exactly when the decision is not allowed, and wraps the matching
// sentinel. Cost is filled whenever it could be computed.
func ValidateSelection(sel domain.MenuSelection, menu domain.DailyMenu, budget decimal.Decimal) (domain.EligibilityDecision, error) {
	if !sel.HasMain() {
		return domain.EligibilityDecision{Reason: domain.ReasonNoMainItem}, apperrors.NewNoMainItem()
	}

	cost, err := pricing.Price(sel, menu)
	if err != nil {
		reason := domain.ReasonUnknownItem
		if errors.Is(err, apperrors.ErrInvalidCatalog) {
			reason = domain.ReasonInvalidCatalog
		}
		return domain.EligibilityDecision{Reason: reason}, err
	}

	if cost.GreaterThan(budget) {
		decision := domain.EligibilityDecision{Reason: domain.ReasonInsufficientBudget, Cost: cost}
		return decision, apperrors.NewInsufficientBudget(cost.StringFixed(2), budget.StringFixed(2))
	}
	return domain.EligibilityDecision{Allowed: true, Cost: cost}, nil
}

// Engine binds the rules to a clock and a configured lead time.
type Engine struct {
	now      func() time.Time
	leadDays int
}

// NewEngine returns an engine. A nil clock uses time.Now; negative lead days use the default.
func NewEngine(leadDays int, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if leadDays < 0 {
		leadDays = DefaultLeadDays
	}
	return &Engine{now: now, leadDays: leadDays}
}

// LeadDays is the configured lead time.
func (e *Engine) LeadDays() int { return e.leadDays }

// Today is the current calendar date in the clock's location.
func (e *Engine) Today() domain.Date {
	return domain.DateOf(e.now())
}

// CanModify applies CanModify with today's date.
func (e *Engine) CanModify(target domain.Date) bool {
	return CanModify(target, e.Today(), e.leadDays)
}

// Cutoff is the first date that can still be ordered today.
func (e *Engine) Cutoff() domain.Date {
	return e.Today().AddDays(e.leadDays)
}

// Validate applies ValidateSelection.
func (e *Engine) Validate(sel domain.MenuSelection, menu domain.DailyMenu, budget decimal.Decimal) (domain.EligibilityDecision, error) {
	return ValidateSelection(sel, menu, budget)
}
