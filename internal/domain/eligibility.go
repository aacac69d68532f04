package domain

import "github.com/shopspring/decimal"

// Reason explains a denied eligibility decision.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNoMainItem         Reason = "NO_MAIN_ITEM"
	ReasonInsufficientBudget Reason = "INSUFFICIENT_BUDGET"
	ReasonUnknownItem        Reason = "UNKNOWN_ITEM"
	ReasonInvalidCatalog     Reason = "INVALID_CATALOG"
	ReasonLeadTimeViolation  Reason = "LEAD_TIME_VIOLATION"
	ReasonNotPermitted       Reason = "NOT_PERMITTED"
)

// EligibilityDecision is the local verdict on a selection. Cost is set whenever it could be computed.
type EligibilityDecision struct {
	Allowed bool
	Reason  Reason
	Cost    decimal.Decimal
}
