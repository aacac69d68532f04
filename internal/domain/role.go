package domain

import (
	"errors"
	"fmt"
)

// Role is the closed set of account roles issued by the backend.
type Role string

const (
	RoleSuperAdmin   Role = "SUPER_ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleEmployee     Role = "EMPLOYEE"
)

// ErrUnknownRole is returned by ParseRole for values outside the closed set.
var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts only the three known role values, matched exactly.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleSuperAdmin, RoleCompanyAdmin, RoleEmployee:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Capabilities is what a role may do in the client.
type Capabilities struct {
	// PlaceOrders allows creating and cancelling own orders.
	PlaceOrders bool
	// BrowsePastCutoff allows viewing menus whose lead-time cutoff has passed.
	BrowsePastCutoff bool
	// ViewAllCompanies lifts the company scope on schedules and orders.
	ViewAllCompanies bool
	// AdminArea grants access to management screens.
	AdminArea bool
}

var capabilities = map[Role]Capabilities{
	RoleSuperAdmin: {
		BrowsePastCutoff: true,
		ViewAllCompanies: true,
		AdminArea:        true,
	},
	RoleCompanyAdmin: {
		PlaceOrders:      true,
		BrowsePastCutoff: true,
		AdminArea:        true,
	},
	RoleEmployee: {
		PlaceOrders: true,
	},
}

// Capabilities returns the capability set for r. Unknown roles get none.
func (r Role) Capabilities() Capabilities {
	return capabilities[r]
}

// IsAdmin reports access to the admin area.
func (r Role) IsAdmin() bool {
	return r.Capabilities().AdminArea
}
