package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nillzand/ehsan-meals/internal/domain"
)

// RequireCapability ensures the principal's role grants the capability checked by allowed.
func RequireCapability(allowed func(domain.Capabilities) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if !allowed(principal.Capabilities()) {
			return fiber.NewError(http.StatusForbidden, "you do not have permission to perform this action")
		}
		return c.Next()
	}
}

// CanPlaceOrders is a RequireCapability predicate.
func CanPlaceOrders(c domain.Capabilities) bool { return c.PlaceOrders }

// CanAdminister is a RequireCapability predicate.
func CanAdminister(c domain.Capabilities) bool { return c.AdminArea }
