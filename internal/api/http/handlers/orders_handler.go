package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nillzand/ehsan-meals/internal/api/dto"
	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/service"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// OrdersHandler exposes order placement, cancellation and history.
type OrdersHandler struct {
	orders   *service.OrderService
	validate *validator.Validate
}

func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders, validate: validator.New()}
}

// Create handles POST /orders/.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	order, err := h.orders.Place(c.UserContext(), principal.User, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromOrder(*order))
}

// List handles GET /orders/.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	orders, err := h.orders.List(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	resp := make([]dto.OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, dto.FromOrder(o))
	}
	return c.JSON(resp)
}

// Cancel handles DELETE /orders/:id/.
func (h *OrdersHandler) Cancel(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid order id", nil)
	}
	if err := h.orders.Cancel(c.UserContext(), principal.User, int64(id)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
