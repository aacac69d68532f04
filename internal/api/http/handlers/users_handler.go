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

// UsersHandler exposes the token endpoints and the caller's profile.
type UsersHandler struct {
	auth     *service.AuthService
	validate *validator.Validate
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService, validate: validator.New()}
}

// Token handles POST /token/.
func (h *UsersHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// Refresh handles POST /token/refresh/.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenPairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// Me handles GET /users/me/.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication credentials were not provided")
	}
	return c.JSON(dto.FromUser(*principal.User))
}

// validationError lists each failing field as {"field": ["tag"]}.
func validationError(err error) error {
	details := map[string]any{}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			details[fe.Field()] = []string{fe.Tag()}
		}
	}
	return apperrors.NewValidationError("invalid request", details)
}
