package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nillzand/ehsan-meals/internal/api/dto"
	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/service"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// MenusHandler serves schedules and daily menus.
type MenusHandler struct {
	menus *service.MenuService
}

func NewMenusHandler(menus *service.MenuService) *MenusHandler {
	return &MenusHandler{menus: menus}
}

// MySchedules handles GET /schedules/my-menu/.
func (h *MenusHandler) MySchedules(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	schedules, err := h.menus.Schedules(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	resp := make([]dto.ScheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		resp = append(resp, dto.FromSchedule(s))
	}
	return c.JSON(resp)
}

// DailyMenu handles GET /schedules/:id/daily-menu?date=YYYY-MM-DD.
func (h *MenusHandler) DailyMenu(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	scheduleID, err := c.ParamsInt("id")
	if err != nil || scheduleID <= 0 {
		return apperrors.NewValidationError("invalid schedule id", nil)
	}
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		return apperrors.NewValidationError("date must be YYYY-MM-DD", map[string]any{"date": []string{c.Query("date")}})
	}

	menu, err := h.menus.DailyMenu(c.UserContext(), principal.User, int64(scheduleID), date)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromDailyMenu(*menu))
}
