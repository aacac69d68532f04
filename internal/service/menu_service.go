package service

import (
	"context"

	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/repository"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// MenuService serves schedules and daily menus to the roles allowed to see them.
type MenuService struct {
	schedules repository.ScheduleRepository
}

func NewMenuService(schedules repository.ScheduleRepository) *MenuService {
	return &MenuService{schedules: schedules}
}

// Schedules lists the schedules visible to user.
func (s *MenuService) Schedules(ctx context.Context, user *domain.User) ([]domain.Schedule, error) {
	if user.Role.Capabilities().ViewAllCompanies {
		return s.schedules.List(ctx)
	}
	if user.CompanyID == nil {
		return []domain.Schedule{}, nil
	}
	return s.schedules.ListByCompany(ctx, *user.CompanyID)
}

// DailyMenu returns the menu of a visible schedule on date.
func (s *MenuService) DailyMenu(ctx context.Context, user *domain.User, scheduleID int64, date domain.Date) (*domain.DailyMenu, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !visible(user, schedule.CompanyID) {
		// Hide other companies' schedules entirely.
		return nil, apperrors.NewNotFound("schedule", map[string]any{"id": scheduleID})
	}
	return s.schedules.DailyMenu(ctx, scheduleID, date)
}

func visible(user *domain.User, companyID *int64) bool {
	if user.Role.Capabilities().ViewAllCompanies {
		return true
	}
	return user.CompanyID != nil && companyID != nil && *user.CompanyID == *companyID
}
