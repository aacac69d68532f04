package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
)

// UserRepository defines access to accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// AdjustBudget adds delta to the user's budget. A result below zero is
	// rejected and nothing changes.
	AdjustBudget(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
}

// CompanyRepository defines access to companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
}

// ScheduleRepository defines access to schedules and their daily menus.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.Schedule) error
	List(ctx context.Context) ([]domain.Schedule, error)
	ListByCompany(ctx context.Context, companyID int64) ([]domain.Schedule, error)
	GetByID(ctx context.Context, id int64) (*domain.Schedule, error)
	DailyMenu(ctx context.Context, scheduleID int64, date domain.Date) (*domain.DailyMenu, error)
	DailyMenuByID(ctx context.Context, menuID int64) (*domain.DailyMenu, *domain.Schedule, error)
}

// OrderFilter narrows an order listing. Zero values match everything.
type OrderFilter struct {
	UserID    int64
	CompanyID int64
}

// OrderRepository defines access to orders.
type OrderRepository interface {
	// Create stores an active order. It fails with a conflict when the user
	// already holds an active order for the same date.
	Create(ctx context.Context, order *domain.Order, userID int64) error
	GetByID(ctx context.Context, id int64) (*domain.Order, int64, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	// CancelIfActive marks an active order cancelled and returns it with its
	// owner. Only one caller wins; the others get a conflict.
	CancelIfActive(ctx context.Context, id int64) (*domain.Order, int64, error)
	// HasActive reports whether the user already holds a non-cancelled order for date.
	HasActive(ctx context.Context, userID int64, date domain.Date) (bool, error)
}
