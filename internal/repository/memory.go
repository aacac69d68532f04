package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// Memory holds every dev backend table in process memory.
type Memory struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]*domain.User
	companies map[int64]*domain.Company
	schedules map[int64]*domain.Schedule
	orders    map[int64]*orderRow
}

type orderRow struct {
	order  domain.Order
	userID int64
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[int64]*domain.User),
		companies: make(map[int64]*domain.Company),
		schedules: make(map[int64]*domain.Schedule),
		orders:    make(map[int64]*orderRow),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// Users returns the store as a UserRepository.
func (m *Memory) Users() UserRepository { return memoryUsers{m} }

// Companies returns the store as a CompanyRepository.
func (m *Memory) Companies() CompanyRepository { return memoryCompanies{m} }

// Schedules returns the store as a ScheduleRepository.
func (m *Memory) Schedules() ScheduleRepository { return memorySchedules{m} }

// Orders returns the store as an OrderRepository.
func (m *Memory) Orders() OrderRepository { return memoryOrders{m} }

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == user.Username {
			return apperrors.NewConflict("username already taken", map[string]any{"username": user.Username})
		}
	}
	if user.ID == 0 {
		user.ID = r.m.id()
	}
	stored := *user
	r.m.users[user.ID] = &stored
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return r.m.withCompany(*u), nil
}

func (r memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if u.Username == username {
			return r.m.withCompany(*u), nil
		}
	}
	return nil, apperrors.NewNotFound("user", map[string]any{"username": username})
}

func (r memoryUsers) AdjustBudget(_ context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return decimal.Zero, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	next := u.Budget.Add(delta)
	if next.IsNegative() {
		return u.Budget, apperrors.NewInsufficientBudget(delta.Neg().StringFixed(2), u.Budget.StringFixed(2))
	}
	u.Budget = next
	return next, nil
}

// withCompany must be called with mu held.
func (m *Memory) withCompany(u domain.User) *domain.User {
	if u.CompanyID != nil {
		if c, ok := m.companies[*u.CompanyID]; ok {
			u.CompanyName = c.Name
		}
	}
	return &u
}

type memoryCompanies struct{ m *Memory }

func (r memoryCompanies) Create(_ context.Context, company *domain.Company) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if company.ID == 0 {
		company.ID = r.m.id()
	}
	stored := *company
	r.m.companies[company.ID] = &stored
	return nil
}

func (r memoryCompanies) GetByID(_ context.Context, id int64) (*domain.Company, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.companies[id]
	if !ok {
		return nil, apperrors.NewNotFound("company", map[string]any{"id": id})
	}
	out := *c
	return &out, nil
}

type memorySchedules struct{ m *Memory }

func (r memorySchedules) Create(_ context.Context, schedule *domain.Schedule) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if schedule.ID == 0 {
		schedule.ID = r.m.id()
	}
	for i := range schedule.DailyMenus {
		if schedule.DailyMenus[i].ID == 0 {
			schedule.DailyMenus[i].ID = r.m.id()
		}
	}
	if schedule.CompanyID != nil {
		if c, ok := r.m.companies[*schedule.CompanyID]; ok {
			schedule.CompanyName = c.Name
		}
	}
	stored := *schedule
	stored.DailyMenus = append([]domain.DailyMenu(nil), schedule.DailyMenus...)
	r.m.schedules[schedule.ID] = &stored
	return nil
}

func (r memorySchedules) List(_ context.Context) ([]domain.Schedule, error) {
	return r.m.listSchedules(func(*domain.Schedule) bool { return true }), nil
}

func (r memorySchedules) ListByCompany(_ context.Context, companyID int64) ([]domain.Schedule, error) {
	return r.m.listSchedules(func(s *domain.Schedule) bool {
		return s.CompanyID != nil && *s.CompanyID == companyID
	}), nil
}

func (m *Memory) listSchedules(keep func(*domain.Schedule) bool) []domain.Schedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		if keep(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memorySchedules) GetByID(_ context.Context, id int64) (*domain.Schedule, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.schedules[id]
	if !ok {
		return nil, apperrors.NewNotFound("schedule", map[string]any{"id": id})
	}
	out := *s
	return &out, nil
}

func (r memorySchedules) DailyMenu(_ context.Context, scheduleID int64, date domain.Date) (*domain.DailyMenu, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.schedules[scheduleID]
	if !ok {
		return nil, apperrors.NewNotFound("schedule", map[string]any{"id": scheduleID})
	}
	for _, menu := range s.DailyMenus {
		if menu.Date == date {
			out := menu
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFound("daily menu", map[string]any{"date": date.String()})
}

func (r memorySchedules) DailyMenuByID(_ context.Context, menuID int64) (*domain.DailyMenu, *domain.Schedule, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, s := range r.m.schedules {
		for _, menu := range s.DailyMenus {
			if menu.ID == menuID {
				outMenu, outSchedule := menu, *s
				return &outMenu, &outSchedule, nil
			}
		}
	}
	return nil, nil, apperrors.NewNotFound("daily menu", map[string]any{"id": menuID})
}

type memoryOrders struct{ m *Memory }

func (r memoryOrders) Create(_ context.Context, order *domain.Order, userID int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if order.Active() && r.m.hasActive(userID, order.Date) {
		return apperrors.NewConflict("an order already exists for this date", map[string]any{"date": order.Date.String()})
	}
	order.ID = r.m.id()
	r.m.orders[order.ID] = &orderRow{order: *order, userID: userID}
	return nil
}

func (r memoryOrders) GetByID(_ context.Context, id int64) (*domain.Order, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	row, ok := r.m.orders[id]
	if !ok {
		return nil, 0, apperrors.NewNotFound("order", map[string]any{"id": id})
	}
	out := row.order
	return &out, row.userID, nil
}

func (r memoryOrders) List(_ context.Context, filter OrderFilter) ([]domain.Order, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, row := range r.m.orders {
		if filter.UserID != 0 && row.userID != filter.UserID {
			continue
		}
		if filter.CompanyID != 0 && (row.order.CompanyID == nil || *row.order.CompanyID != filter.CompanyID) {
			continue
		}
		out = append(out, row.order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memoryOrders) CancelIfActive(_ context.Context, id int64) (*domain.Order, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row, ok := r.m.orders[id]
	if !ok {
		return nil, 0, apperrors.NewNotFound("order", map[string]any{"id": id})
	}
	if !row.order.Active() {
		return nil, 0, apperrors.NewConflict("order is already cancelled", map[string]any{"id": id})
	}
	row.order.Status = domain.OrderStatusCanceled
	out := row.order
	return &out, row.userID, nil
}

func (r memoryOrders) HasActive(_ context.Context, userID int64, date domain.Date) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return r.m.hasActive(userID, date), nil
}

// hasActive must be called with mu held.
func (m *Memory) hasActive(userID int64, date domain.Date) bool {
	for _, row := range m.orders {
		if row.userID == userID && row.order.Date == date && row.order.Active() {
			return true
		}
	}
	return false
}
