package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/api/dto"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/ordering"
	"github.com/nillzand/ehsan-meals/internal/repository"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// OrderService is the authoritative side of ordering: it re-checks every
// rule, charges the budget and refunds on cancel.
type OrderService struct {
	users     repository.UserRepository
	schedules repository.ScheduleRepository
	orders    repository.OrderRepository
	engine    *ordering.Engine
	now       func() time.Time
	logger    *zap.Logger
}

// OrderDependencies bundles repositories for the order service.
type OrderDependencies struct {
	UserRepo     repository.UserRepository
	ScheduleRepo repository.ScheduleRepository
	OrderRepo    repository.OrderRepository
	Engine       *ordering.Engine
	Now          func() time.Time
	Logger       *zap.Logger
}

func NewOrderService(deps OrderDependencies) *OrderService {
	s := &OrderService{
		users:     deps.UserRepo,
		schedules: deps.ScheduleRepo,
		orders:    deps.OrderRepo,
		engine:    deps.Engine,
		now:       deps.Now,
		logger:    deps.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.engine == nil {
		s.engine = ordering.NewEngine(ordering.DefaultLeadDays, s.now)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Place creates an order for user and charges its cost to the user's budget.
func (s *OrderService) Place(ctx context.Context, user *domain.User, req dto.OrderRequest) (*domain.Order, error) {
	if !user.Role.Capabilities().PlaceOrders {
		return nil, apperrors.NewNotPermitted("you do not have permission to perform this action")
	}

	menu, schedule, err := s.schedules.DailyMenuByID(ctx, req.MenuID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid daily menu", map[string]any{"menu_id": []string{"Invalid pk."}})
	}
	if !visible(user, schedule.CompanyID) {
		return nil, apperrors.NewNotPermitted("this menu belongs to another company")
	}
	if !s.engine.CanModify(menu.Date) {
		return nil, apperrors.NewLeadTimeViolation(s.engine.LeadDays())
	}
	taken, err := s.orders.HasActive(ctx, user.ID, menu.Date)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.NewConflict("an order already exists for this date", map[string]any{"date": menu.Date.String()})
	}

	sel := domain.NewMenuSelection(req.MainItemID, req.SideItemIDs...)
	decision, err := s.engine.Validate(sel, *menu, user.Budget)
	if err != nil {
		return nil, err
	}
	// The repository re-checks the balance under its lock.
	if _, err := s.users.AdjustBudget(ctx, user.ID, decision.Cost.Neg()); err != nil {
		return nil, err
	}

	mainItem, _ := menu.MainItem(sel.MainItemID)
	sides := make([]domain.MenuItem, 0, len(sel.SideItemIDs))
	for _, id := range sel.SideItemIDs {
		item, _ := menu.SideItem(id)
		sides = append(sides, item)
	}
	order := &domain.Order{
		MenuID:    menu.ID,
		Date:      menu.Date,
		Username:  user.Username,
		CompanyID: user.CompanyID,
		Company:   user.CompanyName,
		MainItem:  mainItem,
		SideItems: sides,
		Total:     decision.Cost,
		Status:    domain.OrderStatusPlaced,
		CreatedAt: s.now().UTC(),
	}
	// Create refuses a second active order for the date, so a concurrent
	// duplicate is refunded here.
	if err := s.orders.Create(ctx, order, user.ID); err != nil {
		if _, refundErr := s.users.AdjustBudget(ctx, user.ID, decision.Cost); refundErr != nil {
			s.logger.Error("refund after failed order", zap.Int64("user_id", user.ID), zap.Error(refundErr))
		}
		return nil, err
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("username", user.Username),
		zap.String("date", order.Date.String()),
		zap.String("total", order.Total.StringFixed(2)))
	return order, nil
}

// Cancel cancels an order and refunds its total to the ordering user.
func (s *OrderService) Cancel(ctx context.Context, user *domain.User, orderID int64) error {
	if !user.Role.Capabilities().PlaceOrders {
		return apperrors.NewNotPermitted("you do not have permission to perform this action")
	}
	order, ownerID, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !s.canManage(user, order, ownerID) {
		return apperrors.NewNotFound("order", map[string]any{"id": orderID})
	}
	if !order.Active() {
		return apperrors.NewConflict("order is already cancelled", map[string]any{"id": orderID})
	}
	if !s.engine.CanModify(order.Date) {
		return apperrors.NewLeadTimeViolation(s.engine.LeadDays())
	}

	cancelled, ownerID, err := s.orders.CancelIfActive(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := s.users.AdjustBudget(ctx, ownerID, cancelled.Total); err != nil {
		return err
	}
	s.logger.Info("order cancelled", zap.Int64("order_id", orderID), zap.String("by", user.Username))
	return nil
}

// List returns the orders user may see: their own, their company's for a
// company admin, or all of them for a super admin.
func (s *OrderService) List(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	caps := user.Role.Capabilities()
	switch {
	case caps.ViewAllCompanies:
		return s.orders.List(ctx, repository.OrderFilter{})
	case caps.AdminArea && user.CompanyID != nil:
		return s.orders.List(ctx, repository.OrderFilter{CompanyID: *user.CompanyID})
	default:
		return s.orders.List(ctx, repository.OrderFilter{UserID: user.ID})
	}
}

func (s *OrderService) canManage(user *domain.User, order *domain.Order, ownerID int64) bool {
	if ownerID == user.ID {
		return true
	}
	return user.Role.Capabilities().AdminArea && user.CompanyID != nil && order.CompanyID != nil &&
		*user.CompanyID == *order.CompanyID
}
