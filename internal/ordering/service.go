package ordering

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/events"
	"github.com/nillzand/ehsan-meals/internal/observability"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// Backend is the subset of the remote API used for ordering.
type Backend interface {
	Me(ctx context.Context) (domain.User, error)
	MySchedules(ctx context.Context) ([]domain.Schedule, error)
	DailyMenu(ctx context.Context, scheduleID int64, date domain.Date) (*domain.DailyMenu, error)
	Orders(ctx context.Context) ([]domain.Order, error)
	CreateOrder(ctx context.Context, menuID int64, sel domain.MenuSelection) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64) error
}

// IdentitySource exposes the logged-in identity.
type IdentitySource interface {
	Identity() (domain.Identity, bool)
}

// Service applies the local rules before talking to the backend.
type Service struct {
	backend    Backend
	session    IdentitySource
	engine     *Engine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ServiceDependencies encapsulates the service collaborators.
type ServiceDependencies struct {
	Backend    Backend
	Session    IdentitySource
	Engine     *Engine
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewService builds the service.
func NewService(deps ServiceDependencies) *Service {
	s := &Service{
		backend:    deps.Backend,
		session:    deps.Session,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if s.engine == nil {
		s.engine = NewEngine(DefaultLeadDays, nil)
	}
	if s.dispatcher == nil {
		s.dispatcher = events.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Engine exposes the rules the service applies.
func (s *Service) Engine() *Engine { return s.engine }

func (s *Service) identity() (domain.Identity, error) {
	identity, ok := s.session.Identity()
	if !ok {
		return domain.Identity{}, apperrors.NewNotAuthenticated()
	}
	return identity, nil
}

// Profile returns the caller's profile; its Budget feeds OrderRequest.
func (s *Service) Profile(ctx context.Context) (domain.User, error) {
	if _, err := s.identity(); err != nil {
		return domain.User{}, err
	}
	return s.backend.Me(ctx)
}

// Schedules lists the schedules the caller can order from or view.
func (s *Service) Schedules(ctx context.Context) ([]domain.Schedule, error) {
	if _, err := s.identity(); err != nil {
		return nil, err
	}
	return s.backend.MySchedules(ctx)
}

// MenuView is a daily menu as the current role may see it.
type MenuView struct {
	Date domain.Date
	// Menu is nil when no menu exists or when the role may not see a closed date.
	Menu         *domain.DailyMenu
	CutoffPassed bool
	// OrderingOpen is true when the role may order and the cutoff has not passed.
	OrderingOpen bool
	// ViewOnly is true for roles that never order.
	ViewOnly bool
}

// Menu loads the daily menu for date. Roles without BrowsePastCutoff do not
// fetch menus whose cutoff has passed.
func (s *Service) Menu(ctx context.Context, scheduleID int64, date domain.Date) (MenuView, error) {
	identity, err := s.identity()
	if err != nil {
		return MenuView{}, err
	}
	caps := identity.Role.Capabilities()

	view := MenuView{
		Date:         date,
		CutoffPassed: !s.engine.CanModify(date),
		ViewOnly:     !caps.PlaceOrders,
	}
	view.OrderingOpen = caps.PlaceOrders && !view.CutoffPassed
	if view.CutoffPassed && !caps.BrowsePastCutoff {
		return view, nil
	}

	menu, err := s.backend.DailyMenu(ctx, scheduleID, date)
	if err != nil {
		return MenuView{}, err
	}
	view.Menu = menu
	if menu == nil {
		view.OrderingOpen = false
	}
	return view, nil
}

// OrderRequest is a selection on a menu, checked against the caller's budget.
type OrderRequest struct {
	Menu      domain.DailyMenu
	Selection domain.MenuSelection
	Budget    decimal.Decimal
}

// Check runs every local rule without contacting the backend: role, lead
// time, then selection and budget.
func (s *Service) Check(req OrderRequest) (domain.EligibilityDecision, error) {
	identity, err := s.identity()
	if err != nil {
		return domain.EligibilityDecision{Reason: domain.ReasonNotPermitted}, err
	}

	decision, err := s.check(identity, req)
	s.metrics.RecordDecision(decision.Allowed, string(decision.Reason))
	return decision, err
}

func (s *Service) check(identity domain.Identity, req OrderRequest) (domain.EligibilityDecision, error) {
	if !identity.Role.Capabilities().PlaceOrders {
		return domain.EligibilityDecision{Reason: domain.ReasonNotPermitted},
			apperrors.NewNotPermitted("this account cannot place or cancel orders")
	}
	if !s.engine.CanModify(req.Menu.Date) {
		return domain.EligibilityDecision{Reason: domain.ReasonLeadTimeViolation},
			apperrors.NewLeadTimeViolation(s.engine.LeadDays())
	}
	return s.engine.Validate(req.Selection, req.Menu, req.Budget)
}

// PlaceOrder submits the order once every local rule passed. Nothing is sent
// when a local rule fails.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest) (domain.Order, error) {
	decision, err := s.Check(req)
	if err != nil {
		return domain.Order{}, err
	}

	identity, _ := s.session.Identity()
	order, err := s.backend.CreateOrder(ctx, req.Menu.ID, req.Selection)
	if err != nil {
		if errors.Is(err, apperrors.ErrRemoteRejected) {
			s.logger.Info("order rejected by backend", zap.String("username", identity.Username), zap.Error(err))
			s.publish(ctx, events.EventOrderRejected, identity.Username, events.OrderPayload{
				MenuID: req.Menu.ID,
				Date:   req.Menu.Date,
				Cost:   decision.Cost,
				Reason: apperrors.ToDomainError(err).Message,
			})
		}
		return domain.Order{}, err
	}

	s.logger.Info("order placed",
		zap.String("username", identity.Username),
		zap.Int64("order_id", order.ID),
		zap.String("date", req.Menu.Date.String()),
		zap.String("cost", decision.Cost.String()))
	s.publish(ctx, events.EventOrderPlaced, identity.Username, events.OrderPayload{
		OrderID: order.ID,
		MenuID:  req.Menu.ID,
		Date:    req.Menu.Date,
		Cost:    decision.Cost,
	})
	return order, nil
}

// CancelOrder cancels an order whose date is still outside the cutoff.
func (s *Service) CancelOrder(ctx context.Context, order domain.Order) error {
	identity, err := s.identity()
	if err != nil {
		return err
	}
	if !identity.Role.Capabilities().PlaceOrders {
		return apperrors.NewNotPermitted("this account cannot place or cancel orders")
	}
	if !order.Active() {
		return apperrors.NewConflict("order is already cancelled", map[string]any{"order_id": order.ID})
	}
	if !s.engine.CanModify(order.Date) {
		return apperrors.NewLeadTimeViolation(s.engine.LeadDays())
	}

	if err := s.backend.CancelOrder(ctx, order.ID); err != nil {
		return err
	}

	s.logger.Info("order cancelled", zap.String("username", identity.Username), zap.Int64("order_id", order.ID))
	s.publish(ctx, events.EventOrderCancelled, identity.Username, events.OrderPayload{
		OrderID: order.ID,
		MenuID:  order.MenuID,
		Date:    order.Date,
		Cost:    order.Total,
	})
	return nil
}

// Orders returns the caller's order history, newest meal date first.
func (s *Service) Orders(ctx context.Context) ([]domain.Order, error) {
	if _, err := s.identity(); err != nil {
		return nil, err
	}
	orders, err := s.backend.Orders(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].Date != orders[j].Date {
			return orders[i].Date.After(orders[j].Date)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

// Cancellable reports whether the cancel action should be offered for order.
func (s *Service) Cancellable(order domain.Order) bool {
	return order.Active() && s.engine.CanModify(order.Date)
}

func (s *Service) publish(ctx context.Context, eventType events.EventType, actor string, payload events.OrderPayload) {
	if err := s.dispatcher.Publish(ctx, events.NewEvent(eventType, actor, payload)); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
