package ordering

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/events"
	"github.com/nillzand/ehsan-meals/internal/observability"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

type fakeBackend struct {
	menu      *domain.DailyMenu
	menuCalls int
	orders    []domain.Order
	createErr error
	created   []domain.MenuSelection
	cancelled []int64
}

func (f *fakeBackend) Me(context.Context) (domain.User, error) {
	return domain.User{ID: 7, Username: "alice", Budget: price("200")}, nil
}

func (f *fakeBackend) MySchedules(context.Context) ([]domain.Schedule, error) {
	return []domain.Schedule{{ID: 1, Name: "January"}}, nil
}

func (f *fakeBackend) DailyMenu(_ context.Context, _ int64, _ domain.Date) (*domain.DailyMenu, error) {
	f.menuCalls++
	return f.menu, nil
}

func (f *fakeBackend) Orders(context.Context) ([]domain.Order, error) {
	return f.orders, nil
}

func (f *fakeBackend) CreateOrder(_ context.Context, menuID int64, sel domain.MenuSelection) (domain.Order, error) {
	if f.createErr != nil {
		return domain.Order{}, f.createErr
	}
	f.created = append(f.created, sel)
	return domain.Order{ID: 99, MenuID: menuID, Status: domain.OrderStatusPlaced}, nil
}

func (f *fakeBackend) CancelOrder(_ context.Context, id int64) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fixedIdentity struct {
	identity domain.Identity
	ok       bool
}

func (f fixedIdentity) Identity() (domain.Identity, bool) { return f.identity, f.ok }

func as(role domain.Role) fixedIdentity {
	return fixedIdentity{identity: domain.Identity{Username: "alice", Role: role}, ok: true}
}

type recorder struct {
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

func newService(t *testing.T, identity IdentitySource) (*Service, *fakeBackend, *recorder) {
	t.Helper()
	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	be := &fakeBackend{menu: &testMenu}
	rec := &recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, rec.handle)
	}
	svc := NewService(ServiceDependencies{
		Backend:    be,
		Session:    identity,
		Engine:     NewEngine(DefaultLeadDays, func() time.Time { return now }),
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
	})
	return svc, be, rec
}

func TestPlaceOrderSubmitsValidSelection(t *testing.T) {
	svc, be, rec := newService(t, as(domain.RoleEmployee))

	order, err := svc.PlaceOrder(context.Background(), OrderRequest{
		Menu:      testMenu,
		Selection: domain.NewMenuSelection(1, 2, 2),
		Budget:    price("120"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), order.ID)
	require.Len(t, be.created, 1)
	assert.Equal(t, []int64{2}, be.created[0].SideItemIDs)

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventOrderPlaced, rec.events[0].Type)
	payload := rec.events[0].Payload.(events.OrderPayload)
	assert.True(t, price("120").Equal(payload.Cost))
}

func TestPlaceOrderLocalRulesBlockSubmission(t *testing.T) {
	tooSoon := testMenu
	tooSoon.Date = domain.NewDate(2024, time.January, 11)

	tests := []struct {
		name     string
		identity IdentitySource
		req      OrderRequest
		want     error
	}{
		{"anonymous", fixedIdentity{}, OrderRequest{Menu: testMenu, Selection: domain.NewMenuSelection(1), Budget: price("500")}, apperrors.ErrNotAuthenticated},
		{"super admin", as(domain.RoleSuperAdmin), OrderRequest{Menu: testMenu, Selection: domain.NewMenuSelection(1), Budget: price("500")}, apperrors.ErrNotPermitted},
		{"inside cutoff", as(domain.RoleEmployee), OrderRequest{Menu: tooSoon, Selection: domain.NewMenuSelection(1), Budget: price("500")}, apperrors.ErrLeadTimeViolation},
		{"no main", as(domain.RoleEmployee), OrderRequest{Menu: testMenu, Selection: domain.NewMenuSelection(0, 2), Budget: price("500")}, apperrors.ErrNoMainItem},
		{"over budget", as(domain.RoleCompanyAdmin), OrderRequest{Menu: testMenu, Selection: domain.NewMenuSelection(1, 2, 3), Budget: price("149.99")}, apperrors.ErrInsufficientBudget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, be, rec := newService(t, tt.identity)
			_, err := svc.PlaceOrder(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, be.created)
			assert.Empty(t, rec.events)
		})
	}
}

func TestPlaceOrderRemoteRejection(t *testing.T) {
	svc, be, rec := newService(t, as(domain.RoleEmployee))
	be.createErr = apperrors.NewRemoteError(http.StatusBadRequest, "Insufficient budget.", nil)

	_, err := svc.PlaceOrder(context.Background(), OrderRequest{Menu: testMenu, Selection: domain.NewMenuSelection(1), Budget: price("500")})
	assert.ErrorIs(t, err, apperrors.ErrRemoteRejected)

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventOrderRejected, rec.events[0].Type)
	assert.Equal(t, "Insufficient budget.", rec.events[0].Payload.(events.OrderPayload).Reason)
}

func TestMenuVisibilityByRole(t *testing.T) {
	closed := domain.NewDate(2024, time.January, 11)
	open := domain.NewDate(2024, time.January, 12)

	svc, be, _ := newService(t, as(domain.RoleEmployee))
	view, err := svc.Menu(context.Background(), 1, closed)
	require.NoError(t, err)
	assert.Nil(t, view.Menu)
	assert.True(t, view.CutoffPassed)
	assert.False(t, view.OrderingOpen)
	assert.Equal(t, 0, be.menuCalls)

	view, err = svc.Menu(context.Background(), 1, open)
	require.NoError(t, err)
	assert.NotNil(t, view.Menu)
	assert.True(t, view.OrderingOpen)

	svc, be, _ = newService(t, as(domain.RoleSuperAdmin))
	view, err = svc.Menu(context.Background(), 1, closed)
	require.NoError(t, err)
	assert.NotNil(t, view.Menu)
	assert.True(t, view.ViewOnly)
	assert.False(t, view.OrderingOpen)
	assert.Equal(t, 1, be.menuCalls)

	svc, _, _ = newService(t, as(domain.RoleCompanyAdmin))
	view, err = svc.Menu(context.Background(), 1, closed)
	require.NoError(t, err)
	assert.NotNil(t, view.Menu)
	assert.False(t, view.ViewOnly)
	assert.False(t, view.OrderingOpen)
}

func TestCancelOrder(t *testing.T) {
	svc, be, rec := newService(t, as(domain.RoleEmployee))
	order := domain.Order{ID: 5, MenuID: 10, Date: domain.NewDate(2024, time.January, 15), Status: domain.OrderStatusPlaced, Total: price("100")}

	require.True(t, svc.Cancellable(order))
	require.NoError(t, svc.CancelOrder(context.Background(), order))
	assert.Equal(t, []int64{5}, be.cancelled)
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.EventOrderCancelled, rec.events[0].Type)

	late := order
	late.Date = domain.NewDate(2024, time.January, 11)
	assert.False(t, svc.Cancellable(late))
	assert.ErrorIs(t, svc.CancelOrder(context.Background(), late), apperrors.ErrLeadTimeViolation)

	gone := order
	gone.Status = domain.OrderStatusCanceled
	err := svc.CancelOrder(context.Background(), gone)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	assert.Equal(t, []int64{5}, be.cancelled)
}

func TestOrdersNewestFirst(t *testing.T) {
	svc, be, _ := newService(t, as(domain.RoleEmployee))
	be.orders = []domain.Order{
		{ID: 1, Date: domain.NewDate(2024, time.January, 3)},
		{ID: 2, Date: domain.NewDate(2024, time.January, 20)},
		{ID: 3, Date: domain.NewDate(2024, time.January, 3)},
	}

	orders, err := svc.Orders(context.Background())
	require.NoError(t, err)
	ids := []int64{orders[0].ID, orders[1].ID, orders[2].ID}
	assert.Equal(t, []int64{2, 3, 1}, ids)
}

func TestProfileRequiresSession(t *testing.T) {
	svc, _, _ := newService(t, fixedIdentity{})
	_, err := svc.Profile(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	svc, _, _ = newService(t, as(domain.RoleEmployee))
	user, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}
