package app

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/nillzand/ehsan-meals/internal/api/http"
	"github.com/nillzand/ehsan-meals/internal/config"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/events"
	"github.com/nillzand/ehsan-meals/internal/ordering"
	"github.com/nillzand/ehsan-meals/internal/repository"
	"github.com/nillzand/ehsan-meals/internal/session"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// serverClock lets a test move the backend's time forward.
type serverClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *serverClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *serverClock) advance(d time.Duration) {
	c.mu.Lock()
	c.offset += d
	c.mu.Unlock()
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "meal-client-test", Version: "test"},
		API:      config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 5},
		Session:  config.SessionConfig{Store: config.SessionStoreMemory, Key: "auth-storage"},
		Ordering: config.OrderingConfig{LeadDays: 2},
		DevServer: config.DevServerConfig{
			JWTSecret:             "e2e",
			AccessTokenTTLMinutes: 5,
			RefreshTTLMinutes:     60,
		},
	}
}

func startBackend(t *testing.T) (*serverClock, string) {
	t.Helper()
	store := repository.NewMemory()
	require.NoError(t, repository.Seed(context.Background(), store, domain.DateOf(time.Now()), bcrypt.MinCost))

	clock := &serverClock{}
	server := httptransport.NewServer(httptransport.ServerDependencies{
		Config: testConfig(""),
		Store:  store,
		Now:    clock.now,
	})
	srv := httptest.NewServer(adaptor.FiberApp(server))
	t.Cleanup(srv.Close)
	return clock, srv.URL + "/api"
}

func newClient(t *testing.T, baseURL string) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(baseURL), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestOrderAgainstDevBackend(t *testing.T) {
	_, baseURL := startBackend(t)
	a := newClient(t, baseURL)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, session.Credentials{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	identity, err := a.Session.Login(ctx, session.Credentials{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, identity.Role)

	user, err := a.Ordering.Profile(ctx)
	require.NoError(t, err)
	schedules, err := a.Ordering.Schedules(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)

	target := a.Ordering.Engine().Today().AddDays(3)
	view, err := a.Ordering.Menu(ctx, schedules[0].ID, target)
	require.NoError(t, err)
	require.NotNil(t, view.Menu)
	assert.True(t, view.OrderingOpen)

	placed, err := a.Ordering.PlaceOrder(ctx, ordering.OrderRequest{
		Menu:      *view.Menu,
		Selection: domain.NewMenuSelection(view.Menu.MainItems[0].ID, view.Menu.SideItems[0].ID),
		Budget:    user.Budget,
	})
	require.NoError(t, err)
	assert.True(t, view.Menu.MainItems[0].Price.Add(view.Menu.SideItems[0].Price).Equal(placed.Total))

	after, err := a.Ordering.Profile(ctx)
	require.NoError(t, err)
	assert.True(t, user.Budget.Sub(placed.Total).Equal(after.Budget))

	// A second order on the same date passes local checks and is rejected remotely.
	_, err = a.Ordering.PlaceOrder(ctx, ordering.OrderRequest{
		Menu:      *view.Menu,
		Selection: domain.NewMenuSelection(view.Menu.MainItems[1].ID),
		Budget:    after.Budget,
	})
	assert.ErrorIs(t, err, apperrors.ErrRemoteRejected)

	orders, err := a.Ordering.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.True(t, a.Ordering.Cancellable(orders[0]))
	require.NoError(t, a.Ordering.CancelOrder(ctx, orders[0]))

	refunded, err := a.Ordering.Profile(ctx)
	require.NoError(t, err)
	assert.True(t, user.Budget.Equal(refunded.Budget))

	var types []events.EventType
	for _, e := range a.Audit.Recent() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.EventType{
		events.EventSessionLoggedIn,
		events.EventOrderPlaced,
		events.EventOrderRejected,
		events.EventOrderCancelled,
	}, types)
}

func TestSilentRenewalAgainstDevBackend(t *testing.T) {
	clock, baseURL := startBackend(t)
	a := newClient(t, baseURL)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, session.Credentials{Username: "bob", Password: "password123"})
	require.NoError(t, err)
	before, _ := a.Session.AccessToken()

	clock.advance(10 * time.Minute)
	user, err := a.Ordering.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	after, _ := a.Session.AccessToken()
	assert.NotEqual(t, before, after)

	clock.advance(2 * time.Hour)
	_, err = a.Ordering.Profile(ctx)
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, domain.SessionAnonymous, a.Session.State())

	_, err = a.Ordering.Profile(ctx)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestSuperAdminIsViewOnly(t *testing.T) {
	_, baseURL := startBackend(t)
	a := newClient(t, baseURL)
	ctx := context.Background()

	_, err := a.Session.Login(ctx, session.Credentials{Username: "superadmin", Password: "superpassword123"})
	require.NoError(t, err)

	schedules, err := a.Ordering.Schedules(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, schedules)

	today := a.Ordering.Engine().Today()
	view, err := a.Ordering.Menu(ctx, schedules[0].ID, today)
	require.NoError(t, err)
	assert.True(t, view.ViewOnly)
	assert.NotNil(t, view.Menu)

	_, err = a.Ordering.PlaceOrder(ctx, ordering.OrderRequest{Menu: *view.Menu, Selection: domain.NewMenuSelection(1), Budget: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, apperrors.ErrNotPermitted)
}

func TestNewRejectsUnknownStore(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1/api")
	cfg.Session.Store = "floppy"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
