package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/events"
	"github.com/nillzand/ehsan-meals/internal/observability"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

type recorder struct {
	mu    sync.Mutex
	types []events.EventType
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recorder) seen() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.EventType(nil), r.types...)
}

func newTestManager(t *testing.T, fa *fakeAuth) (*Manager, *Store, *recorder) {
	t.Helper()
	store := NewStore(context.Background(), NewMemoryPersister(), zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	rec := &recorder{}
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, rec.handle)
	}
	m := NewManager(ManagerDependencies{
		Store:         store,
		Authenticator: fa,
		Dispatcher:    dispatcher,
		Metrics:       observability.NewMetrics(),
		Logger:        zap.NewNop(),
	})
	return m, store, rec
}

func TestLoginStoresTokens(t *testing.T) {
	m, store, rec := newTestManager(t, newFakeAuth(t))
	assert.Equal(t, domain.SessionAnonymous, m.State())

	identity, err := m.Login(context.Background(), Credentials{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, domain.RoleEmployee, identity.Role)
	assert.Equal(t, domain.SessionAuthenticated, m.State())
	assert.True(t, store.Get().Authenticated())
	assert.Equal(t, []events.EventType{events.EventSessionLoggedIn}, rec.seen())
}

func TestLoginRejected(t *testing.T) {
	m, store, _ := newTestManager(t, newFakeAuth(t))

	_, err := m.Login(context.Background(), Credentials{Username: "alice", Password: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.False(t, store.Get().Authenticated())

	_, err = m.Login(context.Background(), Credentials{Username: "alice"})
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	m, store, rec := newTestManager(t, newFakeAuth(t))
	m.Logout(context.Background())

	_, err := m.Login(context.Background(), Credentials{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	m.Logout(context.Background())
	m.Logout(context.Background())
	assert.False(t, store.Get().Authenticated())
	assert.Equal(t, []events.EventType{events.EventSessionLoggedIn, events.EventSessionLoggedOut}, rec.seen())
}

func TestConcurrentRenewalsShareOneRefresh(t *testing.T) {
	fa := newFakeAuth(t)
	fa.gate = make(chan struct{})
	m, store, _ := newTestManager(t, fa)

	initial := issue(t, "alice", domain.RoleEmployee)
	require.NoError(t, store.SetTokens(context.Background(), initial.Access, initial.Refresh))

	const callers = 20
	var wg sync.WaitGroup
	results := make([]domain.TokenPair, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.RenewFrom(context.Background(), initial.Access)
		}(i)
	}

	require.Eventually(t, func() bool { return fa.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, domain.SessionRenewing, m.State())
	close(fa.gate)
	wg.Wait()

	assert.Equal(t, int32(1), fa.refreshCalls.Load())
	current := *store.Get().Tokens
	assert.NotEqual(t, initial.Access, current.Access)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, current, results[i])
	}
	assert.Equal(t, domain.SessionAuthenticated, m.State())
}

func TestRenewFromStaleTokenSkipsNetwork(t *testing.T) {
	fa := newFakeAuth(t)
	m, store, _ := newTestManager(t, fa)

	old := issue(t, "alice", domain.RoleEmployee)
	fresh := issue(t, "alice", domain.RoleEmployee)
	require.NoError(t, store.SetTokens(context.Background(), fresh.Access, fresh.Refresh))

	pair, err := m.RenewFrom(context.Background(), old.Access)
	require.NoError(t, err)
	assert.Equal(t, fresh, pair)
	assert.Equal(t, int32(0), fa.refreshCalls.Load())
}

func TestRenewRejectedLogsOut(t *testing.T) {
	fa := newFakeAuth(t)
	fa.refreshErr = apperrors.NewRemoteError(401, "Token is invalid or expired", nil)
	m, store, rec := newTestManager(t, fa)

	initial := issue(t, "alice", domain.RoleEmployee)
	require.NoError(t, store.SetTokens(context.Background(), initial.Access, initial.Refresh))

	_, err := m.Renew(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, domain.SessionState{}, store.Get())
	assert.Equal(t, domain.SessionAnonymous, m.State())
	assert.Equal(t, []events.EventType{events.EventSessionExpired}, rec.seen())
}

func TestRenewTransportFailureIsTerminal(t *testing.T) {
	fa := newFakeAuth(t)
	fa.refreshErr = errors.New("dial tcp: connection refused")
	m, store, _ := newTestManager(t, fa)

	initial := issue(t, "alice", domain.RoleEmployee)
	require.NoError(t, store.SetTokens(context.Background(), initial.Access, initial.Refresh))

	_, err := m.Renew(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.False(t, store.Get().Authenticated())
}

func TestRenewWithoutSession(t *testing.T) {
	fa := newFakeAuth(t)
	m, _, _ := newTestManager(t, fa)

	_, err := m.Renew(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	_, err = m.RenewFrom(context.Background(), "whatever")
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.Equal(t, int32(0), fa.refreshCalls.Load())
}

func TestLogoutDuringRenewalWins(t *testing.T) {
	fa := newFakeAuth(t)
	fa.gate = make(chan struct{})
	fa.started = make(chan struct{})
	started := fa.started
	m, store, _ := newTestManager(t, fa)

	initial := issue(t, "alice", domain.RoleEmployee)
	require.NoError(t, store.SetTokens(context.Background(), initial.Access, initial.Refresh))

	done := make(chan error, 1)
	go func() {
		_, err := m.Renew(context.Background())
		done <- err
	}()

	<-started
	m.Logout(context.Background())
	close(fa.gate)

	err := <-done
	assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
	assert.False(t, store.Get().Authenticated())
}

func TestCallerCancellationLeavesSessionIntact(t *testing.T) {
	fa := newFakeAuth(t)
	fa.gate = make(chan struct{})
	m, store, _ := newTestManager(t, fa)

	initial := issue(t, "alice", domain.RoleEmployee)
	require.NoError(t, store.SetTokens(context.Background(), initial.Access, initial.Refresh))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Renew(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return fa.refreshCalls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(fa.gate)
	require.Eventually(t, func() bool {
		return store.Get().Tokens != nil && store.Get().Tokens.Access != initial.Access
	}, time.Second, time.Millisecond)
}

func TestForceLogout(t *testing.T) {
	m, store, rec := newTestManager(t, newFakeAuth(t))
	_, err := m.Login(context.Background(), Credentials{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	sent := store.Get().Tokens.Access
	m.ForceLogout(context.Background(), sent, errors.New("rejected after renewal"))
	assert.False(t, store.Get().Authenticated())
	assert.Equal(t, []events.EventType{events.EventSessionLoggedIn, events.EventSessionExpired}, rec.seen())
}

func TestForceLogoutSparesNewerSession(t *testing.T) {
	m, store, rec := newTestManager(t, newFakeAuth(t))
	_, err := m.Login(context.Background(), Credentials{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	sent := store.Get().Tokens.Access

	_, err = m.Renew(context.Background())
	require.NoError(t, err)
	current := store.Get().Tokens.Access
	require.NotEqual(t, sent, current)

	m.ForceLogout(context.Background(), sent, errors.New("rejected after renewal"))
	require.True(t, store.Get().Authenticated())
	assert.Equal(t, current, store.Get().Tokens.Access)
	assert.NotContains(t, rec.seen(), events.EventSessionExpired)
}
