package session

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/events"
	"github.com/nillzand/ehsan-meals/internal/observability"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

const renewKey = "renew"

// Credentials are the username/password pair exchanged for tokens.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Authenticator talks to the backend token endpoints.
type Authenticator interface {
	ObtainToken(ctx context.Context, creds Credentials) (domain.TokenPair, error)
	RefreshToken(ctx context.Context, refresh string) (domain.TokenPair, error)
}

// Manager drives the session lifecycle: login, logout and renewal. It is the
// only writer of its Store.
type Manager struct {
	store      *Store
	auth       Authenticator
	flight     singleflight.Group
	renewing   atomic.Int32
	validate   *validator.Validate
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// ManagerDependencies encapsulates what the manager needs.
type ManagerDependencies struct {
	Store         *Store
	Authenticator Authenticator
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewManager builds the manager.
func NewManager(deps ManagerDependencies) *Manager {
	m := &Manager{
		store:      deps.Store,
		auth:       deps.Authenticator,
		validate:   validator.New(),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if m.dispatcher == nil {
		m.dispatcher = events.Nop{}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Login exchanges credentials for tokens and stores them.
func (m *Manager) Login(ctx context.Context, creds Credentials) (domain.Identity, error) {
	if err := m.validate.Struct(creds); err != nil {
		return domain.Identity{}, apperrors.NewValidationError("username and password are required", nil)
	}

	pair, err := m.auth.ObtainToken(ctx, creds)
	if err != nil {
		return domain.Identity{}, err
	}
	identity, err := auth.Decode(pair.Access)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := m.store.SetTokens(ctx, pair.Access, pair.Refresh); err != nil {
		return domain.Identity{}, err
	}

	m.logger.Info("logged in", zap.String("username", identity.Username), zap.String("role", identity.Role.String()))
	m.publish(ctx, events.EventSessionLoggedIn, identity.Username, events.SessionPayload{Role: identity.Role})
	return identity, nil
}

// Logout clears the session. It never fails; a persistence error is logged.
func (m *Manager) Logout(ctx context.Context) {
	identity, wasAuthenticated := m.Identity()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to remove persisted session", zap.Error(err))
	}
	if wasAuthenticated {
		m.logger.Info("logged out", zap.String("username", identity.Username))
		m.publish(ctx, events.EventSessionLoggedOut, identity.Username, events.SessionPayload{})
	}
}

// ForceLogout ends a session the backend no longer accepts. A session that
// no longer holds sentAccess was replaced after the request went out and is
// left alone. An empty sentAccess matches any session.
func (m *Manager) ForceLogout(ctx context.Context, sentAccess string, cause error) {
	state, gen := m.store.snapshot()
	if state.Tokens == nil {
		return
	}
	if sentAccess != "" && state.Tokens.Access != sentAccess {
		m.logger.Debug("skipping forced logout of a newer session")
		return
	}
	m.expire(ctx, gen, state, cause)
}

// Identity returns the identity of the current session, if any.
func (m *Manager) Identity() (domain.Identity, bool) {
	state := m.store.Get()
	if !state.Authenticated() {
		return domain.Identity{}, false
	}
	return *state.Identity, true
}

// AccessToken returns the current access token, if any.
func (m *Manager) AccessToken() (string, bool) {
	state := m.store.Get()
	if state.Tokens == nil {
		return "", false
	}
	return state.Tokens.Access, true
}

// State reports where the session is in its lifecycle.
func (m *Manager) State() domain.SessionStatus {
	if m.renewing.Load() > 0 {
		return domain.SessionRenewing
	}
	if m.store.Get().Authenticated() {
		return domain.SessionAuthenticated
	}
	return domain.SessionAnonymous
}

// Renew exchanges the refresh token for a new pair. Concurrent callers share
// one network call. Any failure other than the caller's own cancellation ends
// the session and returns ErrSessionExpired.
func (m *Manager) Renew(ctx context.Context) (domain.TokenPair, error) {
	return m.renew(ctx, "")
}

// RenewFrom renews on behalf of a request that was rejected while carrying
// staleAccess. When the store already holds a different access token, that
// token is returned without contacting the backend.
func (m *Manager) RenewFrom(ctx context.Context, staleAccess string) (domain.TokenPair, error) {
	state := m.store.Get()
	if state.Tokens == nil {
		return domain.TokenPair{}, apperrors.NewSessionExpired(nil)
	}
	if staleAccess != "" && state.Tokens.Access != staleAccess {
		m.metrics.RecordRenewal("reused")
		return *state.Tokens, nil
	}
	return m.renew(ctx, staleAccess)
}

func (m *Manager) renew(ctx context.Context, staleAccess string) (domain.TokenPair, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := m.flight.DoChan(renewKey, func() (interface{}, error) {
		return m.runRenewal(flightCtx, staleAccess)
	})

	select {
	case <-ctx.Done():
		return domain.TokenPair{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.TokenPair{}, res.Err
		}
		return res.Val.(domain.TokenPair), nil
	}
}

// runRenewal is the body of the single renewal flight. Flights never overlap,
// so a flight that starts after another committed sees the new tokens here.
func (m *Manager) runRenewal(ctx context.Context, staleAccess string) (domain.TokenPair, error) {
	m.renewing.Add(1)
	defer m.renewing.Add(-1)

	state, gen := m.store.snapshot()
	if state.Tokens == nil {
		return domain.TokenPair{}, apperrors.NewSessionExpired(nil)
	}
	if staleAccess != "" && state.Tokens.Access != staleAccess {
		m.metrics.RecordRenewal("reused")
		return *state.Tokens, nil
	}

	pair, err := m.auth.RefreshToken(ctx, state.Tokens.Refresh)
	if err != nil {
		m.metrics.RecordRenewal("rejected")
		return domain.TokenPair{}, m.expire(ctx, gen, state, err)
	}
	if pair.Refresh == "" {
		pair.Refresh = state.Tokens.Refresh
	}

	committed, err := m.store.setTokensIf(ctx, gen, pair.Access, pair.Refresh)
	if err != nil {
		m.metrics.RecordRenewal("rejected")
		return domain.TokenPair{}, m.expire(ctx, gen, state, err)
	}
	if !committed {
		// logout or a new login happened while the refresh was in flight
		m.metrics.RecordRenewal("superseded")
		current := m.store.Get()
		if current.Tokens != nil {
			return *current.Tokens, nil
		}
		return domain.TokenPair{}, apperrors.NewSessionExpired(errors.New("logged out during renewal"))
	}

	m.metrics.RecordRenewal("success")
	m.logger.Debug("session renewed", zap.String("username", state.Identity.Username))
	m.publish(ctx, events.EventSessionRenewed, state.Identity.Username, events.SessionPayload{Role: state.Identity.Role})
	return pair, nil
}

// expire clears the session if it is still the one that failed, and returns
// the ErrSessionExpired to hand to callers.
func (m *Manager) expire(ctx context.Context, gen uint64, state domain.SessionState, cause error) error {
	cleared, err := m.store.clearIf(ctx, gen)
	if err != nil {
		m.logger.Warn("failed to remove persisted session", zap.Error(err))
	}
	if cleared && state.Authenticated() {
		m.metrics.RecordForcedLogout()
		m.logger.Warn("session expired", zap.String("username", state.Identity.Username), zap.Error(cause))
		m.publish(ctx, events.EventSessionExpired, state.Identity.Username, events.SessionPayload{Reason: errorReason(cause)})
	}
	return apperrors.NewSessionExpired(cause)
}

func (m *Manager) publish(ctx context.Context, eventType events.EventType, actor string, payload events.SessionPayload) {
	if err := m.dispatcher.Publish(ctx, events.NewEvent(eventType, actor, payload)); err != nil {
		m.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func errorReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
