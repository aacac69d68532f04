package session

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

var testTokens = auth.NewTokenManager("session-test", 60, 1440)

func issue(t *testing.T, username string, role domain.Role) domain.TokenPair {
	t.Helper()
	pair, err := testTokens.IssuePair(domain.User{Username: username, Role: role})
	require.NoError(t, err)
	return pair
}

// fakeAuth issues tokens for a single user. Refresh blocks on gate when set.
type fakeAuth struct {
	t            *testing.T
	user         domain.User
	password     string
	refreshErr   error
	gate         chan struct{}
	started      chan struct{}
	refreshCalls atomic.Int32
}

func newFakeAuth(t *testing.T) *fakeAuth {
	return &fakeAuth{
		t:        t,
		user:     domain.User{Username: "alice", Role: domain.RoleEmployee},
		password: "password123",
	}
}

func (f *fakeAuth) ObtainToken(_ context.Context, creds Credentials) (domain.TokenPair, error) {
	if creds.Username != f.user.Username || creds.Password != f.password {
		return domain.TokenPair{}, apperrors.NewInvalidCredentials()
	}
	return issue(f.t, f.user.Username, f.user.Role), nil
}

func (f *fakeAuth) RefreshToken(ctx context.Context, _ string) (domain.TokenPair, error) {
	f.refreshCalls.Add(1)
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return domain.TokenPair{}, ctx.Err()
		}
	}
	if f.refreshErr != nil {
		return domain.TokenPair{}, f.refreshErr
	}
	return issue(f.t, f.user.Username, f.user.Role), nil
}

// failingPersister fails every write after the first failAfter saves.
type failingPersister struct {
	*MemoryPersister
	saves     int
	failAfter int
	err       error
}

func (p *failingPersister) Save(ctx context.Context, data []byte) error {
	p.saves++
	if p.saves > p.failAfter {
		return p.err
	}
	return p.MemoryPersister.Save(ctx, data)
}
