package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

func seeded(t *testing.T) *Memory {
	t.Helper()
	store := NewMemory()
	require.NoError(t, Seed(context.Background(), store, domain.NewDate(2024, time.January, 8), bcrypt.MinCost))
	return store
}

func TestSeedCreatesAccountsAndMenus(t *testing.T) {
	store := seeded(t)
	ctx := context.Background()

	alice, err := store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, alice.Role)
	assert.Equal(t, "Acme", alice.CompanyName)
	require.NoError(t, auth.ComparePassword(alice.PasswordHash, "password123"))

	admin, err := store.Users().GetByUsername(ctx, "superadmin")
	require.NoError(t, err)
	assert.Nil(t, admin.CompanyID)

	schedules, err := store.Schedules().ListByCompany(ctx, *alice.CompanyID)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Len(t, schedules[0].DailyMenus, SeedDays)

	first, err := store.Schedules().DailyMenu(ctx, schedules[0].ID, domain.NewDate(2024, time.January, 8))
	require.NoError(t, err)
	second, err := store.Schedules().DailyMenu(ctx, schedules[0].ID, domain.NewDate(2024, time.January, 9))
	require.NoError(t, err)
	assert.Equal(t, first.SideItems[0].ID, second.SideItems[0].ID)
	assert.NotEqual(t, first.MainItems[0].ID, second.MainItems[0].ID)

	menu, schedule, err := store.Schedules().DailyMenuByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Date, menu.Date)
	assert.Equal(t, schedules[0].ID, schedule.ID)

	_, err = store.Schedules().DailyMenu(ctx, schedules[0].ID, domain.NewDate(2024, time.February, 1))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAdjustBudgetRejectsOverdraft(t *testing.T) {
	store := seeded(t)
	ctx := context.Background()
	alice, err := store.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)

	left, err := store.Users().AdjustBudget(ctx, alice.ID, decimal.NewFromInt(-20))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(left))

	_, err = store.Users().AdjustBudget(ctx, alice.ID, decimal.NewFromInt(-31))
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBudget)

	reloaded, err := store.Users().GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(reloaded.Budget))
}

func TestOrdersFilterAndStatus(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	company := int64(3)
	date := domain.NewDate(2024, time.January, 12)

	a := &domain.Order{Date: date, CompanyID: &company, Status: domain.OrderStatusPlaced}
	b := &domain.Order{Date: date, Status: domain.OrderStatusPlaced}
	require.NoError(t, store.Orders().Create(ctx, a, 1))
	require.NoError(t, store.Orders().Create(ctx, b, 2))

	mine, err := store.Orders().List(ctx, OrderFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	byCompany, err := store.Orders().List(ctx, OrderFilter{CompanyID: company})
	require.NoError(t, err)
	assert.Len(t, byCompany, 1)

	active, err := store.Orders().HasActive(ctx, 1, date)
	require.NoError(t, err)
	assert.True(t, active)

	dup := &domain.Order{Date: date, Status: domain.OrderStatusPlaced}
	err = store.Orders().Create(ctx, dup, 1)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	cancelled, owner, err := store.Orders().CancelIfActive(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owner)
	assert.Equal(t, domain.OrderStatusCanceled, cancelled.Status)
	active, err = store.Orders().HasActive(ctx, 1, date)
	require.NoError(t, err)
	assert.False(t, active)

	_, _, err = store.Orders().CancelIfActive(ctx, a.ID)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
	_, _, err = store.Orders().CancelIfActive(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, store.Orders().Create(ctx, dup, 1))
}

func TestOrderTransitionsAreExclusive(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	date := domain.NewDate(2024, time.January, 12)

	const workers = 16
	var created, cancelled atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Orders().Create(ctx, &domain.Order{Date: date, Status: domain.OrderStatusPlaced}, 1) == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), created.Load())

	orders, err := store.Orders().List(ctx, OrderFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, orders, 1)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.Orders().CancelIfActive(ctx, orders[0].ID); err == nil {
				cancelled.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), cancelled.Load())
}

func TestUsernameIsUnique(t *testing.T) {
	store := seeded(t)
	err := store.Users().Create(context.Background(), &domain.User{Username: "alice"})
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestBlacklists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, bl := range map[string]TokenBlacklist{
		"memory": NewMemoryBlacklist(),
		"redis":  NewRedisBlacklist(client, "meal:refresh:"),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, err := bl.Consume(ctx, "jti-1", time.Hour)
			require.NoError(t, err)
			assert.True(t, first)

			again, err := bl.Consume(ctx, "jti-1", time.Hour)
			require.NoError(t, err)
			assert.False(t, again)
		})
	}
	assert.True(t, mr.Exists("meal:refresh:jti-1"))
}
