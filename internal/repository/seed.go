package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/domain"
)

// SeedDays is how many consecutive daily menus Seed creates.
const SeedDays = 7

// SeedAccount is a login created by Seed.
type SeedAccount struct {
	Username string
	Password string
	Role     domain.Role
}

// SeedAccounts are the logins Seed creates.
var SeedAccounts = []SeedAccount{
	{Username: "superadmin", Password: "superpassword123", Role: domain.RoleSuperAdmin},
	{Username: "acme_admin", Password: "password123", Role: domain.RoleCompanyAdmin},
	{Username: "alice", Password: "password123", Role: domain.RoleEmployee},
	{Username: "bob", Password: "password123", Role: domain.RoleEmployee},
}

var (
	seedMains = []domain.MenuItem{
		{Name: "Grilled Chicken", Description: "With herb butter", Price: decimal.RequireFromString("12.50")},
		{Name: "Beef Stew", Description: "Slow cooked", Price: decimal.RequireFromString("14.00")},
		{Name: "Vegetable Curry", Description: "Mild, with rice", Price: decimal.RequireFromString("11.00")},
		{Name: "Soup of the Day", Price: decimal.RequireFromString("5.50")},
	}
	seedSides = []domain.MenuItem{
		{Name: "Garden Salad", Price: decimal.RequireFromString("3.50")},
		{Name: "Garlic Bread", Price: decimal.RequireFromString("2.50")},
		{Name: "Fresh Fruit", Price: decimal.RequireFromString("1.50")},
	}
)

// Seed fills store with one company, the SeedAccounts and a schedule whose
// daily menus start on from.
func Seed(ctx context.Context, store *Memory, from domain.Date, bcryptCost int) error {
	company := &domain.Company{Name: "Acme", WalletBalance: decimal.NewFromInt(5000)}
	if err := store.Companies().Create(ctx, company); err != nil {
		return err
	}

	budgets := map[domain.Role]decimal.Decimal{
		domain.RoleSuperAdmin:   decimal.Zero,
		domain.RoleCompanyAdmin: decimal.NewFromInt(100),
		domain.RoleEmployee:     decimal.NewFromInt(50),
	}
	for _, account := range SeedAccounts {
		hash, err := auth.HashPassword(account.Password, bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", account.Username, err)
		}
		user := &domain.User{
			Username:     account.Username,
			FirstName:    account.Username,
			Email:        account.Username + "@example.com",
			Role:         account.Role,
			Budget:       budgets[account.Role],
			PasswordHash: hash,
			Active:       true,
		}
		if account.Role != domain.RoleSuperAdmin {
			user.CompanyID = &company.ID
		}
		if err := store.Users().Create(ctx, user); err != nil {
			return err
		}
	}

	schedule := &domain.Schedule{
		Name:      "Acme weekly",
		CompanyID: &company.ID,
		StartDate: from,
		EndDate:   from.AddDays(SeedDays - 1),
		IsActive:  true,
	}
	for day := 0; day < SeedDays; day++ {
		// Rotate the mains so consecutive days differ.
		mains := make([]domain.MenuItem, 0, 3)
		for i := 0; i < 3; i++ {
			mains = append(mains, seedMains[(day+i)%len(seedMains)])
		}
		schedule.DailyMenus = append(schedule.DailyMenus, domain.DailyMenu{
			Date:      from.AddDays(day),
			MainItems: mains,
			SideItems: append([]domain.MenuItem(nil), seedSides...),
		})
	}
	if err := store.Schedules().Create(ctx, schedule); err != nil {
		return err
	}
	assignItemIDs(store, schedule.ID)
	return nil
}

// assignItemIDs numbers the catalog so each dish keeps one id across days.
func assignItemIDs(store *Memory, scheduleID int64) {
	store.mu.Lock()
	defer store.mu.Unlock()

	ids := make(map[string]int64)
	idFor := func(name string) int64 {
		if id, ok := ids[name]; ok {
			return id
		}
		ids[name] = store.id()
		return ids[name]
	}
	s := store.schedules[scheduleID]
	for d := range s.DailyMenus {
		menu := &s.DailyMenus[d]
		menu.MainItems = append([]domain.MenuItem(nil), menu.MainItems...)
		menu.SideItems = append([]domain.MenuItem(nil), menu.SideItems...)
		for i := range menu.MainItems {
			menu.MainItems[i].ID = idFor(menu.MainItems[i].Name)
		}
		for i := range menu.SideItems {
			menu.SideItems[i].ID = idFor(menu.SideItems[i].Name)
		}
	}
}
