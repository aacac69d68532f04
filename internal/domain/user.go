package domain

import "github.com/shopspring/decimal"

// User is an account of the meal service. Budget is the remaining amount the user may spend.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	Role         Role
	CompanyID    *int64
	CompanyName  string
	Budget       decimal.Decimal
	PasswordHash string
	Active       bool
}

// Company is a client company whose employees order meals.
type Company struct {
	ID            int64
	Name          string
	WalletBalance decimal.Decimal
}
