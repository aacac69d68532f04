package dto

import (
	"github.com/shopspring/decimal"

	"github.com/nillzand/ehsan-meals/internal/domain"
)

// TokenRequest payload for POST /token/.
type TokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest payload for POST /token/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// TokenPairResponse is returned by both token endpoints.
type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

func (r TokenPairResponse) ToDomain() domain.TokenPair {
	return domain.TokenPair{Access: r.Access, Refresh: r.Refresh}
}

// UserResponse is the profile returned by GET /users/me/.
type UserResponse struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Role        domain.Role     `json:"role"`
	Company     *int64          `json:"company"`
	CompanyName string          `json:"company_name,omitempty"`
	Budget      decimal.Decimal `json:"budget"`
}

func FromUser(u domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role,
		Company:     u.CompanyID,
		CompanyName: u.CompanyName,
		Budget:      u.Budget,
	}
}

func (r UserResponse) ToDomain() domain.User {
	return domain.User{
		ID:          r.ID,
		Username:    r.Username,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Role:        r.Role,
		CompanyID:   r.Company,
		CompanyName: r.CompanyName,
		Budget:      r.Budget,
		Active:      true,
	}
}
