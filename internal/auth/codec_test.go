package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeAccessToken(t *testing.T) {
	exp := time.Date(2030, time.May, 1, 12, 0, 0, 0, time.UTC)
	token := sign(t, jwt.MapClaims{
		"token_type": "access",
		"user_id":    7,
		"username":   "alice",
		"role":       "EMPLOYEE",
		"exp":        exp.Unix(),
	})

	identity, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, domain.RoleEmployee, identity.Role)
	assert.True(t, identity.ExpiresAt.Equal(exp))

	again, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, identity, again)
}

func TestDecodeIgnoresSignatureAndExpiry(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"username": "bob",
		"role":     "COMPANY_ADMIN",
		"exp":      time.Now().Add(-time.Hour).Unix(),
	})

	identity, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCompanyAdmin, identity.Role)
	assert.True(t, identity.Expired(time.Now()))
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"two segments":   "aaa.bbb",
		"missing role":   sign(t, jwt.MapClaims{"username": "carol"}),
		"missing user":   sign(t, jwt.MapClaims{"role": "EMPLOYEE"}),
		"unknown role":   sign(t, jwt.MapClaims{"username": "carol", "role": "OWNER"}),
		"lowercase role": sign(t, jwt.MapClaims{"username": "carol", "role": "employee"}),
		"padded role":    sign(t, jwt.MapClaims{"username": "carol", "role": " EMPLOYEE\n"}),
		"refresh token":  sign(t, jwt.MapClaims{"username": "carol", "role": "EMPLOYEE", "token_type": "refresh"}),
		"numeric role":   sign(t, jwt.MapClaims{"username": "carol", "role": 3}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(token)
			assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	}
}
