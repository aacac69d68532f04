package auth

import (
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/nillzand/ehsan-meals/internal/domain"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

var unverified = jwt.NewParser()

// Decode reads the identity carried by an access token. The signature is not
// checked here; the backend verifies it on every call. Tokens without a
// username, or with a role outside the known set, are rejected.
func Decode(access string) (domain.Identity, error) {
	if strings.TrimSpace(access) == "" {
		return domain.Identity{}, apperrors.NewInvalidToken("empty access token")
	}

	claims := &Claims{}
	if _, _, err := unverified.ParseUnverified(access, claims); err != nil {
		return domain.Identity{}, apperrors.NewInvalidToken("malformed access token")
	}
	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return domain.Identity{}, apperrors.NewInvalidToken("not an access token")
	}
	if strings.TrimSpace(claims.Username) == "" {
		return domain.Identity{}, apperrors.NewInvalidToken("access token has no username")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, apperrors.NewInvalidToken("access token carries an unknown role")
	}

	identity := domain.Identity{Username: claims.Username, Role: role}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
