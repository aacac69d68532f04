package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/auth"
	"github.com/nillzand/ehsan-meals/internal/config"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/repository"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// AuthService issues and rotates token pairs.
type AuthService struct {
	users     repository.UserRepository
	blacklist repository.TokenBlacklist
	tokenMgr  *auth.TokenManager
	logger    *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Blacklist repository.TokenBlacklist
	Tokens    *auth.TokenManager
	Logger    *zap.Logger
}

// NewAuthService builds the service. A nil token manager is built from cfg.
func NewAuthService(cfg config.DevServerConfig, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, cfg.RefreshTTLMinutes)
	}
	blacklist := deps.Blacklist
	if blacklist == nil {
		blacklist = repository.NewMemoryBlacklist()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: deps.UserRepo, blacklist: blacklist, tokenMgr: tokens, logger: logger}
}

// Login exchanges credentials for a new token pair. Unknown users, inactive
// users and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.TokenPair{}, apperrors.NewInvalidCredentials()
		}
		return domain.TokenPair{}, err
	}
	if !user.Active {
		return domain.TokenPair{}, apperrors.NewInvalidCredentials()
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return domain.TokenPair{}, err
	}
	s.logger.Info("login", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return s.tokenMgr.IssuePair(*user)
}

// Refresh rotates a refresh token: the presented token is spent and a new
// pair is issued. A spent token is rejected.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (domain.TokenPair, error) {
	claims, err := s.tokenMgr.ParseToken(refresh, auth.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, apperrors.NewInvalidToken("token is invalid or expired")
	}

	ttl := s.tokenMgr.RefreshTTL()
	if claims.ExpiresAt != nil && claims.IssuedAt != nil {
		ttl = claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	}
	fresh, err := s.blacklist.Consume(ctx, claims.ID, ttl)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if !fresh {
		s.logger.Warn("refresh token reused", zap.String("username", claims.Username))
		return domain.TokenPair{}, apperrors.NewInvalidToken("token is blacklisted")
	}

	user, err := s.users.GetByUsername(ctx, claims.Username)
	if err != nil || !user.Active {
		return domain.TokenPair{}, apperrors.NewInvalidToken("user not found")
	}
	return s.tokenMgr.IssuePair(*user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
