package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nillzand/ehsan-meals/internal/api/dto"
	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/gateway"
	"github.com/nillzand/ehsan-meals/internal/session"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// AuthAPI calls the token endpoints directly. It never goes through the
// gateway, so a rejected refresh cannot trigger another renewal.
type AuthAPI struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

var _ session.Authenticator = (*AuthAPI)(nil)

// NewAuthAPI builds the token client. A nil client gets one with timeout.
func NewAuthAPI(baseURL string, client *http.Client, timeout time.Duration, logger *zap.Logger) *AuthAPI {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

// ObtainToken exchanges credentials for a token pair. 400 and 401 mean the
// credentials were rejected.
func (a *AuthAPI) ObtainToken(ctx context.Context, creds session.Credentials) (domain.TokenPair, error) {
	status, body, err := a.post(ctx, "/token/", dto.TokenRequest{Username: creds.Username, Password: creds.Password})
	if err != nil {
		return domain.TokenPair{}, err
	}
	switch {
	case status == http.StatusOK:
		return decodePair(body)
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return domain.TokenPair{}, apperrors.NewInvalidCredentials()
	default:
		return domain.TokenPair{}, gateway.DecodeError(status, body)
	}
}

// RefreshToken exchanges a refresh token for a new pair.
func (a *AuthAPI) RefreshToken(ctx context.Context, refresh string) (domain.TokenPair, error) {
	status, body, err := a.post(ctx, "/token/refresh/", dto.RefreshRequest{Refresh: refresh})
	if err != nil {
		return domain.TokenPair{}, err
	}
	if status != http.StatusOK {
		return domain.TokenPair{}, gateway.DecodeError(status, body)
	}
	return decodePair(body)
}

func (a *AuthAPI) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read POST %s: %w", path, err)
	}
	a.logger.Debug("token endpoint", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return resp.StatusCode, body, nil
}

func decodePair(body []byte) (domain.TokenPair, error) {
	var pair dto.TokenPairResponse
	if err := json.Unmarshal(body, &pair); err != nil {
		return domain.TokenPair{}, fmt.Errorf("decode token response: %w", err)
	}
	if pair.Access == "" {
		return domain.TokenPair{}, apperrors.NewInvalidToken("token response has no access token")
	}
	return pair.ToDomain(), nil
}
