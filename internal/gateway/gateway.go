package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nillzand/ehsan-meals/internal/domain"
	"github.com/nillzand/ehsan-meals/internal/observability"
	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// Session is what the gateway needs from the session manager.
type Session interface {
	AccessToken() (string, bool)
	RenewFrom(ctx context.Context, staleAccess string) (domain.TokenPair, error)
	// ForceLogout ends the session only while it still holds sentAccess.
	ForceLogout(ctx context.Context, sentAccess string, cause error)
}

// Request describes one call to the backend. Body is JSON-encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config controls the outbound HTTP behavior.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// Dependencies bundles the gateway collaborators.
type Dependencies struct {
	Session    Session
	HTTPClient *http.Client
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Gateway attaches credentials to backend calls and renews them on 401.
type Gateway struct {
	baseURL *url.URL
	client  *http.Client
	session Session
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *zap.Logger
}

type retryState int

const (
	notYetRetried retryState = iota
	retried
)

var errRejectedAfterRenewal = errors.New("request rejected again after renewal")

// New builds a gateway for cfg.BaseURL.
func New(cfg Config, deps Dependencies) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if deps.Session == nil {
		return nil, errors.New("gateway requires a session")
	}

	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		baseURL: base,
		client:  client,
		session: deps.Session,
		metrics: deps.Metrics,
		logger:  logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g, nil
}

// Do sends req with the current access token. A 401 triggers one renewal and
// one replay; a second 401 or a failed renewal ends the session with
// ErrSessionExpired. Every other status is returned untouched.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()

	state := notYetRetried
	token, _ := g.session.AccessToken()
	for {
		resp, err := g.send(ctx, req, body, token, requestID)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		if state == retried {
			g.logger.Warn("request rejected after renewal",
				zap.String("method", req.Method), zap.String("path", req.Path), zap.String("request_id", requestID))
			g.session.ForceLogout(ctx, token, errRejectedAfterRenewal)
			return nil, apperrors.NewSessionExpired(errRejectedAfterRenewal)
		}
		state = retried

		pair, err := g.session.RenewFrom(ctx, token)
		if err != nil {
			return nil, err
		}
		token = pair.Access
		g.metrics.RecordReplay()
		g.logger.Debug("replaying request with renewed credentials",
			zap.String("method", req.Method), zap.String("path", req.Path), zap.String("request_id", requestID))
	}
}

func (g *Gateway) send(ctx context.Context, req Request, body []byte, token, requestID string) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, g.resolve(req.Path, req.Query), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		g.metrics.RecordGatewayCall(req.Method, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	g.metrics.RecordGatewayCall(req.Method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.Method, req.Path, err)
	}

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func (g *Gateway) resolve(path string, query url.Values) string {
	u := *g.baseURL
	u.Path = g.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return data, nil
}

// DoJSON sends req and decodes a 2xx body into out. Statuses of 400 and above
// become a remote error carrying the backend's message.
func (g *Gateway) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := g.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return DecodeError(resp.StatusCode, resp.Body)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}
