// Package dnb is the national business registry client: an OAuth client
// credentials token manager and the company search it authenticates.
package dnb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"quickfi/internal/screening/metrics"
	"quickfi/internal/screening/sources"
)

const (
	sourceName = "dnb"

	// ExpiryBuffer is subtracted from the expiry so a token is never used
	// right before it lapses.
	ExpiryBuffer = 60 * time.Second

	// DefaultTokenLifetime applies when neither expiresIn nor a JWT exp is present.
	DefaultTokenLifetime = time.Hour
)

// Token is a bearer access token with its absolute expiry.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token can still be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-ExpiryBuffer))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   *int64 `json:"expiresIn"`
}

// TokenManager owns the cached registry token. Concurrent callers that find
// the cache stale share a single exchange.
type TokenManager struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       sources.HTTPDoer
	now          func() time.Time
	logger       *slog.Logger
	metrics      *metrics.Metrics

	mu    sync.RWMutex
	token Token
	group singleflight.Group
}

type TokenOption func(*TokenManager)

func WithTokenHTTPClient(c sources.HTTPDoer) TokenOption {
	return func(m *TokenManager) { m.client = c }
}

func WithTokenClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

func WithTokenLogger(l *slog.Logger) TokenOption {
	return func(m *TokenManager) { m.logger = l }
}

func WithTokenMetrics(mt *metrics.Metrics) TokenOption {
	return func(m *TokenManager) { m.metrics = mt }
}

// NewTokenManager builds a manager for the given token endpoint and credentials.
func NewTokenManager(tokenURL, clientID, clientSecret string, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 15 * time.Second},
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns the cached token while it is valid, exchanging credentials otherwise.
func (m *TokenManager) Token(ctx context.Context) (Token, error) {
	if t, ok := m.cached(); ok {
		return t, nil
	}

	ch := m.group.DoChan("token", func() (any, error) {
		if t, ok := m.cached(); ok {
			return t, nil
		}
		// A caller cancelling must not fail the others waiting on this exchange.
		t, err := m.exchange(context.WithoutCancel(ctx))
		m.metrics.RecordTokenRefresh(err == nil)
		if err != nil {
			return Token{}, err
		}
		m.mu.Lock()
		m.token = t
		m.mu.Unlock()
		m.logger.Debug("registry token refreshed", "expires_at", t.ExpiresAt)
		return t, nil
	})

	select {
	case <-ctx.Done():
		return Token{}, sources.TransportError(ctx, sourceName, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

// Invalidate drops the cached token so the next call re-authenticates.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = Token{}
	m.mu.Unlock()
}

func (m *TokenManager) cached() (Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token.Valid(m.now())
}

func (m *TokenManager) exchange(ctx context.Context) (Token, error) {
	if m.clientID == "" || m.clientSecret == "" {
		return Token{}, sources.NewSourceError(sources.ErrorAuthentication, sourceName, "client credentials not configured", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL,
		strings.NewReader(`{"grant_type":"client_credentials"}`))
	if err != nil {
		return Token{}, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to create token request", err)
	}
	req.SetBasicAuth(m.clientID, m.clientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Token{}, sources.TransportError(ctx, sourceName, err)
	}
	defer resp.Body.Close()

	if se := sources.StatusError(sourceName, resp.StatusCode); se != nil {
		return Token{}, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Token{}, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to read token response", err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return Token{}, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to decode token response", err)
	}
	if tr.AccessToken == "" {
		return Token{}, sources.NewSourceError(sources.ErrorContractMismatch, sourceName, "token response missing access_token", nil)
	}

	return Token{AccessToken: tr.AccessToken, ExpiresAt: m.expiry(tr)}, nil
}

// expiry prefers expiresIn, then the JWT exp claim, then DefaultTokenLifetime.
func (m *TokenManager) expiry(tr tokenResponse) time.Time {
	now := m.now()
	if tr.ExpiresIn != nil {
		return now.Add(time.Duration(*tr.ExpiresIn) * time.Second)
	}
	if exp, err := jwtExpiry(tr.AccessToken); err == nil {
		return exp
	}
	return now.Add(DefaultTokenLifetime)
}

// jwtExpiry reads exp without verifying the signature; the token is only
// inspected for its lifetime, never trusted for identity.
func jwtExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return exp.Time, nil
}
