package dnb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"quickfi/internal/screening/sources"
)

type TokenManagerSuite struct {
	suite.Suite
	now    time.Time
	calls  atomic.Int32
	server *httptest.Server
	reply  func(w http.ResponseWriter, r *http.Request)
}

func TestTokenManagerSuite(t *testing.T) {
	suite.Run(t, new(TokenManagerSuite))
}

func (s *TokenManagerSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.calls.Store(0)
	s.reply = func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok-1","expiresIn":120}`)
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.reply(w, r)
	}))
}

func (s *TokenManagerSuite) TearDownTest() {
	s.server.Close()
}

func (s *TokenManagerSuite) manager() *TokenManager {
	return NewTokenManager(s.server.URL, "client", "secret",
		WithTokenClock(func() time.Time { return s.now }))
}

func (s *TokenManagerSuite) TestSendsClientCredentials() {
	s.reply = func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-1","expiresIn":3600}`)
	}

	tok, err := s.manager().Token(context.Background())
	s.Require().NoError(err)
	s.Equal("tok-1", tok.AccessToken)
	s.Equal(s.now.Add(time.Hour), tok.ExpiresAt)
}

// Invariant: a token is valid iff now < expires_at - 60s.
func (s *TokenManagerSuite) TestValidityWindow() {
	m := s.manager()
	ctx := context.Background()

	_, err := m.Token(ctx)
	s.Require().NoError(err)

	s.now = s.now.Add(59 * time.Second)
	_, err = m.Token(ctx)
	s.Require().NoError(err)
	s.Equal(int32(1), s.calls.Load(), "token reused inside the window")

	s.now = s.now.Add(time.Second)
	_, err = m.Token(ctx)
	s.Require().NoError(err)
	s.Equal(int32(2), s.calls.Load(), "token refreshed at the buffer boundary")
}

// Invariant: concurrent callers on a stale cache trigger exactly one exchange.
func (s *TokenManagerSuite) TestSingleFlightRefresh() {
	release := make(chan struct{})
	s.reply = func(w http.ResponseWriter, _ *http.Request) {
		<-release
		fmt.Fprint(w, `{"access_token":"tok-shared","expiresIn":3600}`)
	}
	m := s.manager()

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.Token(context.Background())
			tokens[i], errs[i] = tok.AccessToken, err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(int32(1), s.calls.Load())
	for i := range callers {
		s.NoError(errs[i])
		s.Equal("tok-shared", tokens[i])
	}
}

func (s *TokenManagerSuite) TestExpiryFallbacks() {
	s.Run("jwt exp claim when expiresIn is absent", func() {
		exp := s.now.Add(30 * time.Minute).Truncate(time.Second)
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("unrelated-key"))
		s.Require().NoError(err)
		s.reply = func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprintf(w, `{"access_token":%q}`, raw)
		}

		tok, err := s.manager().Token(context.Background())
		s.Require().NoError(err)
		s.True(exp.Equal(tok.ExpiresAt))
	})

	s.Run("default lifetime for opaque tokens", func() {
		s.reply = func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"access_token":"opaque"}`)
		}
		tok, err := s.manager().Token(context.Background())
		s.Require().NoError(err)
		s.Equal(s.now.Add(DefaultTokenLifetime), tok.ExpiresAt)
	})
}

func (s *TokenManagerSuite) TestInvalidateForcesExchange() {
	m := s.manager()
	ctx := context.Background()

	_, err := m.Token(ctx)
	s.Require().NoError(err)
	m.Invalidate()
	_, err = m.Token(ctx)
	s.Require().NoError(err)
	s.Equal(int32(2), s.calls.Load())
}

func (s *TokenManagerSuite) TestFailures() {
	s.Run("rejected credentials", func() {
		s.reply = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}
		_, err := s.manager().Token(context.Background())
		s.Equal(sources.ErrorAuthentication, sources.CategoryOf(err))
	})

	s.Run("missing access token", func() {
		s.reply = func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"expiresIn":3600}`)
		}
		_, err := s.manager().Token(context.Background())
		s.Equal(sources.ErrorContractMismatch, sources.CategoryOf(err))
	})

	s.Run("unconfigured credentials", func() {
		m := NewTokenManager(s.server.URL, "", "")
		_, err := m.Token(context.Background())
		s.Equal(sources.ErrorAuthentication, sources.CategoryOf(err))
	})
}
