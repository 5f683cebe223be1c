package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceErrorRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		retryable bool
	}{
		{ErrorTimeout, true},
		{ErrorProviderOutage, true},
		{ErrorRateLimited, true},
		{ErrorBadData, false},
		{ErrorAuthentication, false},
		{ErrorContractMismatch, false},
		{ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := NewSourceError(tt.category, "dnb", "x", nil)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(fmt.Errorf("wrapped: %w", err)))
		})
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, ErrorBadData, CategoryOf(NewSourceError(ErrorBadData, "geocoder", "bad", nil)))
	assert.Equal(t, ErrorInternal, CategoryOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestSourceErrorUnwrap(t *testing.T) {
	root := errors.New("connection reset")
	err := NewSourceError(ErrorProviderOutage, "sanctions", "failed to execute request", root)
	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), "sanctions")
	assert.Contains(t, err.Error(), "provider_outage")
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCategory
	}{
		{http.StatusUnauthorized, ErrorAuthentication},
		{http.StatusForbidden, ErrorAuthentication},
		{http.StatusTooManyRequests, ErrorRateLimited},
		{http.StatusGatewayTimeout, ErrorTimeout},
		{http.StatusBadGateway, ErrorProviderOutage},
		{http.StatusServiceUnavailable, ErrorProviderOutage},
		{http.StatusBadRequest, ErrorContractMismatch},
		{http.StatusNotFound, ErrorContractMismatch},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := StatusError("dnb", tt.status)
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Category)
		})
	}

	assert.Nil(t, StatusError("dnb", http.StatusOK))
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, ErrorProviderOutage, TransportError(ctx, "dnb", context.Canceled).Category)
	assert.Equal(t, ErrorTimeout, TransportError(context.Background(), "dnb", context.DeadlineExceeded).Category)
}
