package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightx/internal/domain"
	"freightx/internal/provider"
)

func noBreaker() provider.BreakerSettings {
	return provider.BreakerSettings{}
}

func TestInvoker_Success(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body["model"])

		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	inv := provider.NewInvoker("deepseek", 5*time.Second, noBreaker(), nil)
	raw, err := inv.PostJSON(context.Background(), server.URL,
		http.Header{"Authorization": {"Bearer sk-test"}},
		map[string]any{"model": "deepseek-chat"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvoker_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		retryAfter string
		wantErr    error
		wantMsg    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, "", domain.ErrAuthentication, "Incorrect API key provided"},
		{"forbidden", http.StatusForbidden, `{"error":{"message":"Permission denied on resource project"}}`, "", domain.ErrAuthentication, "Permission denied"},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, "17", domain.ErrRateLimited, "Rate limit reached"},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"The server had an error"}}`, "", domain.ErrProvider, "The server had an error"},
		{"bad request flat error", http.StatusBadRequest, `{"error":"model not found"}`, "", domain.ErrProvider, "model not found"},
		{"non-json body", http.StatusBadGateway, `upstream connect error`, "", domain.ErrProvider, "upstream connect error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			inv := provider.NewInvoker("openai", 5*time.Second, noBreaker(), nil)
			_, err := inv.PostJSON(context.Background(), server.URL, nil, map[string]any{})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestInvoker_RateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	inv := provider.NewInvoker("anthropic", 5*time.Second, noBreaker(), nil)
	_, err := inv.PostJSON(context.Background(), server.URL, nil, map[string]any{})

	retry, ok := provider.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 17*time.Second, retry)
}

func TestInvoker_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	inv := provider.NewInvoker("deepseek", 2*time.Second, noBreaker(), nil)
	_, err := inv.PostJSON(context.Background(), url, nil, map[string]any{})

	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestInvoker_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	inv := provider.NewInvoker("deepseek", 50*time.Millisecond, noBreaker(), nil)
	_, err := inv.PostJSON(context.Background(), server.URL, nil, map[string]any{})

	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestInvoker_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	inv := provider.NewInvoker("google", 5*time.Second, provider.BreakerSettings{
		Enabled:             true,
		ConsecutiveFailures: 3,
		OpenTimeout:         time.Minute,
	}, nil)

	for i := 0; i < 3; i++ {
		_, err := inv.PostJSON(context.Background(), server.URL, nil, map[string]any{})
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	}
	assert.Equal(t, int32(3), calls.Load())

	// Open: fails fast without reaching the server.
	_, err := inv.PostJSON(context.Background(), server.URL, nil, map[string]any{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	retry, ok := provider.RetryAfter(err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, retry)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInvoker_BreakerIgnoresAuthFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	inv := provider.NewInvoker("openai", 5*time.Second, provider.BreakerSettings{
		Enabled:             true,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, nil)

	for i := 0; i < 4; i++ {
		_, err := inv.PostJSON(context.Background(), server.URL, nil, map[string]any{})
		assert.ErrorIs(t, err, domain.ErrAuthentication)
	}
	assert.Equal(t, int32(4), calls.Load())
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad key", provider.ErrorMessage([]byte(`{"error":{"message":"bad key","type":"auth"}}`)))
	assert.Equal(t, "flat", provider.ErrorMessage([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "top level", provider.ErrorMessage([]byte(`{"message":"top level"}`)))
	assert.Equal(t, "plain text", provider.ErrorMessage([]byte("  plain text \n")))
}
