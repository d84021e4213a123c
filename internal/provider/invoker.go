package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
)

// maxErrorBody bounds how much of an error envelope ends up in messages and logs.
const maxErrorBody = 2048

// BreakerSettings configures the per-provider circuit breaker.
type BreakerSettings struct {
	Enabled             bool
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// BreakerSettingsFromConfig maps breaker config onto BreakerSettings.
func BreakerSettingsFromConfig(cfg config.BreakerConfig) BreakerSettings {
	return BreakerSettings{
		Enabled:             cfg.Enabled,
		ConsecutiveFailures: cfg.ConsecutiveFailures,
		OpenTimeout:         cfg.OpenTimeout,
	}
}

// Invoker sends a built payload to one provider endpoint and classifies the outcome. It
// never retries.
type Invoker struct {
	name        string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[[]byte]
	openTimeout time.Duration
	logger      *zap.Logger
}

// NewInvoker creates an invoker with its own HTTP client and, when enabled, circuit breaker.
func NewInvoker(name string, timeout time.Duration, bs BreakerSettings, logger *zap.Logger) *Invoker {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	inv := &Invoker{
		name:   name,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
	if bs.Enabled {
		inv.breaker, inv.openTimeout = newBreaker(name, bs, logger)
	}
	return inv
}

func newBreaker(name string, bs BreakerSettings, logger *zap.Logger) (*gobreaker.CircuitBreaker[[]byte], time.Duration) {
	threshold := bs.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	openTimeout := bs.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only upstream pressure counts against the circuit; bad credentials or bad
		// requests do not.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return !errors.Is(err, domain.ErrRateLimited) && !errors.Is(err, domain.ErrTransport)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("provider.Invoker: circuit breaker state change",
				zap.String("provider", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return gobreaker.NewCircuitBreaker[[]byte](settings), openTimeout
}

// Name returns the provider name used in errors and logs.
func (i *Invoker) Name() string {
	return i.name
}

// PostJSON marshals body, sends it with the given headers and returns the raw response
// envelope of a 2xx answer.
func (i *Invoker) PostJSON(ctx context.Context, endpoint string, header http.Header, body map[string]any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling %s request: %v", domain.ErrProvider, i.name, err)
	}

	if i.breaker == nil {
		return i.do(ctx, endpoint, header, payload)
	}
	raw, err := i.breaker.Execute(func() ([]byte, error) {
		return i.do(ctx, endpoint, header, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, NewRateLimitError(i.name, fmt.Errorf("circuit open: %w", err), int(i.openTimeout/time.Second))
	}
	return raw, err
}

func (i *Invoker) do(ctx context.Context, endpoint string, header http.Header, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s request: %v", domain.ErrTransport, i.name, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		i.logger.Warn("provider.Invoker.do: request failed",
			zap.String("provider", i.name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, fmt.Errorf("%w: calling %s API: %w", domain.ErrTransport, i.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", domain.ErrTransport, i.name, err)
	}

	i.logger.Debug("provider.Invoker.do: response received",
		zap.String("provider", i.name),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	msg := ErrorMessage(respBody)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s API error (status %d): %s", domain.ErrAuthentication, i.name, resp.StatusCode, msg)
	case http.StatusTooManyRequests:
		baseErr := fmt.Errorf("%s API error (status %d): %s", i.name, resp.StatusCode, msg)
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, NewRateLimitError(i.name, baseErr, retryAfter)
	default:
		return nil, fmt.Errorf("%w: %s API error (status %d): %s", domain.ErrProvider, i.name, resp.StatusCode, msg)
	}
}

// ErrorMessage extracts the provider's own message from an error envelope. OpenAI-compatible
// APIs, Anthropic and Vertex all use {"error": {"message": ...}}; anything else is returned
// as (truncated) text.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		var nested struct {
			Message string `json:"message"`
		}
		if len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var flat string
		if len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &flat) == nil && flat != "" {
			return flat
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorBody)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
