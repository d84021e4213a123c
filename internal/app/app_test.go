package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"freightx/internal/app"
	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/metrics"
)

func TestNew_RegistersEveryProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.DeepSeek.APIKey = "sk-ds"
	cfg.Providers.OpenAI.Auth = "none"

	a := app.New(cfg, metrics.New(), zap.NewNop())

	statuses := a.Extraction.Providers(context.Background())
	require.Len(t, statuses, 4)
	configured := map[domain.ProviderID]bool{}
	for _, s := range statuses {
		configured[s.Name] = s.Configured
	}
	assert.Equal(t, map[domain.ProviderID]bool{
		domain.ProviderAnthropic: false,
		domain.ProviderDeepSeek:  true,
		domain.ProviderGoogle:    false,
		domain.ProviderOpenAI:    true,
	}, configured)
	assert.True(t, a.Extraction.Ready(context.Background()))
}

func TestNew_WithoutMetrics(t *testing.T) {
	a := app.New(&config.Config{}, nil, zap.NewNop())
	assert.False(t, a.Extraction.Ready(context.Background()))
}

func TestNew_RaisesPresignExpiryPastTimeout(t *testing.T) {
	const msg = "app.New: presign expiry does not outlast the request timeout, raising it"

	tests := []struct {
		name    string
		expiry  int64
		timeout time.Duration
		want    time.Duration
	}{
		{"shorter than timeout", 60, 180 * time.Second, 360 * time.Second},
		{"shorter than default timeout", 120, 0, 360 * time.Second},
		{"already longer", 3600, 180 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			cfg := &config.Config{}
			cfg.Storage.Reference = string(domain.ReferencePresigned)
			cfg.Storage.PresignExpiry = tt.expiry
			cfg.Extract.Timeout = tt.timeout

			app.New(cfg, nil, zap.New(core))

			raised := logs.FilterMessage(msg).All()
			if tt.want == 0 {
				assert.Empty(t, raised)
				return
			}
			require.Len(t, raised, 1)
			assert.Equal(t, tt.want, raised[0].ContextMap()["presign_expiry"])
		})
	}
}
