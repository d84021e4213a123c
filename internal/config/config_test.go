package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightx/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.Extract.DefaultProvider)
	assert.Equal(t, 180*time.Second, cfg.Extract.Timeout)
	assert.Equal(t, int64(20*1024*1024), cfg.Extract.MaxFileSizeBytes())
	assert.Equal(t, "deepseek-chat", cfg.Providers.DeepSeek.Model)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Providers.Anthropic.Model)
	assert.Equal(t, "us-central1", cfg.Providers.Google.Location)
	assert.Equal(t, "native", cfg.Storage.Reference)
	assert.Equal(t, "public, max-age=31536000", cfg.Storage.CacheControl)
	assert.Equal(t, int64(3600), cfg.Storage.PresignExpiry)
	assert.True(t, cfg.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("FREIGHTX_PROVIDERS_ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("FREIGHTX_STORAGE_BUCKET", "waybills")
	t.Setenv("FREIGHTX_EXTRACT_TIMEOUT", "45s")
	t.Setenv("FREIGHTX_PROVIDERS_GOOGLE_PROJECT_ID", "proj-1")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-ant", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "waybills", cfg.Storage.Bucket)
	assert.Equal(t, 45*time.Second, cfg.Extract.Timeout)
	assert.Equal(t, "proj-1", cfg.Providers.Google.ProjectID)
}

func TestLoad_VendorEnvFallback(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-deepseek")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-deepseek", cfg.Providers.DeepSeek.APIKey)
}

func TestLoad_PortEnv(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestProviderConfig_Timeout(t *testing.T) {
	assert.Equal(t, 120*time.Second, config.ProviderConfig{}.Timeout())
	assert.Equal(t, 30*time.Second, config.ProviderConfig{TimeoutSecs: 30}.Timeout())
}
