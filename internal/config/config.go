package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	CORS      CORSConfig
	Extract   ExtractConfig
	Providers ProvidersConfig
	Storage   StorageConfig
	Breaker   BreakerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ExtractConfig holds orchestrator settings.
type ExtractConfig struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxFileSizeMB   int64         `mapstructure:"max_file_size_mb"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (e ExtractConfig) MaxFileSizeBytes() int64 {
	return e.MaxFileSizeMB * 1024 * 1024
}

// ProviderConfig holds settings for a single generative-AI provider.
type ProviderConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	// Auth is "api_key" (default) or "none" for endpoints authenticated out-of-band.
	Auth string `mapstructure:"auth"`
}

// Timeout returns the per-call HTTP timeout, defaulting to 120s.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(p.TimeoutSecs) * time.Second
}

// GoogleConfig holds Vertex AI settings. The service account comes either from a key file
// or from the explicit fields.
type GoogleConfig struct {
	ProviderConfig  `mapstructure:",squash"`
	CredentialsFile string `mapstructure:"credentials_file"`
	ClientEmail     string `mapstructure:"client_email"`
	PrivateKey      string `mapstructure:"private_key"`
	PrivateKeyID    string `mapstructure:"private_key_id"`
	ProjectID       string `mapstructure:"project_id"`
	Location        string `mapstructure:"location"`
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	DeepSeek  ProviderConfig `mapstructure:"deepseek"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
	Google    GoogleConfig   `mapstructure:"google"`
}

// StorageConfig holds S3-compatible object storage settings used for file-reference
// ingestion.
type StorageConfig struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Reference     string `mapstructure:"reference"`
	URIScheme     string `mapstructure:"uri_scheme"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
	CacheControl  string `mapstructure:"cache_control"`
}

// BreakerConfig holds the per-provider circuit breaker settings.
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// Load reads configuration from environment variables with the FREIGHTX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FREIGHTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "200s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit_rps", 2)
	v.SetDefault("server.rate_limit_burst", 5)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (the Nuxt dev server)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Extraction defaults
	v.SetDefault("extract.default_provider", "deepseek")
	v.SetDefault("extract.timeout", "180s")
	v.SetDefault("extract.max_file_size_mb", 20)

	// Provider defaults
	v.SetDefault("providers.deepseek.model", "deepseek-chat")
	v.SetDefault("providers.deepseek.timeout_secs", 120)
	v.SetDefault("providers.deepseek.auth", "api_key")
	v.SetDefault("providers.openai.model", "gpt-4o")
	v.SetDefault("providers.openai.timeout_secs", 120)
	v.SetDefault("providers.openai.auth", "api_key")
	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("providers.anthropic.timeout_secs", 120)
	v.SetDefault("providers.anthropic.auth", "api_key")
	v.SetDefault("providers.google.model", "gemini-2.0-flash")
	v.SetDefault("providers.google.timeout_secs", 150)
	v.SetDefault("providers.google.location", "us-central1")

	// Storage defaults
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.prefix", "uploads/")
	v.SetDefault("storage.reference", "native")
	v.SetDefault("storage.uri_scheme", "gs")
	v.SetDefault("storage.presign_expiry", 3600)
	v.SetDefault("storage.cache_control", "public, max-age=31536000")

	// Breaker defaults
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.open_timeout", "30s")

	// Bind environment variables explicitly for nested keys. Provider secrets also accept
	// the vendor's conventional variable name.
	envBindings := map[string][]string{
		"server.port":                       {"FREIGHTX_SERVER_PORT"},
		"server.read_timeout":               {"FREIGHTX_SERVER_READ_TIMEOUT"},
		"server.write_timeout":              {"FREIGHTX_SERVER_WRITE_TIMEOUT"},
		"server.environment":                {"FREIGHTX_SERVER_ENVIRONMENT"},
		"server.rate_limit_rps":             {"FREIGHTX_SERVER_RATE_LIMIT_RPS"},
		"server.rate_limit_burst":           {"FREIGHTX_SERVER_RATE_LIMIT_BURST"},
		"log.level":                         {"FREIGHTX_LOG_LEVEL"},
		"log.format":                        {"FREIGHTX_LOG_FORMAT"},
		"cors.allowed_origins":              {"FREIGHTX_CORS_ALLOWED_ORIGINS"},
		"extract.default_provider":          {"FREIGHTX_EXTRACT_DEFAULT_PROVIDER"},
		"extract.timeout":                   {"FREIGHTX_EXTRACT_TIMEOUT"},
		"extract.max_file_size_mb":          {"FREIGHTX_EXTRACT_MAX_FILE_SIZE_MB"},
		"providers.deepseek.api_key":        {"FREIGHTX_PROVIDERS_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY"},
		"providers.deepseek.base_url":       {"FREIGHTX_PROVIDERS_DEEPSEEK_BASE_URL"},
		"providers.deepseek.model":          {"FREIGHTX_PROVIDERS_DEEPSEEK_MODEL"},
		"providers.deepseek.timeout_secs":   {"FREIGHTX_PROVIDERS_DEEPSEEK_TIMEOUT_SECS"},
		"providers.deepseek.auth":           {"FREIGHTX_PROVIDERS_DEEPSEEK_AUTH"},
		"providers.openai.api_key":          {"FREIGHTX_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"providers.openai.base_url":         {"FREIGHTX_PROVIDERS_OPENAI_BASE_URL"},
		"providers.openai.model":            {"FREIGHTX_PROVIDERS_OPENAI_MODEL"},
		"providers.openai.timeout_secs":     {"FREIGHTX_PROVIDERS_OPENAI_TIMEOUT_SECS"},
		"providers.openai.auth":             {"FREIGHTX_PROVIDERS_OPENAI_AUTH"},
		"providers.anthropic.api_key":       {"FREIGHTX_PROVIDERS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"providers.anthropic.base_url":      {"FREIGHTX_PROVIDERS_ANTHROPIC_BASE_URL"},
		"providers.anthropic.model":         {"FREIGHTX_PROVIDERS_ANTHROPIC_MODEL"},
		"providers.anthropic.timeout_secs":  {"FREIGHTX_PROVIDERS_ANTHROPIC_TIMEOUT_SECS"},
		"providers.anthropic.auth":          {"FREIGHTX_PROVIDERS_ANTHROPIC_AUTH"},
		"providers.google.base_url":         {"FREIGHTX_PROVIDERS_GOOGLE_BASE_URL"},
		"providers.google.model":            {"FREIGHTX_PROVIDERS_GOOGLE_MODEL"},
		"providers.google.timeout_secs":     {"FREIGHTX_PROVIDERS_GOOGLE_TIMEOUT_SECS"},
		"providers.google.credentials_file": {"FREIGHTX_PROVIDERS_GOOGLE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"},
		"providers.google.client_email":     {"FREIGHTX_PROVIDERS_GOOGLE_CLIENT_EMAIL"},
		"providers.google.private_key":      {"FREIGHTX_PROVIDERS_GOOGLE_PRIVATE_KEY"},
		"providers.google.private_key_id":   {"FREIGHTX_PROVIDERS_GOOGLE_PRIVATE_KEY_ID"},
		"providers.google.project_id":       {"FREIGHTX_PROVIDERS_GOOGLE_PROJECT_ID"},
		"providers.google.location":         {"FREIGHTX_PROVIDERS_GOOGLE_LOCATION"},
		"storage.region":                    {"FREIGHTX_STORAGE_REGION"},
		"storage.bucket":                    {"FREIGHTX_STORAGE_BUCKET"},
		"storage.prefix":                    {"FREIGHTX_STORAGE_PREFIX"},
		"storage.endpoint":                  {"FREIGHTX_STORAGE_ENDPOINT"},
		"storage.access_key":                {"FREIGHTX_STORAGE_ACCESS_KEY"},
		"storage.secret_key":                {"FREIGHTX_STORAGE_SECRET_KEY"},
		"storage.reference":                 {"FREIGHTX_STORAGE_REFERENCE"},
		"storage.uri_scheme":                {"FREIGHTX_STORAGE_URI_SCHEME"},
		"storage.presign_expiry":            {"FREIGHTX_STORAGE_PRESIGN_EXPIRY"},
		"storage.cache_control":             {"FREIGHTX_STORAGE_CACHE_CONTROL"},
		"breaker.enabled":                   {"FREIGHTX_BREAKER_ENABLED"},
		"breaker.consecutive_failures":      {"FREIGHTX_BREAKER_CONSECUTIVE_FAILURES"},
		"breaker.open_timeout":              {"FREIGHTX_BREAKER_OPEN_TIMEOUT"},
	}
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FREIGHTX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FREIGHTX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		Environment:    v.GetString("server.environment"),
		RateLimitRPS:   v.GetFloat64("server.rate_limit_rps"),
		RateLimitBurst: v.GetInt("server.rate_limit_burst"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Extract = ExtractConfig{
		DefaultProvider: v.GetString("extract.default_provider"),
		Timeout:         v.GetDuration("extract.timeout"),
		MaxFileSizeMB:   v.GetInt64("extract.max_file_size_mb"),
	}
	cfg.Providers = ProvidersConfig{
		DeepSeek:  providerConfig(v, "deepseek"),
		OpenAI:    providerConfig(v, "openai"),
		Anthropic: providerConfig(v, "anthropic"),
		Google: GoogleConfig{
			ProviderConfig:  providerConfig(v, "google"),
			CredentialsFile: v.GetString("providers.google.credentials_file"),
			ClientEmail:     v.GetString("providers.google.client_email"),
			PrivateKey:      v.GetString("providers.google.private_key"),
			PrivateKeyID:    v.GetString("providers.google.private_key_id"),
			ProjectID:       v.GetString("providers.google.project_id"),
			Location:        v.GetString("providers.google.location"),
		},
	}
	cfg.Storage = StorageConfig{
		Region:        v.GetString("storage.region"),
		Bucket:        v.GetString("storage.bucket"),
		Prefix:        v.GetString("storage.prefix"),
		Endpoint:      v.GetString("storage.endpoint"),
		AccessKey:     v.GetString("storage.access_key"),
		SecretKey:     v.GetString("storage.secret_key"),
		Reference:     v.GetString("storage.reference"),
		URIScheme:     v.GetString("storage.uri_scheme"),
		PresignExpiry: v.GetInt64("storage.presign_expiry"),
		CacheControl:  v.GetString("storage.cache_control"),
	}
	cfg.Breaker = BreakerConfig{
		Enabled:             v.GetBool("breaker.enabled"),
		ConsecutiveFailures: v.GetUint32("breaker.consecutive_failures"),
		OpenTimeout:         v.GetDuration("breaker.open_timeout"),
	}

	return cfg, nil
}

func providerConfig(v *viper.Viper, name string) ProviderConfig {
	prefix := "providers." + name + "."
	return ProviderConfig{
		APIKey:      v.GetString(prefix + "api_key"),
		BaseURL:     v.GetString(prefix + "base_url"),
		Model:       v.GetString(prefix + "model"),
		TimeoutSecs: v.GetInt(prefix + "timeout_secs"),
		Auth:        v.GetString(prefix + "auth"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}
