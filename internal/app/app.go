// Package app assembles the extraction stack from configuration. The HTTP server and the CLI
// share it so both run the same composition.
package app

import (
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/credentials"
	"freightx/internal/domain"
	"freightx/internal/extractor/pdftext"
	"freightx/internal/ingest"
	"freightx/internal/metrics"
	"freightx/internal/provider"
	"freightx/internal/provider/anthropic"
	"freightx/internal/provider/deepseek"
	"freightx/internal/provider/openai"
	"freightx/internal/provider/vertex"
	"freightx/internal/service"
	s3storage "freightx/internal/storage/s3"
)

// App holds the long-lived collaborators built once at startup.
type App struct {
	Extraction service.ExtractionService
}

// New builds the registry, resolver, ingestion strategy and orchestrator. m may be nil.
// Storage failures do not stop startup; they surface on the first file-reference request.
func New(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *App {
	storage := s3storage.Init(&cfg.Storage, logger)

	bs := provider.BreakerSettingsFromConfig(cfg.Breaker)
	registry := provider.NewRegistry(
		deepseek.NewProvider(&cfg.Providers.DeepSeek, bs, logger),
		openai.NewProvider(&cfg.Providers.OpenAI, bs, logger),
		anthropic.NewProvider(&cfg.Providers.Anthropic, bs, logger),
		vertex.NewProvider(&cfg.Providers.Google, bs, logger),
	)

	resolver := credentials.NewResolver(cfg.Providers, cfg.Storage, storage, logger)

	var (
		observer ingest.UploadObserver
		recorder service.Recorder
	)
	if m != nil {
		observer = m
		recorder = m
	}
	timeout := cfg.Extract.Timeout
	if timeout <= 0 {
		timeout = service.DefaultTimeout
	}
	opts, raised := ingest.OptionsFromConfig(cfg.Storage).OutlastTimeout(timeout)
	if raised {
		logger.Warn("app.New: presign expiry does not outlast the request timeout, raising it",
			zap.Int64("configured_secs", cfg.Storage.PresignExpiry),
			zap.Duration("timeout", timeout),
			zap.Duration("presign_expiry", opts.PresignExpiry))
	}
	ingester := ingest.NewStrategy(pdftext.NewExtractor(logger), opts, observer, logger)

	svc := service.NewExtractionService(registry, resolver, ingester, service.ExtractionOptions{
		DefaultProvider: domain.ProviderID(cfg.Extract.DefaultProvider),
		Timeout:         timeout,
	}, recorder, logger)

	return &App{Extraction: svc}
}
