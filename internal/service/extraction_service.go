package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/port"
	"freightx/internal/provider"
)

// ExtractionInput is the DTO for one extraction request.
type ExtractionInput struct {
	Document          domain.Document
	SystemInstruction string
	UserInstruction   string
	Provider          domain.ProviderID
	Config            *genconfig.GenerationConfig
}

// ProviderStatus describes a registered provider for listing endpoints.
type ProviderStatus struct {
	Name          domain.ProviderID    `json:"name"`
	IngestionMode domain.IngestionMode `json:"ingestion_mode"`
	DefaultModel  string               `json:"default_model"`
	Configured    bool                 `json:"configured"`
}

// Recorder receives extraction metrics.
type Recorder interface {
	ObserveExtraction(provider, outcome string, d time.Duration)
	IncStageFailure(stage string)
}

// unknownProvider labels metrics for names the registry does not know, so caller input
// never becomes a series of its own.
const unknownProvider = "unknown"

// DefaultTimeout bounds one extraction when ExtractionOptions.Timeout is unset.
const DefaultTimeout = 180 * time.Second

type noopRecorder struct{}

func (noopRecorder) ObserveExtraction(string, string, time.Duration) {}
func (noopRecorder) IncStageFailure(string)                          {}

// ExtractionService defines the document extraction contract.
type ExtractionService interface {
	Extract(ctx context.Context, input ExtractionInput) (*domain.ExtractionResult, error)
	Providers(ctx context.Context) []ProviderStatus
	Ready(ctx context.Context) bool
}

// ExtractionOptions holds the orchestrator tunables.
type ExtractionOptions struct {
	DefaultProvider domain.ProviderID
	Timeout         time.Duration
}

type extractionService struct {
	registry *provider.Registry
	resolver port.CredentialResolver
	ingester port.ContentIngester
	opts     ExtractionOptions
	recorder Recorder
	logger   *zap.Logger
}

// NewExtractionService creates a new ExtractionService implementation. recorder may be nil.
func NewExtractionService(
	registry *provider.Registry,
	resolver port.CredentialResolver,
	ingester port.ContentIngester,
	opts ExtractionOptions,
	recorder Recorder,
	logger *zap.Logger,
) ExtractionService {
	if opts.DefaultProvider == "" {
		opts.DefaultProvider = domain.ProviderDeepSeek
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &extractionService{
		registry: registry,
		resolver: resolver,
		ingester: ingester,
		opts:     opts,
		recorder: recorder,
		logger:   logger,
	}
}

// extraction is the request-scoped state of one run.
type extraction struct {
	input   ExtractionInput
	stage   Stage
	creds   *port.Credentials
	content *domain.IngestedContent
	request *port.ProviderRequest
	raw     []byte
}

func (s *extractionService) Extract(ctx context.Context, input ExtractionInput) (*domain.ExtractionResult, error) {
	if input.Provider == "" {
		input.Provider = s.opts.DefaultProvider
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	x := &extraction{input: input, stage: StageIdle}
	result, err := s.run(ctx, x)
	elapsed := time.Since(start)
	label := s.metricLabel(input.Provider)

	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			s.recorder.IncStageFailure(string(se.Stage))
		}
		s.recorder.ObserveExtraction(label, "failure", elapsed)
		s.logger.Warn("service.Extraction.Extract: extraction failed",
			zap.String("provider", string(input.Provider)),
			zap.String("filename", input.Document.Filename),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	result.Duration = elapsed
	s.recorder.ObserveExtraction(label, "success", elapsed)
	s.logger.Info("service.Extraction.Extract: extraction succeeded",
		zap.String("provider", string(input.Provider)),
		zap.String("model", result.Model),
		zap.String("filename", input.Document.Filename),
		zap.Int("result_chars", len(result.Text)),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// run drives the extraction through its stages. Each stage must fully succeed before the
// next starts; the first failure ends the run.
func (s *extractionService) run(ctx context.Context, x *extraction) (*domain.ExtractionResult, error) {
	id := x.input.Provider

	if len(x.input.Document.Content) == 0 {
		return nil, s.fail(ctx, x, domain.ErrMissingDocument)
	}

	p, err := s.registry.Get(id)
	if err != nil {
		return nil, s.fail(ctx, x, err)
	}
	desc := p.Descriptor()

	x.creds, err = s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, x, err)
	}
	s.advance(x, StageCredentialsResolved)

	// Bad tunables must never cost an upload or a provider call.
	if err := x.input.Config.Validate(desc.Bounds); err != nil {
		return nil, s.fail(ctx, x, err)
	}

	var target *port.StorageTarget
	if desc.Mode == domain.IngestionFileReference {
		target = x.creds.Storage
	}
	x.content, err = s.ingester.Ingest(ctx, x.input.Document, desc.Mode, target)
	if err != nil {
		return nil, s.fail(ctx, x, err)
	}
	s.advance(x, StageContentIngested)

	x.request, err = p.Build(*x.content, x.input.SystemInstruction, x.input.UserInstruction, x.input.Config)
	if err != nil {
		return nil, s.fail(ctx, x, err)
	}
	s.advance(x, StageRequestBuilt)

	x.raw, err = p.Invoke(ctx, x.creds.API, x.request)
	if err != nil {
		return nil, s.fail(ctx, x, err)
	}
	s.advance(x, StageInvoked)

	text, err := p.Normalize(x.raw)
	if err != nil {
		return nil, s.fail(ctx, x, err)
	}
	s.advance(x, StageDone)

	return &domain.ExtractionResult{
		Text:     text,
		Provider: id,
		Model:    x.request.Model,
	}, nil
}

// metricLabel returns the registered name for id, or unknownProvider.
func (s *extractionService) metricLabel(id domain.ProviderID) string {
	p, err := s.registry.Get(id)
	if err != nil {
		return unknownProvider
	}
	return string(p.Descriptor().Name)
}

func (s *extractionService) advance(x *extraction, next Stage) {
	s.logger.Debug("service.Extraction.run: stage transition",
		zap.String("provider", string(x.input.Provider)),
		zap.String("from", string(x.stage)),
		zap.String("to", string(next)))
	x.stage = next
}

// fail records the failure and wraps err with the stage it happened in. A context that has
// expired or been canceled is attached so callers can tell timeouts apart.
func (s *extractionService) fail(ctx context.Context, x *extraction, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	from := x.stage
	x.stage = StageFailed
	return &StageError{Stage: from, Provider: x.input.Provider, Err: err}
}

func (s *extractionService) Providers(ctx context.Context) []ProviderStatus {
	descs := s.registry.Descriptors()
	out := make([]ProviderStatus, 0, len(descs))
	for _, d := range descs {
		_, err := s.resolver.Resolve(ctx, d.Name)
		out = append(out, ProviderStatus{
			Name:          d.Name,
			IngestionMode: d.Mode,
			DefaultModel:  d.DefaultModel,
			Configured:    err == nil,
		})
	}
	return out
}

// Ready reports whether at least one provider has usable credentials.
func (s *extractionService) Ready(ctx context.Context) bool {
	for _, st := range s.Providers(ctx) {
		if st.Configured {
			return true
		}
	}
	return false
}
