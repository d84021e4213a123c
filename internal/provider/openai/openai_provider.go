// Package openai implements the OpenAI chat completions provider.
package openai

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/port"
	"freightx/internal/provider"
)

const (
	apiBaseURL   = "https://api.openai.com/v1"
	defaultModel = "gpt-4o"
)

// Provider implements port.Provider using the OpenAI Chat Completions API.
type Provider struct {
	model    string
	endpoint string
	invoker  *provider.Invoker
}

// NewProvider creates an OpenAI provider. base_url replaces the public API root, which also
// makes any OpenAI-compatible gateway usable.
func NewProvider(cfg *config.ProviderConfig, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = apiBaseURL
	}
	return newProvider(cfg, strings.TrimRight(base, "/")+"/chat/completions", bs, logger)
}

// NewProviderWithEndpoint creates a provider pointing at a custom API endpoint (for testing).
func NewProviderWithEndpoint(cfg *config.ProviderConfig, endpoint string, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	return newProvider(cfg, endpoint, bs, logger)
}

func newProvider(cfg *config.ProviderConfig, endpoint string, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		model:    model,
		endpoint: endpoint,
		invoker:  provider.NewInvoker(string(domain.ProviderOpenAI), cfg.Timeout(), bs, logger),
	}
}

func (p *Provider) Descriptor() port.ProviderDescriptor {
	bounds := genconfig.DefaultBounds()
	bounds.Aliases = map[string]string{"max_completion_tokens": genconfig.KeyMaxTokens}
	return port.ProviderDescriptor{
		Name:         domain.ProviderOpenAI,
		Mode:         domain.IngestionInlineText,
		DefaultModel: p.model,
		Bounds:       bounds,
		Auth:         domain.CredentialBearer,
	}
}

// Build uses max_completion_tokens, the only output limit newer OpenAI models accept.
func (p *Provider) Build(content domain.IngestedContent, system, user string, cfg *genconfig.GenerationConfig) (*port.ProviderRequest, error) {
	if err := cfg.Validate(p.Descriptor().Bounds); err != nil {
		return nil, err
	}
	model := cfg.ModelOr(p.model)
	body, err := provider.BuildChatBody(model, content, system, user, cfg,
		provider.ChatOptions{MaxTokensKey: "max_completion_tokens"})
	if err != nil {
		return nil, err
	}
	return &port.ProviderRequest{Model: model, Body: body}, nil
}

func (p *Provider) Invoke(ctx context.Context, cred domain.APICredential, req *port.ProviderRequest) ([]byte, error) {
	header, err := provider.BearerHeader(cred)
	if err != nil {
		return nil, err
	}
	return p.invoker.PostJSON(ctx, p.endpoint, header, req.Body)
}

func (p *Provider) Normalize(raw []byte) (string, error) {
	return provider.NormalizeChatCompletion(string(domain.ProviderOpenAI), raw)
}
