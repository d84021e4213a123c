// Package deepseek implements the DeepSeek chat completions provider.
package deepseek

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
	apiBaseURL   = "https://api.deepseek.com"
	defaultModel = "deepseek-chat"
)

// Provider implements port.Provider using the DeepSeek (OpenAI-compatible) chat API.
type Provider struct {
	model    string
	endpoint string
	invoker  *provider.Invoker
}

// NewProvider creates a DeepSeek provider. base_url replaces the public API host.
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
		invoker:  provider.NewInvoker(string(domain.ProviderDeepSeek), cfg.Timeout(), bs, logger),
	}
}

func (p *Provider) Descriptor() port.ProviderDescriptor {
	return port.ProviderDescriptor{
		Name:         domain.ProviderDeepSeek,
		Mode:         domain.IngestionInlineText,
		DefaultModel: p.model,
		Bounds:       genconfig.Bounds{MinTemperature: 0, MaxTemperature: 2, MaxTokensCap: 8192},
		Auth:         domain.CredentialBearer,
	}
}

func (p *Provider) Build(content domain.IngestedContent, system, user string, cfg *genconfig.GenerationConfig) (*port.ProviderRequest, error) {
	if err := cfg.Validate(p.Descriptor().Bounds); err != nil {
		return nil, err
	}
	model := cfg.ModelOr(p.model)
	body, err := provider.BuildChatBody(model, content, system, user, cfg, provider.ChatOptions{})
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
	return provider.NormalizeChatCompletion(string(domain.ProviderDeepSeek), raw)
}
