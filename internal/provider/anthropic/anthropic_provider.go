// Package anthropic implements the Anthropic Messages API provider.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/port"
	"freightx/internal/provider"
)

const (
	apiBaseURL       = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 8192
)

// Provider implements port.Provider using the Anthropic Messages API.
type Provider struct {
	model    string
	endpoint string
	invoker  *provider.Invoker
}

// NewProvider creates an Anthropic provider.
func NewProvider(cfg *config.ProviderConfig, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = apiBaseURL
	}
	return newProvider(cfg, strings.TrimRight(base, "/")+"/messages", bs, logger)
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
		invoker:  provider.NewInvoker(string(domain.ProviderAnthropic), cfg.Timeout(), bs, logger),
	}
}

func (p *Provider) Descriptor() port.ProviderDescriptor {
	return port.ProviderDescriptor{
		Name:         domain.ProviderAnthropic,
		Mode:         domain.IngestionInlineText,
		DefaultModel: p.model,
		Bounds: genconfig.Bounds{
			MinTemperature:       0,
			MaxTemperature:       1,
			MaxTokensCap:         64000,
			PenaltiesUnsupported: true,
		},
		Auth: domain.CredentialBearer,
	}
}

// Build puts the system instruction at the top level; the Messages API has no system role.
func (p *Provider) Build(content domain.IngestedContent, system, user string, cfg *genconfig.GenerationConfig) (*port.ProviderRequest, error) {
	if err := cfg.Validate(p.Descriptor().Bounds); err != nil {
		return nil, err
	}
	if content.Kind != domain.ContentText {
		return nil, fmt.Errorf("%w: anthropic needs inline text, got %s content", domain.ErrInvalidConfig, content.Kind)
	}
	system, user = provider.Instructions(system, user)
	model := cfg.ModelOr(p.model)

	body := map[string]any{
		"model":      model,
		"max_tokens": defaultMaxTokens,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": provider.InlineUserContent(user, content.Text)},
		},
	}
	if cfg != nil {
		if cfg.MaxTokens != nil {
			body[genconfig.KeyMaxTokens] = *cfg.MaxTokens
		}
		if cfg.Temperature != nil {
			body[genconfig.KeyTemperature] = *cfg.Temperature
		}
		if cfg.TopP != nil {
			body[genconfig.KeyTopP] = *cfg.TopP
		}
		cfg.MergeExtra(body)
	}
	return &port.ProviderRequest{Model: model, Body: body}, nil
}

func (p *Provider) Invoke(ctx context.Context, cred domain.APICredential, req *port.ProviderRequest) ([]byte, error) {
	header := http.Header{}
	header.Set("anthropic-version", apiVersion)
	switch cred.Kind {
	case domain.CredentialNone:
	case domain.CredentialBearer:
		if cred.Token == "" {
			return nil, fmt.Errorf("%w: empty anthropic api key", domain.ErrMissingCredential)
		}
		header.Set("x-api-key", cred.Token)
	default:
		return nil, fmt.Errorf("%w: unsupported credential kind %s", domain.ErrMissingCredential, cred.Kind)
	}
	return p.invoker.PostJSON(ctx, p.endpoint, header, req.Body)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Normalize concatenates every text block of the response.
func (p *Provider) Normalize(raw []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding anthropic response: %v", domain.ErrProvider, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: anthropic returned no text blocks (stop_reason: %s)", domain.ErrEmptyResponse, resp.StopReason)
	}
	return sb.String(), nil
}
