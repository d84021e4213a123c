// Package vertex implements the Google Vertex AI generateContent provider. Documents are
// passed by reference (fileData.fileUri), never inlined.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/genconfig"
	"freightx/internal/port"
	"freightx/internal/provider"
)

const (
	defaultModel = "gemini-2.0-flash"
	// tokenAudience is the audience of self-signed service account JWTs for Vertex AI.
	tokenAudience = "https://aiplatform.googleapis.com/"
	tokenLifetime = time.Hour
)

// Provider implements port.Provider using the Vertex AI generateContent API.
type Provider struct {
	model    string
	baseURL  string
	endpoint string
	invoker  *provider.Invoker
	now      func() time.Time
}

// NewProvider creates a Vertex AI provider. When base_url is empty the regional endpoint
// of the credential's location is used.
func NewProvider(cfg *config.GoogleConfig, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	p := newProvider(&cfg.ProviderConfig, bs, logger)
	p.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	return p
}

// NewProviderWithEndpoint creates a provider pointing at a custom API endpoint (for testing).
func NewProviderWithEndpoint(cfg *config.GoogleConfig, endpoint string, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	p := newProvider(&cfg.ProviderConfig, bs, logger)
	p.endpoint = endpoint
	return p
}

func newProvider(cfg *config.ProviderConfig, bs provider.BreakerSettings, logger *zap.Logger) *Provider {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		model:   model,
		invoker: provider.NewInvoker(string(domain.ProviderGoogle), cfg.Timeout(), bs, logger),
		now:     time.Now,
	}
}

func (p *Provider) Descriptor() port.ProviderDescriptor {
	return port.ProviderDescriptor{
		Name:         domain.ProviderGoogle,
		Mode:         domain.IngestionFileReference,
		DefaultModel: p.model,
		Bounds: genconfig.Bounds{
			MinTemperature: 0,
			MaxTemperature: 2,
			MaxTokensCap:   65536,
			Aliases: map[string]string{
				"maxOutputTokens":  genconfig.KeyMaxTokens,
				"topP":             genconfig.KeyTopP,
				"presencePenalty":  genconfig.KeyPresencePenalty,
				"frequencyPenalty": genconfig.KeyFrequencyPenalty,
			},
		},
		Auth: domain.CredentialServiceAccount,
	}
}

func (p *Provider) Build(content domain.IngestedContent, system, user string, cfg *genconfig.GenerationConfig) (*port.ProviderRequest, error) {
	if err := cfg.Validate(p.Descriptor().Bounds); err != nil {
		return nil, err
	}
	if content.Kind != domain.ContentReference || content.URI == "" {
		return nil, fmt.Errorf("%w: vertex needs a document reference, got %s content", domain.ErrInvalidConfig, content.Kind)
	}
	system, user = provider.Instructions(system, user)
	model := cfg.ModelOr(p.model)

	mimeType := content.MIMEType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	generationConfig := map[string]any{}
	if cfg != nil {
		if cfg.Temperature != nil {
			generationConfig["temperature"] = *cfg.Temperature
		}
		if cfg.TopP != nil {
			generationConfig["topP"] = *cfg.TopP
		}
		if cfg.MaxTokens != nil {
			generationConfig["maxOutputTokens"] = *cfg.MaxTokens
		}
		if cfg.PresencePenalty != nil {
			generationConfig["presencePenalty"] = *cfg.PresencePenalty
		}
		if cfg.FrequencyPenalty != nil {
			generationConfig["frequencyPenalty"] = *cfg.FrequencyPenalty
		}
		cfg.MergeExtra(generationConfig)
	}

	body := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"fileData": map[string]string{"mimeType": mimeType, "fileUri": content.URI}},
					{"text": system + "\n\n" + user},
				},
			},
		},
	}
	if len(generationConfig) > 0 {
		body["generationConfig"] = generationConfig
	}
	return &port.ProviderRequest{Model: model, Body: body}, nil
}

func (p *Provider) Invoke(ctx context.Context, cred domain.APICredential, req *port.ProviderRequest) ([]byte, error) {
	header := http.Header{}
	switch cred.Kind {
	case domain.CredentialServiceAccount:
		token, err := p.signToken(cred)
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token)
	case domain.CredentialBearer:
		// A pre-minted OAuth access token.
		header.Set("Authorization", "Bearer "+cred.Token)
	default:
		return nil, fmt.Errorf("%w: vertex needs a service account, got %s", domain.ErrMissingCredential, cred.Kind)
	}
	return p.invoker.PostJSON(ctx, p.endpointFor(cred, req.Model), header, req.Body)
}

func (p *Provider) endpointFor(cred domain.APICredential, model string) string {
	if p.endpoint != "" {
		return p.endpoint
	}
	location := cred.Location
	if location == "" {
		location = "us-central1"
	}
	base := p.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		base, cred.ProjectID, location, model)
}

// signToken builds a self-signed RS256 JWT, which Google APIs accept in place of an OAuth
// access token.
func (p *Provider) signToken(cred domain.APICredential) (string, error) {
	if cred.PrivateKey == nil || cred.ClientEmail == "" {
		return "", fmt.Errorf("%w: incomplete google service account", domain.ErrMissingCredential)
	}
	now := p.now()
	claims := jwt.RegisteredClaims{
		Issuer:    cred.ClientEmail,
		Subject:   cred.ClientEmail,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if cred.PrivateKeyID != "" {
		token.Header["kid"] = cred.PrivateKeyID
	}
	signed, err := token.SignedString(cred.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("%w: signing google token: %v", domain.ErrMissingCredential, err)
	}
	return signed, nil
}

// apiResponse models the generateContent response.
type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Normalize concatenates the text parts of the first candidate.
func (p *Provider) Normalize(raw []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding vertex response: %v", domain.ErrProvider, err)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: vertex blocked the prompt (%s)", domain.ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("%w: vertex response has no candidates", domain.ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: vertex returned no text (finishReason: %s)", domain.ErrEmptyResponse, resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
