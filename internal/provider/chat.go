package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"freightx/internal/domain"
	"freightx/internal/genconfig"
)

// ChatOptions describes the small differences between OpenAI-compatible chat APIs.
type ChatOptions struct {
	// MaxTokensKey is the wire name for max_tokens ("max_tokens" or "max_completion_tokens").
	MaxTokensKey string
}

// BuildChatBody builds an OpenAI-compatible chat completions payload from inline text.
// Explicit tunables go in first, then Extra is merged on top.
func BuildChatBody(model string, content domain.IngestedContent, system, user string, cfg *genconfig.GenerationConfig, opts ChatOptions) (map[string]any, error) {
	if content.Kind != domain.ContentText {
		return nil, fmt.Errorf("%w: chat completions need inline text, got %s content", domain.ErrInvalidConfig, content.Kind)
	}
	system, user = Instructions(system, user)

	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": InlineUserContent(user, content.Text)},
		},
		"stream": false,
	}
	if cfg != nil {
		if cfg.Temperature != nil {
			body[genconfig.KeyTemperature] = *cfg.Temperature
		}
		if cfg.TopP != nil {
			body[genconfig.KeyTopP] = *cfg.TopP
		}
		if cfg.MaxTokens != nil {
			key := opts.MaxTokensKey
			if key == "" {
				key = genconfig.KeyMaxTokens
			}
			body[key] = *cfg.MaxTokens
		}
		if cfg.PresencePenalty != nil {
			body[genconfig.KeyPresencePenalty] = *cfg.PresencePenalty
		}
		if cfg.FrequencyPenalty != nil {
			body[genconfig.KeyFrequencyPenalty] = *cfg.FrequencyPenalty
		}
		cfg.MergeExtra(body)
	}
	return body, nil
}

// chatResponse models the OpenAI-compatible chat completions response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NormalizeChatCompletion returns choices[0].message.content.
func NormalizeChatCompletion(name string, raw []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: decoding %s response: %v", domain.ErrProvider, name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s response has no choices", domain.ErrEmptyResponse, name)
	}
	content := resp.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", fmt.Errorf("%w: %s returned empty message content (finish_reason: %s)",
			domain.ErrEmptyResponse, name, resp.Choices[0].FinishReason)
	}
	return *content, nil
}

// BearerHeader returns an Authorization header for bearer credentials, or none.
func BearerHeader(cred domain.APICredential) (http.Header, error) {
	switch cred.Kind {
	case domain.CredentialNone:
		return http.Header{}, nil
	case domain.CredentialBearer:
		if cred.Token == "" {
			return nil, fmt.Errorf("%w: empty bearer token", domain.ErrMissingCredential)
		}
		return http.Header{"Authorization": {"Bearer " + cred.Token}}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported credential kind %s", domain.ErrMissingCredential, cred.Kind)
	}
}
