// Package genconfig parses, normalizes and validates the user-supplied generation
// configuration that is merged into every provider payload.
package genconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"freightx/internal/domain"
)

// Recognized tunable keys.
const (
	KeyModel            = "model"
	KeyTemperature      = "temperature"
	KeyTopP             = "top_p"
	KeyMaxTokens        = "max_tokens"
	KeyPresencePenalty  = "presence_penalty"
	KeyFrequencyPenalty = "frequency_penalty"

	// commentsKey is the annotation block the config editor allows; it is never sent upstream.
	commentsKey = "__comments"
)

// reservedKeys are payload fields owned by the request builders. Extra may not override them.
var reservedKeys = map[string]struct{}{
	"messages":          {},
	"contents":          {},
	"system":            {},
	"systemInstruction": {},
	"stream":            {},
}

// GenerationConfig is the closed, typed form of the tunables mapping. Nil pointers are absent
// values and are never serialized.
type GenerationConfig struct {
	Model            *string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64

	// Extra carries every other non-null key verbatim, merged on top of the typed tunables.
	Extra map[string]json.RawMessage
}

// Normalize returns a copy of raw without null-valued entries or the __comments block.
// Non-null values pass through byte-for-byte.
func Normalize(raw map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if k == commentsKey || isNull(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func isNull(v json.RawMessage) bool {
	trimmed := bytes.TrimSpace(v)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Parse decodes a JSON object into a normalized GenerationConfig. Empty input yields an
// empty config.
func Parse(data []byte) (*GenerationConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &GenerationConfig{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: config must be a JSON object: %v", domain.ErrInvalidConfig, err)
	}
	if raw == nil {
		// literal "null"
		return &GenerationConfig{}, nil
	}
	return FromMap(raw)
}

// FromMap builds a GenerationConfig from an already-decoded mapping.
func FromMap(raw map[string]json.RawMessage) (*GenerationConfig, error) {
	cfg := &GenerationConfig{}
	for k, v := range Normalize(raw) {
		var err error
		switch k {
		case KeyModel:
			cfg.Model, err = decode[string](k, v)
		case KeyTemperature:
			cfg.Temperature, err = decode[float64](k, v)
		case KeyTopP:
			cfg.TopP, err = decode[float64](k, v)
		case KeyMaxTokens:
			cfg.MaxTokens, err = decode[int](k, v)
		case KeyPresencePenalty:
			cfg.PresencePenalty, err = decode[float64](k, v)
		case KeyFrequencyPenalty:
			cfg.FrequencyPenalty, err = decode[float64](k, v)
		default:
			if cfg.Extra == nil {
				cfg.Extra = make(map[string]json.RawMessage)
			}
			cfg.Extra[k] = v
		}
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func decode[T any](key string, v json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("%w: %s has the wrong type: %s", domain.ErrInvalidConfig, key, string(v))
	}
	return &out, nil
}

// Map returns the normalized mapping view: typed tunables plus Extra.
func (c *GenerationConfig) Map() map[string]any {
	out := make(map[string]any)
	if c == nil {
		return out
	}
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.Model != nil {
		out[KeyModel] = *c.Model
	}
	if c.Temperature != nil {
		out[KeyTemperature] = *c.Temperature
	}
	if c.TopP != nil {
		out[KeyTopP] = *c.TopP
	}
	if c.MaxTokens != nil {
		out[KeyMaxTokens] = *c.MaxTokens
	}
	if c.PresencePenalty != nil {
		out[KeyPresencePenalty] = *c.PresencePenalty
	}
	if c.FrequencyPenalty != nil {
		out[KeyFrequencyPenalty] = *c.FrequencyPenalty
	}
	return out
}

// ModelOr returns the model override or def when none was supplied.
func (c *GenerationConfig) ModelOr(def string) string {
	if c == nil || c.Model == nil || *c.Model == "" {
		return def
	}
	return *c.Model
}

// MergeExtra writes every Extra entry into dst, overriding what the builder set.
func (c *GenerationConfig) MergeExtra(dst map[string]any) {
	if c == nil {
		return
	}
	for k, v := range c.Extra {
		dst[k] = v
	}
}
