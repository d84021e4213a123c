package genconfig

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"freightx/internal/domain"
)

// Bounds are the documented numeric limits of one provider.
type Bounds struct {
	MinTemperature float64
	MaxTemperature float64

	// MaxTokensCap is the largest accepted max_tokens; 0 means uncapped.
	MaxTokensCap int

	// PenaltiesUnsupported rejects presence/frequency penalties outright.
	PenaltiesUnsupported bool

	// Aliases maps provider-native Extra keys onto the tunable they set, e.g.
	// "maxOutputTokens" onto KeyMaxTokens. Aliased values get the same checks.
	Aliases map[string]string
}

// DefaultBounds matches the OpenAI-compatible chat completions contract.
func DefaultBounds() Bounds {
	return Bounds{MinTemperature: 0, MaxTemperature: 2}
}

// Validate checks every tunable against b and rejects Extra keys the builders own.
func (c *GenerationConfig) Validate(b Bounds) error {
	if c == nil {
		return nil
	}
	if c.Temperature != nil {
		if err := b.check(KeyTemperature, KeyTemperature, *c.Temperature); err != nil {
			return err
		}
	}
	if c.TopP != nil {
		if err := b.check(KeyTopP, KeyTopP, *c.TopP); err != nil {
			return err
		}
	}
	if c.MaxTokens != nil {
		if err := b.check(KeyMaxTokens, KeyMaxTokens, float64(*c.MaxTokens)); err != nil {
			return err
		}
	}
	if c.PresencePenalty != nil {
		if err := b.check(KeyPresencePenalty, KeyPresencePenalty, *c.PresencePenalty); err != nil {
			return err
		}
	}
	if c.FrequencyPenalty != nil {
		if err := b.check(KeyFrequencyPenalty, KeyFrequencyPenalty, *c.FrequencyPenalty); err != nil {
			return err
		}
	}
	if err := c.checkAliases(b); err != nil {
		return err
	}
	if reserved := c.reservedExtra(); len(reserved) > 0 {
		return fmt.Errorf("%w: config may not set %v", domain.ErrInvalidConfig, reserved)
	}
	return nil
}

// check validates v as the tunable key; name is what the caller wrote and is used in errors.
func (b Bounds) check(key, name string, v float64) error {
	switch key {
	case KeyTemperature:
		if v < b.MinTemperature || v > b.MaxTemperature {
			return fmt.Errorf("%w: %s %v outside [%v, %v]", domain.ErrInvalidConfig, name, v, b.MinTemperature, b.MaxTemperature)
		}
	case KeyTopP:
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %v outside [0, 1]", domain.ErrInvalidConfig, name, v)
		}
	case KeyMaxTokens:
		if v <= 0 || v != math.Trunc(v) {
			return fmt.Errorf("%w: %s must be a positive integer, got %v", domain.ErrInvalidConfig, name, v)
		}
		if b.MaxTokensCap > 0 && v > float64(b.MaxTokensCap) {
			return fmt.Errorf("%w: %s %d exceeds limit %d", domain.ErrInvalidConfig, name, int64(v), b.MaxTokensCap)
		}
	case KeyPresencePenalty, KeyFrequencyPenalty:
		if b.PenaltiesUnsupported {
			return fmt.Errorf("%w: %s is not supported by this provider", domain.ErrInvalidConfig, name)
		}
		if v < -2 || v > 2 {
			return fmt.Errorf("%w: %s %v outside [-2, 2]", domain.ErrInvalidConfig, name, v)
		}
	}
	return nil
}

// checkAliases applies the tunable checks to Extra keys that are provider-native spellings.
func (c *GenerationConfig) checkAliases(b Bounds) error {
	names := make([]string, 0, len(b.Aliases))
	for name := range b.Aliases {
		if _, ok := c.Extra[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		var v float64
		if err := json.Unmarshal(c.Extra[name], &v); err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidConfig, name)
		}
		if err := b.check(b.Aliases[name], name, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *GenerationConfig) reservedExtra() []string {
	var keys []string
	for k := range c.Extra {
		if _, ok := reservedKeys[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
