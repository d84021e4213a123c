package port

import (
	"context"

	"freightx/internal/domain"
	"freightx/internal/genconfig"
)

// ProviderDescriptor is the static description of a registered provider.
type ProviderDescriptor struct {
	Name         domain.ProviderID
	Mode         domain.IngestionMode
	DefaultModel string
	Bounds       genconfig.Bounds
	Auth         domain.CredentialKind
}

// ProviderRequest is a fully built, provider-specific request payload.
type ProviderRequest struct {
	Model string
	Body  map[string]any
}

// Provider builds, sends and normalizes requests for one generative-AI backend.
type Provider interface {
	Descriptor() ProviderDescriptor
	Build(content domain.IngestedContent, system, user string, cfg *genconfig.GenerationConfig) (*ProviderRequest, error)
	Invoke(ctx context.Context, cred domain.APICredential, req *ProviderRequest) ([]byte, error)
	Normalize(raw []byte) (string, error)
}
