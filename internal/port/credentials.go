package port

import (
	"context"

	"freightx/internal/domain"
)

// Credentials bundles the API credential and, for file-reference providers, the upload target.
type Credentials struct {
	API     domain.APICredential
	Storage *StorageTarget
}

// CredentialResolver produces the credentials a provider call needs.
type CredentialResolver interface {
	Resolve(ctx context.Context, id domain.ProviderID) (*Credentials, error)
}

// ContentIngester turns an uploaded document into provider-consumable content.
type ContentIngester interface {
	Ingest(ctx context.Context, doc domain.Document, mode domain.IngestionMode, target *StorageTarget) (*domain.IngestedContent, error)
}
