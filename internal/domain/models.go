package domain

import (
	"crypto/rsa"
	"time"
)

// Document is an uploaded file as received at the boundary.
type Document struct {
	Filename string
	Content  []byte
}

// IngestedContent is the provider-consumable form of a document. Exactly one of Text or URI
// is set, depending on Kind.
type IngestedContent struct {
	Kind     ContentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	URI      string      `json:"uri,omitempty"`
	MIMEType string      `json:"mime_type,omitempty"`
	Key      string      `json:"key,omitempty"`

	// ExpiresAt is set when URI is a signed URL. It is never cached across requests.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// APICredential is the secret material needed to call a generative API.
type APICredential struct {
	Kind  CredentialKind
	Token string

	// Service account identity, set when Kind is CredentialServiceAccount.
	ClientEmail  string
	PrivateKeyID string
	PrivateKey   *rsa.PrivateKey
	ProjectID    string
	Location     string
}

// ExtractionResult is the normalized provider answer.
type ExtractionResult struct {
	Text     string        `json:"result"`
	Provider ProviderID    `json:"provider"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"-"`
}
