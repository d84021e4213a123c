package domain

// ProviderID names a registered generative-AI backend.
type ProviderID string

const (
	ProviderDeepSeek  ProviderID = "deepseek"
	ProviderOpenAI    ProviderID = "openai"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGoogle    ProviderID = "google"
)

// IngestionMode is how a provider consumes document content.
type IngestionMode string

const (
	IngestionInlineText    IngestionMode = "inline-text"
	IngestionFileReference IngestionMode = "file-reference"
)

// ContentKind tags the IngestedContent variant.
type ContentKind string

const (
	ContentText      ContentKind = "text"
	ContentReference ContentKind = "reference"
)

// CredentialKind describes the shape of an APICredential.
type CredentialKind string

const (
	CredentialBearer         CredentialKind = "bearer"
	CredentialServiceAccount CredentialKind = "service_account"
	CredentialNone           CredentialKind = "none"
)

// ReferenceMode selects how a stored document is exposed to a provider.
type ReferenceMode string

const (
	ReferencePresigned ReferenceMode = "presigned"
	ReferenceNative    ReferenceMode = "native"
)

// MIMETypes maps lower-cased file extensions (without dot) to content types accepted for
// file-reference ingestion.
var MIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"txt":  "text/plain",
}
