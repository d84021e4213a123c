package domain

import "errors"

// Extraction failure taxonomy. Components wrap these with fmt.Errorf("%w: ...") so the
// original message survives while callers classify with errors.Is.
var (
	ErrMissingCredential  = errors.New("missing credential")
	ErrUnparsableDocument = errors.New("unparsable document")
	ErrStorageUnavailable = errors.New("object storage unavailable")
	ErrUpload             = errors.New("document upload failed")
	ErrInvalidConfig      = errors.New("invalid generation config")
	ErrAuthentication     = errors.New("provider rejected credentials")
	ErrRateLimited        = errors.New("provider rate limited")
	ErrTransport          = errors.New("provider transport failure")
	ErrProvider           = errors.New("provider error")
	ErrEmptyResponse      = errors.New("provider returned no text")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrMissingDocument    = errors.New("document is required")
	ErrDocumentTooLarge   = errors.New("document exceeds maximum allowed size")
)
