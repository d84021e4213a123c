package port

import "context"

// TextExtractor turns a document into plain text for inline-text providers.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, content []byte) (string, error)
}
