// Package pdftext turns uploaded documents into plain text for inline-text providers.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"freightx/internal/domain"
)

var pdfMagic = []byte("%PDF")

// Extractor implements port.TextExtractor. PDFs are detected by their magic bytes, not by
// the filename; anything else must be valid UTF-8 text.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a text extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// ExtractText returns the document's text content or a domain.ErrUnparsableDocument.
func (e *Extractor) ExtractText(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrUnparsableDocument, filename)
	}

	var (
		text string
		err  error
	)
	if bytes.HasPrefix(content, pdfMagic) {
		text, err = e.extractPDF(ctx, content)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrUnparsableDocument, filename, err)
		}
	} else {
		if !utf8.Valid(content) {
			return "", fmt.Errorf("%w: %s is neither a PDF nor UTF-8 text", domain.ErrUnparsableDocument, filename)
		}
		text = string(content)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found in %s", domain.ErrUnparsableDocument, filename)
	}
	return text, nil
}

// extractPDF reads the document page by page. The pdf library panics on some malformed
// inputs, so panics are turned into errors here.
func (e *Extractor) extractPDF(ctx context.Context, content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	pages := reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			e.logger.Warn("pdftext.Extractor.extractPDF: skipping unreadable page",
				zap.Int("page", i), zap.Error(err))
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(pageText)
	}

	e.logger.Debug("pdftext.Extractor.extractPDF: extracted text",
		zap.Int("pages", pages), zap.Int("chars", sb.Len()))
	return sb.String(), nil
}
