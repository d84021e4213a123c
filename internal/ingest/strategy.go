// Package ingest turns an uploaded document into content a provider can consume: inline text
// or a remotely fetchable reference to an uploaded copy.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/port"
)

const (
	defaultCacheControl  = "public, max-age=31536000"
	defaultPresignExpiry = time.Hour
)

// Options controls how uploaded documents are referenced.
type Options struct {
	Reference     domain.ReferenceMode
	URIScheme     string
	PresignExpiry time.Duration
	CacheControl  string
}

// OptionsFromConfig maps storage config onto Options.
func OptionsFromConfig(cfg config.StorageConfig) Options {
	return Options{
		Reference:     domain.ReferenceMode(cfg.Reference),
		URIScheme:     cfg.URIScheme,
		PresignExpiry: time.Duration(cfg.PresignExpiry) * time.Second,
		CacheControl:  cfg.CacheControl,
	}
}

// OutlastTimeout returns options whose presigned URLs stay valid longer than one request may
// run. An expiry at or below timeout is raised to twice the timeout; raised reports whether
// that happened.
func (o Options) OutlastTimeout(timeout time.Duration) (out Options, raised bool) {
	if o.PresignExpiry <= 0 {
		o.PresignExpiry = defaultPresignExpiry
	}
	if timeout > 0 && o.PresignExpiry <= timeout {
		o.PresignExpiry = 2 * timeout
		return o, true
	}
	return o, false
}

// UploadObserver is notified of every successful upload.
type UploadObserver interface {
	AddUploadBytes(n int)
}

// Strategy implements port.ContentIngester.
type Strategy struct {
	extractor port.TextExtractor
	opts      Options
	observer  UploadObserver
	logger    *zap.Logger
	now       func() time.Time
}

// NewStrategy creates an ingestion strategy. observer may be nil.
func NewStrategy(extractor port.TextExtractor, opts Options, observer UploadObserver, logger *zap.Logger) *Strategy {
	if opts.Reference == "" {
		opts.Reference = domain.ReferenceNative
	}
	if opts.URIScheme == "" {
		opts.URIScheme = "gs"
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = defaultPresignExpiry
	}
	if opts.CacheControl == "" {
		opts.CacheControl = defaultCacheControl
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		extractor: extractor,
		opts:      opts,
		observer:  observer,
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest produces content for the given mode. target is required for file-reference mode.
func (s *Strategy) Ingest(ctx context.Context, doc domain.Document, mode domain.IngestionMode, target *port.StorageTarget) (*domain.IngestedContent, error) {
	switch mode {
	case domain.IngestionInlineText:
		return s.inline(ctx, doc)
	case domain.IngestionFileReference:
		return s.reference(ctx, doc, target)
	default:
		return nil, fmt.Errorf("ingest: unsupported ingestion mode %q", mode)
	}
}

func (s *Strategy) inline(ctx context.Context, doc domain.Document) (*domain.IngestedContent, error) {
	text, err := s.extractor.ExtractText(ctx, doc.Filename, doc.Content)
	if err != nil {
		return nil, err
	}
	return &domain.IngestedContent{
		Kind:     domain.ContentText,
		Text:     text,
		MIMEType: DetectContentType(doc.Filename, doc.Content),
	}, nil
}

func (s *Strategy) reference(ctx context.Context, doc domain.Document, target *port.StorageTarget) (*domain.IngestedContent, error) {
	if target == nil || target.Client == nil {
		return nil, fmt.Errorf("%w: no storage target for file-reference ingestion", domain.ErrStorageUnavailable)
	}
	if s.opts.Reference != domain.ReferenceNative && s.opts.Reference != domain.ReferencePresigned {
		return nil, fmt.Errorf("%w: unknown reference mode %q", domain.ErrStorageUnavailable, s.opts.Reference)
	}

	key := s.objectKey(target.Prefix, doc.Filename)
	contentType := DetectContentType(doc.Filename, doc.Content)

	_, err := target.Client.Upload(ctx, port.UploadInput{
		Bucket:       target.Bucket,
		Key:          key,
		Body:         bytes.NewReader(doc.Content),
		ContentType:  contentType,
		CacheControl: s.opts.CacheControl,
		Size:         int64(len(doc.Content)),
	})
	if err != nil {
		s.logger.Error("ingest.Strategy.reference: upload failed",
			zap.String("bucket", target.Bucket), zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}
	if s.observer != nil {
		s.observer.AddUploadBytes(len(doc.Content))
	}
	s.logger.Debug("ingest.Strategy.reference: uploaded document",
		zap.String("bucket", target.Bucket), zap.String("key", key), zap.Int("bytes", len(doc.Content)))

	content := &domain.IngestedContent{
		Kind:     domain.ContentReference,
		MIMEType: contentType,
		Key:      key,
	}

	switch s.opts.Reference {
	case domain.ReferencePresigned:
		issued := s.now()
		url, err := target.Client.GetPresignedURL(ctx, target.Bucket, key, int64(s.opts.PresignExpiry/time.Second))
		if err != nil {
			return nil, fmt.Errorf("%w: presigning %s: %v", domain.ErrUpload, key, err)
		}
		expires := issued.Add(s.opts.PresignExpiry)
		content.URI = url
		content.ExpiresAt = &expires
	case domain.ReferenceNative:
		content.URI = fmt.Sprintf("%s://%s/%s", s.opts.URIScheme, target.Bucket, key)
	}
	return content, nil
}

// objectKey builds <prefix><unix-millis>-<uuid>-<sanitized filename>. The uuid keeps keys
// unique for identical filenames uploaded within the same millisecond.
func (s *Strategy) objectKey(prefix, filename string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%s%d-%s-%s", prefix, s.now().UnixMilli(), uuid.New().String(), SanitizeFilename(filename))
}

// SanitizeFilename reduces a client-supplied filename to a safe object key segment.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := strings.Trim(sb.String(), "._")
	if out == "" {
		return "document"
	}
	return out
}

// DetectContentType prefers the filename extension and falls back to content sniffing.
func DetectContentType(filename string, content []byte) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ct, ok := domain.MIMETypes[ext]; ok {
		return ct
	}
	ct := http.DetectContentType(content)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
