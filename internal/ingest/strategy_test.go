package ingest_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"freightx/internal/domain"
	"freightx/internal/ingest"
	"freightx/internal/port"
	"freightx/mocks"
)

type byteCounter struct{ total int }

func (b *byteCounter) AddUploadBytes(n int) { b.total += n }

func TestIngest_InlineText(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, "freight.pdf", []byte("%PDF...")).Return("Ocean Freight 1200 USD", nil)

	s := ingest.NewStrategy(extractor, ingest.Options{}, nil, nil)
	content, err := s.Ingest(context.Background(), domain.Document{Filename: "freight.pdf", Content: []byte("%PDF...")},
		domain.IngestionInlineText, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.ContentText, content.Kind)
	assert.Equal(t, "Ocean Freight 1200 USD", content.Text)
	assert.Empty(t, content.URI)
	extractor.AssertExpectations(t)
}

func TestIngest_InlineTextUnparsable(t *testing.T) {
	extractor := new(mocks.MockTextExtractor)
	extractor.On("ExtractText", mock.Anything, mock.Anything, mock.Anything).Return("", domain.ErrUnparsableDocument)

	s := ingest.NewStrategy(extractor, ingest.Options{}, nil, nil)
	_, err := s.Ingest(context.Background(), domain.Document{Filename: "scan.png", Content: []byte{0x89}},
		domain.IngestionInlineText, nil)

	assert.ErrorIs(t, err, domain.ErrUnparsableDocument)
}

func TestIngest_NativeReference(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "waybills" &&
			strings.HasPrefix(in.Key, "uploads/") &&
			strings.HasSuffix(in.Key, "-sea_waybill.pdf") &&
			in.ContentType == "application/pdf" &&
			in.CacheControl == "public, max-age=31536000" &&
			in.Size == 7
	})).Return(&port.UploadOutput{}, nil)

	counter := &byteCounter{}
	s := ingest.NewStrategy(nil, ingest.Options{Reference: domain.ReferenceNative, URIScheme: "gs"}, counter, nil)
	content, err := s.Ingest(context.Background(), domain.Document{Filename: "sea waybill.pdf", Content: []byte("%PDF-1.")},
		domain.IngestionFileReference, &port.StorageTarget{Bucket: "waybills", Prefix: "uploads/", Client: storage})

	require.NoError(t, err)
	assert.Equal(t, domain.ContentReference, content.Kind)
	assert.Equal(t, "gs://waybills/"+content.Key, content.URI)
	assert.Equal(t, "application/pdf", content.MIMEType)
	assert.Nil(t, content.ExpiresAt)
	assert.Equal(t, 7, counter.total)
	storage.AssertExpectations(t)
}

func TestIngest_PresignedReference(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	storage.On("GetPresignedURL", mock.Anything, "waybills", mock.AnythingOfType("string"), int64(3600)).
		Return("https://storage.example.com/waybills/x?sig=abc", nil)

	s := ingest.NewStrategy(nil, ingest.Options{Reference: domain.ReferencePresigned, PresignExpiry: time.Hour}, nil, nil)
	before := time.Now()
	content, err := s.Ingest(context.Background(), domain.Document{Filename: "a.pdf", Content: []byte("x")},
		domain.IngestionFileReference, &port.StorageTarget{Bucket: "waybills", Client: storage})

	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/waybills/x?sig=abc", content.URI)
	require.NotNil(t, content.ExpiresAt)
	assert.WithinDuration(t, before.Add(time.Hour), *content.ExpiresAt, 5*time.Second)
	storage.AssertExpectations(t)
}

func TestOptions_OutlastTimeout(t *testing.T) {
	tests := []struct {
		name       string
		expiry     time.Duration
		timeout    time.Duration
		want       time.Duration
		wantRaised bool
	}{
		{"longer expiry kept", time.Hour, 180 * time.Second, time.Hour, false},
		{"unset expiry defaults to an hour", 0, 180 * time.Second, time.Hour, false},
		{"shorter expiry raised", 60 * time.Second, 180 * time.Second, 360 * time.Second, true},
		{"equal expiry raised", 180 * time.Second, 180 * time.Second, 360 * time.Second, true},
		{"unset default below timeout raised", 0, 2 * time.Hour, 4 * time.Hour, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, raised := ingest.Options{PresignExpiry: tt.expiry}.OutlastTimeout(tt.timeout)
			assert.Equal(t, tt.want, out.PresignExpiry)
			assert.Equal(t, tt.wantRaised, raised)
		})
	}
}

func TestIngest_UploadFailure(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	s := ingest.NewStrategy(nil, ingest.Options{}, nil, nil)
	_, err := s.Ingest(context.Background(), domain.Document{Filename: "a.pdf", Content: []byte("x")},
		domain.IngestionFileReference, &port.StorageTarget{Bucket: "b", Client: storage})

	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Contains(t, err.Error(), "access denied")
	storage.AssertNotCalled(t, "GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_PresignFailure(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).Return(&port.UploadOutput{}, nil)
	storage.On("GetPresignedURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("no signer"))

	s := ingest.NewStrategy(nil, ingest.Options{Reference: domain.ReferencePresigned}, nil, nil)
	_, err := s.Ingest(context.Background(), domain.Document{Filename: "a.pdf", Content: []byte("x")},
		domain.IngestionFileReference, &port.StorageTarget{Bucket: "b", Client: storage})

	assert.ErrorIs(t, err, domain.ErrUpload)
}

func TestIngest_UnknownReferenceModeSkipsUpload(t *testing.T) {
	storage := new(mocks.MockObjectStorage)

	s := ingest.NewStrategy(nil, ingest.Options{Reference: "signed"}, nil, nil)
	_, err := s.Ingest(context.Background(), domain.Document{Filename: "a.pdf", Content: []byte("x")},
		domain.IngestionFileReference, &port.StorageTarget{Bucket: "waybills", Client: storage})

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestIngest_NoStorageTarget(t *testing.T) {
	s := ingest.NewStrategy(nil, ingest.Options{}, nil, nil)

	_, err := s.Ingest(context.Background(), domain.Document{Filename: "a.pdf", Content: []byte("x")},
		domain.IngestionFileReference, nil)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestIngest_KeysUniqueForIdenticalFilenames(t *testing.T) {
	var keys []string
	storage := new(mocks.MockObjectStorage)
	storage.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(port.UploadInput).Key)
		}).
		Return(&port.UploadOutput{}, nil)

	s := ingest.NewStrategy(nil, ingest.Options{}, nil, nil)
	target := &port.StorageTarget{Bucket: "b", Prefix: "uploads", Client: storage}
	for i := 0; i < 50; i++ {
		_, err := s.Ingest(context.Background(), domain.Document{Filename: "freight.pdf", Content: []byte("x")},
			domain.IngestionFileReference, target)
		require.NoError(t, err)
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		assert.True(t, strings.HasPrefix(k, "uploads/"), k)
		_, dup := seen[k]
		assert.False(t, dup, "duplicate key %s", k)
		seen[k] = struct{}{}
	}
	assert.Len(t, seen, 50)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"freight.pdf":             "freight.pdf",
		"sea waybill (1).pdf":     "sea_waybill__1_.pdf",
		"../../etc/passwd":        "passwd",
		`C:\Users\ops\B L #7.pdf`: "B_L__7.pdf",
		"":                        "document",
		"...":                     "document",
	}
	for in, want := range tests {
		assert.Equal(t, want, ingest.SanitizeFilename(in), in)
	}
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ingest.DetectContentType("A.PDF", nil))
	assert.Equal(t, "image/jpeg", ingest.DetectContentType("scan.jpeg", nil))
	assert.Equal(t, "text/plain", ingest.DetectContentType("notes", []byte("plain words")))
}
