package port

import (
	"context"
	"errors"
	"io"
)

// UploadInput encapsulates the parameters needed to upload an object.
type UploadInput struct {
	Bucket       string
	Key          string
	Body         io.Reader
	ContentType  string
	CacheControl string
	Size         int64
}

// UploadOutput contains the result of a successful upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage abstracts cloud object storage operations.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}

// StorageHandle is the outcome of initializing the object storage client at start-up.
// Either Client is ready or Err explains why it is not.
type StorageHandle struct {
	Client ObjectStorage
	Err    error
}

var errStorageNotInitialized = errors.New("storage client was never initialized")

// Ready returns the client or the initialization error.
func (h StorageHandle) Ready() (ObjectStorage, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	if h.Client == nil {
		return nil, errStorageNotInitialized
	}
	return h.Client, nil
}

// StorageTarget is a resolved upload destination for file-reference ingestion.
type StorageTarget struct {
	Bucket string
	Prefix string
	Client ObjectStorage
}
