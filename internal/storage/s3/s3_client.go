package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"freightx/internal/config"
	"freightx/internal/domain"
	"freightx/internal/port"
)

var errNoBucket = errors.New("storage bucket is not configured")

// checkReference rejects reference settings that would hand providers URIs they cannot fetch.
// Native gs:// URIs only resolve when the bucket lives behind the GCS interoperability
// endpoint, so plain AWS S3 must use presigned URLs.
func checkReference(cfg *config.StorageConfig) error {
	switch domain.ReferenceMode(cfg.Reference) {
	case domain.ReferencePresigned:
		return nil
	case "", domain.ReferenceNative:
		scheme := cfg.URIScheme
		if scheme == "" {
			scheme = "gs"
		}
		if scheme == "gs" && cfg.Endpoint == "" {
			return errors.New("native gs:// references need a GCS interoperability endpoint; set storage.endpoint or use presigned references")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage reference mode %q", cfg.Reference)
	}
}

type s3Client struct {
	presigner *s3.PresignClient
	uploader  *manager.Uploader
}

// NewS3Client creates a new S3-compatible ObjectStorage implementation. A custom endpoint
// (GCS interoperability, R2, MinIO) switches to path-style addressing.
func NewS3Client(cfg *config.StorageConfig) (port.ObjectStorage, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &s3Client{
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
	}, nil
}

// Init builds the storage client once at start-up. Failures are captured in the handle
// instead of aborting the process; only file-reference extractions need storage.
func Init(cfg *config.StorageConfig, logger *zap.Logger) port.StorageHandle {
	if cfg.Bucket == "" {
		logger.Info("s3.Init: no bucket configured, file-reference providers are disabled")
		return port.StorageHandle{Err: errNoBucket}
	}
	if err := checkReference(cfg); err != nil {
		logger.Warn("s3.Init: storage reference misconfigured, file-reference providers are disabled", zap.Error(err))
		return port.StorageHandle{Err: err}
	}
	client, err := NewS3Client(cfg)
	if err != nil {
		logger.Warn("s3.Init: storage client unavailable", zap.Error(err))
		return port.StorageHandle{Err: err}
	}
	logger.Info("s3.Init: storage client ready",
		zap.String("bucket", cfg.Bucket),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("reference", cfg.Reference))
	return port.StorageHandle{Client: client}
}

func (c *s3Client) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(input.Bucket),
		Key:         aws.String(input.Key),
		Body:        input.Body,
		ContentType: aws.String(input.ContentType),
	}
	if input.CacheControl != "" {
		putInput.CacheControl = aws.String(input.CacheControl)
	}
	if input.Size > 0 {
		putInput.ContentLength = aws.Int64(input.Size)
	}

	result, err := c.uploader.Upload(ctx, putInput)
	if err != nil {
		return nil, fmt.Errorf("s3 upload: %w", err)
	}

	etag := ""
	if result.ETag != nil {
		etag = *result.ETag
	}

	return &port.UploadOutput{
		Location: result.Location,
		ETag:     etag,
	}, nil
}

func (c *s3Client) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(time.Duration(expirySeconds)*time.Second))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}
	return result.URL, nil
}
