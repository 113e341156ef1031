package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// S3Config holds the settings for an S3 bundle origin.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// UsePathStyle is required for most S3-compatible stores (MinIO etc).
	UsePathStyle bool
}

// GetObjectAPI is the slice of the S3 client the loader needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader fetches resources from an S3 bucket. The resource key is
// appended to the configured prefix to form the object key.
type S3Loader struct {
	client GetObjectAPI
	bucket string
	prefix string
}

// NewS3Loader creates a loader over an existing client.
func NewS3Loader(client GetObjectAPI, bucket, prefix string) *S3Loader {
	return &S3Loader{
		client: client,
		bucket: bucket,
		prefix: strings.TrimRight(prefix, "/"),
	}
}

// ConnectS3 builds an S3 client from the given config and wraps it in a
// loader. Static credentials are optional; without them the default AWS
// credential chain applies.
func ConnectS3(ctx context.Context, cfg S3Config) (*S3Loader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("connected to S3 origin",
		"bucket", cfg.Bucket,
		"prefix", cfg.Prefix,
		"region", cfg.Region)
	return NewS3Loader(client, cfg.Bucket, cfg.Prefix), nil
}

// Load fetches the object backing the resource key.
func (l *S3Loader) Load(ctx context.Context, key prefetch.ResourceKey) ([]byte, error) {
	objectKey := string(key)
	if l.prefix != "" {
		objectKey = l.prefix + "/" + strings.TrimLeft(objectKey, "/")
	}

	start := time.Now()
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, classifyS3Error(key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w: %w", l.bucket, objectKey, prefetch.ErrTransport, err)
	}

	logger.Debug("s3 fetch completed",
		"resource", string(key),
		"bytes", len(data),
		"elapsed", time.Since(start))
	return data, nil
}

// classifyS3Error wraps an S3 error with the matching prefetch sentinel.
// Context errors pass through untouched so timeouts classify as timeouts.
func classifyS3Error(key prefetch.ResourceKey, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return fmt.Errorf("fetch %s: %w", key, prefetch.ErrResourceNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); code {
		case "NoSuchKey", "NotFound", "404":
			return fmt.Errorf("fetch %s: %w", key, prefetch.ErrResourceNotFound)
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"InternalError", "ServiceUnavailable":
			return fmt.Errorf("fetch %s: %s: %w", key, code, prefetch.ErrTransport)
		default:
			return fmt.Errorf("fetch %s: %s: %w", key, code, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("fetch %s: %w: %w", key, prefetch.ErrTransport, err)
	}

	return fmt.Errorf("fetch %s: %w", key, err)
}
