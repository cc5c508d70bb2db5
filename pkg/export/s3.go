package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/bastionsec/sharescan/internal/logger"
	"github.com/bastionsec/sharescan/internal/telemetry"
)

// defaultParallelUploads bounds concurrent artifact uploads.
const defaultParallelUploads = 4

// S3Config configures the artifact uploader.
type S3Config struct {
	// Bucket is the destination bucket. It must already exist.
	Bucket string

	// Prefix is prepended to every object key, e.g. "exports/corp".
	Prefix string

	// Region is the bucket region.
	Region string

	// Endpoint overrides the S3 endpoint for S3-compatible storage.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. When
	// empty the default AWS credential chain applies.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle uses path-style addressing (MinIO, localstack).
	ForcePathStyle bool

	// Parallel caps concurrent uploads. Default: 4.
	Parallel int
}

// s3API is the S3 surface the uploader calls, satisfied by *s3.Client.
type s3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client creates an S3 client from configuration parameters.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return client, nil
}

// Uploader pushes export artifacts to one S3 bucket.
type Uploader struct {
	client   s3API
	bucket   string
	prefix   string
	parallel int
}

// NewUploader verifies bucket access and returns an uploader.
func NewUploader(ctx context.Context, client s3API, cfg S3Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = defaultParallelUploads
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Uploader{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		parallel: parallel,
	}, nil
}

// key returns the object key for an artifact filename.
func (u *Uploader) key(name string) string {
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}

// UploadFile puts one local file under the configured prefix and
// returns its object key.
func (u *Uploader) UploadFile(ctx context.Context, path string) (string, error) {
	key := u.key(filepath.Base(path))

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanExportUpload)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.Bucket(u.bucket), telemetry.StorageKey(key))

	f, err := os.Open(path)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		telemetry.RecordError(ctx, err)
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	logger.DebugCtx(ctx, "Uploaded export artifact", "bucket", u.bucket, "key", key)
	return key, nil
}

// UploadAll pushes the given files concurrently, returning their object
// keys in input order. The first failure cancels the uploads still in
// flight.
func (u *Uploader) UploadAll(ctx context.Context, paths []string) ([]string, error) {
	keys := make([]string, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.parallel)
	for i, path := range paths {
		g.Go(func() error {
			key, err := u.UploadFile(ctx, path)
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Export artifacts uploaded",
		"bucket", u.bucket, "prefix", u.prefix, "count", len(keys))
	return keys, nil
}
