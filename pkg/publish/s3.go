// Package publish uploads finished export artifacts to object storage.
package publish

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/config"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

const (
	defaultUploadPartSize = 5 * 1024 * 1024 // 5MB
	defaultConcurrency    = 4
)

// Uploader is the subset of *manager.Uploader the publisher uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher uploads artifacts under bucket/prefix/<file name>.
type S3Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewS3Publisher wraps an existing uploader.
func NewS3Publisher(uploader Uploader, bucket, prefix string, logger *zap.Logger) *S3Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

// New builds a publisher from configuration using the default AWS
// credential chain.
func New(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Publisher, error) {
	if !cfg.Enabled() {
		return nil, tendererrors.New(tendererrors.ErrorTypeConfig, "publish.s3.bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = defaultUploadPartSize
		u.Concurrency = defaultConcurrency
	})
	return NewS3Publisher(uploader, cfg.Bucket, cfg.Prefix, logger), nil
}

// Key returns the object key for a local artifact path.
func (p *S3Publisher) Key(localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads the file at localPath and returns its s3:// URI.
func (p *S3Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", tendererrors.Wrap(err, tendererrors.ErrorTypeIO, "failed to open artifact").
			WithDetail("path", localPath)
	}
	defer f.Close()

	start := time.Now()
	key := p.Key(localPath)
	out, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType(localPath)),
		Metadata: map[string]string{
			"created": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to upload to S3").
			WithDetail("bucket", p.bucket).
			WithDetail("key", key)
	}

	uri := "s3://" + p.bucket + "/" + key
	p.logger.Info("Artifact uploaded to S3",
		zap.String("uri", uri),
		zap.String("location", out.Location),
		zap.Duration("duration", time.Since(start)))
	return uri, nil
}

// ContentType guesses the MIME type of an artifact from its extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".avro":
		return "application/avro"
	case ".gz":
		return "application/gzip"
	case ".zst":
		return "application/zstd"
	}
	return "application/octet-stream"
}
