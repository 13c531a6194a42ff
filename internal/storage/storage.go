// Package storage uploads pipeline output files to S3-compatible blob
// storage (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned by NewS3Uploader when no bucket is set
var ErrNotConfigured = errors.New("blob storage not configured")

// Uploader stores local files remotely
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Config holds the S3 connection settings
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // custom endpoint for R2/MinIO; empty for AWS
	AccessKeyID     string
	SecretAccessKey string
}

// S3Uploader uploads files with the S3 transfer manager
type S3Uploader struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Uploader builds an uploader from cfg. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg Config, log zerolog.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		log:      log.With().Str("component", "blob_storage").Logger(),
	}, nil
}

// Key returns the object key a local file is stored under.
func (u *S3Uploader) Key(localPath string) string {
	name := filepath.Base(localPath)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload stores the file under Key(localPath), overwriting any existing
// object, and returns the key.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	key := u.Key(localPath)
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := u.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	u.log.Info().Str("bucket", u.bucket).Str("key", key).Msg("Uploaded file")
	return key, nil
}

// UploadAll uploads every path, skipping empty ones. Failures are logged
// and collected; the remaining files are still attempted.
func UploadAll(ctx context.Context, u Uploader, paths []string, log zerolog.Logger) ([]string, error) {
	var keys []string
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		key, err := u.Upload(ctx, p)
		if err != nil {
			log.Error().Err(err).Str("path", p).Msg("Upload failed")
			errs = append(errs, err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}
