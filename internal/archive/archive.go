// Package archive stores rendered digests in S3-compatible object storage.
package archive

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/config"
)

const keyPrefix = "digests"

// Uploader is the part of manager.Uploader the archive uses
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Archive uploads digests to a bucket
type Archive struct {
	uploader Uploader
	bucket   string
	log      zerolog.Logger
}

// New creates an archive over an existing uploader
func New(uploader Uploader, bucket string, log zerolog.Logger) *Archive {
	return &Archive{
		uploader: uploader,
		bucket:   bucket,
		log:      log.With().Str("service", "digest_archive").Logger(),
	}
}

// NewFromConfig builds the S3 client described by cfg.
// Returns nil, nil when no bucket is configured.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig, log zerolog.Logger) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return New(manager.NewUploader(client), cfg.Bucket, log), nil
}

// Key returns the object key of a user's digest for a date
func Key(date time.Time, userID string) string {
	return path.Join(keyPrefix, date.UTC().Format("2006-01-02"), userID+".html")
}

// Store uploads one rendered digest and returns its key
func (a *Archive) Store(ctx context.Context, date time.Time, userID, html string) (string, error) {
	key := Key(date, userID)

	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.log.Debug().Str("key", key).Int("bytes", len(html)).Msg("Digest archived")
	return key, nil
}
