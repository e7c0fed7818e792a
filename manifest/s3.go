package manifest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3-backed Uploader.
type S3Config struct {
	Bucket string
	Region string
}

// S3Uploader uploads manifest records to a fixed S3 bucket, using the
// AWS SDK's default credential chain (env vars, shared config, IAM
// role) the way the pack's own S3-backed dataset client does.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

// NewS3Uploader loads the default AWS config and builds an S3 client
// for cfg.Bucket.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("manifest: S3 bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("manifest: load AWS config: %w", err)
	}

	return &S3Uploader{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket}, nil
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("manifest: put %s/%s: %w", u.bucket, key, err)
	}
	return nil
}

var _ Uploader = (*S3Uploader)(nil)
