package reliability

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/stockcart/internal/config"
)

// ObjectInfo describes one stored object, with the key relative to the client prefix
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the subset of bucket operations backups need
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// R2Client talks to Cloudflare R2, or any S3-compatible endpoint
type R2Client struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

var _ ObjectStore = (*R2Client)(nil)

// NewR2Client creates a client from backup configuration.
// Static credentials are used when set; otherwise the default AWS chain applies.
func NewR2Client(ctx context.Context, cfg *config.BackupConfig, log zerolog.Logger) (*R2Client, error) {
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
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// R2 does not support virtual-hosted buckets on custom endpoints
			o.UsePathStyle = true
		}
	})

	return &R2Client{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 10 * 1024 * 1024
		}),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log.With().Str("client", "r2").Logger(),
	}, nil
}

// Upload streams body to key, using multipart upload for large files
func (c *R2Client) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	c.log.Debug().Str("key", key).Int64("size_bytes", size).Msg("Uploaded object")
	return nil
}

// List returns every object whose key starts with prefix
func (c *R2Client) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix + prefix),
	})

	var objects []ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{
				Key:  strings.TrimPrefix(aws.ToString(obj.Key), c.prefix),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}

	return objects, nil
}

// Delete removes key
func (c *R2Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
