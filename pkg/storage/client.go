// Package storage fetches launcher layout backups from S3.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fly-io/gridmigrate/pkg/errors"
)

// API is the part of the S3 client used here.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	s3.ListObjectsV2APIClient
}

// Client provides backup operations on one bucket
type Client struct {
	api    API
	bucket string
}

// Options configures NewClient.
type Options struct {
	Bucket string
	Region string
	// Endpoint points at an S3 compatible store instead of AWS.
	Endpoint string
}

// NewClient creates a new S3 client for anonymous access
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	slog.Info("s3_client_init", "bucket", opts.Bucket, "region", opts.Region, "endpoint", opts.Endpoint)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewClientFromAPI(api, opts.Bucket), nil
}

// NewClientFromAPI wraps an existing S3 client.
func NewClientFromAPI(api API, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// Bucket returns the bucket backups are read from.
func (c *Client) Bucket() string {
	return c.bucket
}

// Backup describes a downloaded layout database.
type Backup struct {
	Key       string
	LocalPath string
	SHA256    string
	Size      int64
}

// FetchBackup downloads key to localPath and computes its SHA256. A partial
// file is removed when the download fails.
func (c *Client) FetchBackup(ctx context.Context, key, localPath string) (*Backup, error) {
	slog.Info("backup_download_start", "bucket", c.bucket, "key", key)

	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get backup from S3")
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create local file")
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), result.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(localPath)
		slog.Error("backup_download_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to download backup")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))

	slog.Info("backup_download_complete",
		"key", key,
		"size_bytes", size,
		"local_path", localPath,
		"sha256", checksum[:16]+"...",
	)

	return &Backup{
		Key:       key,
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}

// Object is one entry of a backup listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListBackups lists all backups in the bucket with a given prefix
func (c *Client) ListBackups(ctx context.Context, prefix string) ([]Object, error) {
	slog.Info("s3_list_start", "bucket", c.bucket, "prefix", prefix)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	}

	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(c.api, input)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			slog.Error("s3_list_failed", "prefix", prefix, "error", err)
			return nil, errors.Wrap(err, "failed to list backups")
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			objects = append(objects, Object{
				Key:          *obj.Key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	slog.Info("s3_list_complete", "prefix", prefix, "object_count", len(objects))

	return objects, nil
}

// Exists checks if a backup exists in S3
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			slog.Info("s3_object_not_found", "key", key)
			return false, nil
		}
		slog.Error("s3_head_object_failed", "key", key, "error", err)
		return false, errors.Wrap(err, "failed to check backup existence")
	}

	return true, nil
}
