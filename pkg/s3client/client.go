// Package s3client wraps minio-go for the bucket that mirrors the library.
package s3client

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/pkg/common"
)

// Config represents the configuration for an S3 client
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Client is an S3 client bound to one bucket and key prefix.
type Client struct {
	client *minio.Client
	config Config
}

// New connects to the endpoint and checks that the bucket exists.
func New(ctx context.Context, cfg Config) (*Client, error) {
	const op = "s3client.New"
	// Validate configuration
	if cfg.Endpoint == "" {
		return nil, common.NewValidationError(op, "S3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, common.NewValidationError(op, "S3 bucket name is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, common.NewValidationError(op, "S3 access key and secret key are required")
	}

	// Remove protocol prefix if present
	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimSuffix(endpoint, "/")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, common.NewValidationError(op, fmt.Sprintf("create S3 client: %v", err))
	}

	// Check if bucket exists
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, Classify(op, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err))
	}
	if !exists {
		return nil, common.NewNotFoundError(op, fmt.Sprintf("bucket %s does not exist", cfg.Bucket))
	}

	logger.Info("Connected to S3 endpoint %s, bucket %s", endpoint, cfg.Bucket)

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// UploadFile uploads a file to S3
func (c *Client) UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	// Ensure the object key has the prefix
	objectKey = c.getObjectKey(objectKey)

	// Set default content type if not provided
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	}

	info, err := c.client.PutObject(ctx, c.config.Bucket, objectKey, reader, size, opts)
	if err != nil {
		return Classify("s3client.UploadFile", fmt.Errorf("upload %s: %w", objectKey, err))
	}

	logger.Debug("Uploaded file to %s (%d bytes, etag: %s)", objectKey, info.Size, info.ETag)
	return nil
}

// ObjectExists checks if an object exists in the bucket
func (c *Client) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	objectKey = c.getObjectKey(objectKey)

	_, err := c.client.StatObject(ctx, c.config.Bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if IsNotFoundError(err) {
			return false, nil
		}
		return false, Classify("s3client.ObjectExists", fmt.Errorf("stat %s: %w", objectKey, err))
	}

	return true, nil
}

// ListObjects lists objects in the bucket with the given prefix
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]minio.ObjectInfo, error) {
	prefix = c.getObjectKey(prefix)

	var objects []minio.ObjectInfo
	objectCh := c.client.ListObjects(ctx, c.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, Classify("s3client.ListObjects", object.Err)
		}
		objects = append(objects, object)
	}

	return objects, nil
}

// DeleteObject deletes an object from the bucket. The key is used as
// given, so keys returned by ListObjects can be passed back unchanged.
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	err := c.client.RemoveObject(ctx, c.config.Bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return Classify("s3client.DeleteObject", fmt.Errorf("delete %s: %w", objectKey, err))
	}

	logger.Debug("Deleted object %s", objectKey)
	return nil
}

// getObjectKey returns the full object key with prefix
func (c *Client) getObjectKey(key string) string {
	return ObjectKey(c.config.Prefix, key)
}

// ObjectKey joins prefix and key with forward slashes.
func ObjectKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimPrefix(key, "/")
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix + "/"
	}
	return path.Join(prefix, key)
}

// GetBucketName returns the bucket name
func (c *Client) GetBucketName() string {
	return c.config.Bucket
}

// GetPrefix returns the prefix
func (c *Client) GetPrefix() string {
	return c.config.Prefix
}
