// Package blobstore wraps MinIO/S3 interactions for uploaded images.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lmcosta/snapsight/internal/config"
)

// ErrObjectNotFound is returned by Read when the object or bucket is gone.
// Every other read failure is treated as transient.
var ErrObjectNotFound = errors.New("object not found")

// Storage wraps a MinIO client scoped to the image bucket.
type Storage struct {
	client *minio.Client
	bucket string
	region string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client: client,
		bucket: cfg.ImageBucket,
		region: cfg.S3Region,
	}, nil
}

// EnsureBucket makes sure the image bucket exists before use.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload stores an uploaded image under the given object key.
func (s *Storage) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, opts); err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

// Read fetches the raw bytes of an object from the named bucket.
func (s *Storage) Read(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, objectKey, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("%s/%s: %w", bucket, objectKey, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, objectKey, err)
	}
	return buf, nil
}

// Bucket returns the configured image bucket name.
func (s *Storage) Bucket() string {
	return s.bucket
}
