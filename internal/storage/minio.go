package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"PasteBox/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store with a MinIO client.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStore builds a Store from a MinIO client.
func NewMinioStore(client *minio.Client, bucket, publicBase string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, publicBase: publicBase}
}

// PutObject uploads an object to MinIO.
func (s *MinioStore) PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: opts.ContentType,
	})
	return err
}

// RemoveObject deletes an object from MinIO.
func (s *MinioStore) RemoveObject(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// PresignedGetObject returns a presigned URL for downloading an object.
func (s *MinioStore) PresignedGetObject(ctx context.Context, key string, expiry time.Duration, opts SignOptions) (string, error) {
	values := url.Values{}
	if disposition := contentDisposition(opts.FileName); disposition != "" {
		values.Set("response-content-disposition", disposition)
	}
	if opts.ContentType != "" {
		values.Set("response-content-type", opts.ContentType)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, values)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PublicURL returns the object URL under the configured public base.
func (s *MinioStore) PublicURL(key string) string {
	return publicURL(s.publicBase, key)
}

// InitMinio connects to MinIO and makes sure the bucket exists.
func InitMinio(ctx context.Context, cfg config.StorageConfig, bucket string) (*MinioStore, error) {
	client, err := minio.New(fmt.Sprintf("%s:%s", cfg.Minio.Host, cfg.Minio.Port), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.Username, cfg.Minio.Password, ""),
		Secure: cfg.Minio.UseSSL,
		Region: cfg.Minio.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists { // bucket is created on first start
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Minio.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	slog.Info("init minio success", "bucket", bucket)
	return NewMinioStore(client, bucket, cfg.PublicBaseURL), nil
}
