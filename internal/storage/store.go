package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"PasteBox/config"
)

// PutOptions describes upload options for object storage.
type PutOptions struct {
	ContentType string
}

// SignOptions tunes a presigned download link.
type SignOptions struct {
	// FileName, when set, is sent back as the attachment name.
	FileName    string
	ContentType string
}

// Store abstracts the byte-storage backend. Implementations are bound to one bucket.
type Store interface {
	PutObject(ctx context.Context, key string, reader io.Reader, size int64, opts PutOptions) error
	RemoveObject(ctx context.Context, key string) error
	PresignedGetObject(ctx context.Context, key string, expiry time.Duration, opts SignOptions) (string, error)
	// PublicURL is best effort and returns "" for private buckets.
	PublicURL(key string) string
}

var ErrUnknownDriver = errors.New("unknown storage driver")

// New builds the Store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "minio":
		return InitMinio(ctx, cfg, cfg.Bucket)
	case "s3":
		return InitS3(ctx, cfg, cfg.Bucket)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func publicURL(base, key string) string {
	if base == "" || key == "" {
		return ""
	}
	return base + "/" + key
}

func contentDisposition(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("attachment; filename=\"%s\"", name)
}
