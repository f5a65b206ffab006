package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
)

// ErrStorageDisabled is returned when no object store endpoint is configured.
var ErrStorageDisabled = errors.New("attachment storage not configured")

// AttachmentStore persists uploaded evidence and returns its reference.
type AttachmentStore interface {
	Put(ctx context.Context, fileName string, reader io.Reader, size int64, contentType string) (string, error)
}

// MinioStore stores attachments in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinioStore connects to the object store and makes sure the bucket
// exists. An empty endpoint yields a nil store; uploads then fail with
// ErrStorageDisabled.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		logger.Warn("STORAGE_ENDPOINT not provided; attachment uploads disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created attachment bucket", zap.String("bucket", cfg.Bucket))
	}

	logger.Info("connected to object storage", zap.String("endpoint", cfg.Endpoint))
	return &MinioStore{client: client, bucket: cfg.Bucket, now: time.Now}, nil
}

// Put uploads the object and returns its key within the bucket.
func (s *MinioStore) Put(ctx context.Context, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrStorageDisabled
	}
	objectName := ObjectName(s.now(), uuid.NewString(), fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return objectName, nil
}

// ObjectName builds the storage key for an upload: attachments/YYYY/MM/DD/<id><ext>.
func ObjectName(at time.Time, id, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("attachments/%s/%s%s", at.UTC().Format("2006/01/02"), id, ext)
}

// Ping verifies the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return ErrStorageDisabled
	}
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s missing", s.bucket)
	}
	return nil
}
