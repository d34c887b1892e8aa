package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"field_uploader/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectAPI is the subset of *minio.Client the store relies on.
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

type Store struct {
	client     objectAPI
	bucketName string
	location   string
}

// Init builds a store for the configured bucket. Missing credentials are not
// fatal here: the store is still returned and every call reports
// ErrMissingCredentials, so the failure surfaces per request.
func Init(cfg config.MinIOConfig) (*Store, error) {
	s := &Store{bucketName: cfg.BucketName, location: cfg.Location}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		slog.Warn("MinIO client not created, credentials are missing", "endpoint", cfg.Endpoint)
		return s, nil
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Location,
	})
	if err != nil {
		slog.Error("failed to create MinIO client", "error", err)
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	slog.Info("MinIO client connected", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)
	s.client = minioClient
	return s, nil
}

// EnsureBucket creates the bucket unless it already exists.
func (s *Store) EnsureBucket(ctx context.Context) error {
	const op = "storage.EnsureBucket"
	if s.client == nil {
		return storageError(op, ErrMissingCredentials, nil)
	}

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		slog.Error("failed to check bucket existence", "bucket", s.bucketName, "error", err)
		return classify(op, err)
	}
	if exists {
		slog.Info("bucket already exists, skipping creation", "bucket", s.bucketName)
		return nil
	}

	slog.Info("creating bucket", "bucket", s.bucketName)
	err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.location})
	if err != nil {
		if isBucketAlreadyExists(err) {
			slog.Info("bucket was created concurrently by another process", "bucket", s.bucketName)
			return nil
		}

		slog.Error("failed to create bucket", "bucket", s.bucketName, "error", err)
		return classify(op, err)
	}

	slog.Info("bucket created", "bucket", s.bucketName)
	return nil
}

func isBucketAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" ||
		strings.Contains(err.Error(), "BucketAlreadyExists")
}
