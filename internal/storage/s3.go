package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	UploadTTL time.Duration
	URLTTL    time.Duration
}

// S3Store keeps objects in an S3 compatible bucket. Upload and read URLs are
// presigned, so clients talk to the bucket directly. Presigned PUTs are only
// time bounded, not single use.
type S3Store struct {
	client    *minio.Client
	bucket    string
	uploadTTL time.Duration
	urlTTL    time.Duration
}

func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &S3Store{client: client, bucket: cfg.Bucket, uploadTTL: cfg.UploadTTL, urlTTL: cfg.URLTTL}, nil
}

func (s *S3Store) UploadURL(ctx context.Context) (*UploadTarget, error) {
	storageID := uuid.NewString()
	u, err := s.client.PresignedPutObject(ctx, s.bucket, storageID, s.uploadTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadTarget{
		StorageID: storageID,
		URL:       u.String(),
		Method:    http.MethodPut,
		ExpiresAt: time.Now().Add(s.uploadTTL),
	}, nil
}

func (s *S3Store) URL(ctx context.Context, storageID string) (string, error) {
	if !validID(storageID) {
		return "", ErrObjectNotFound
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, storageID, s.urlTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign read: %w", err)
	}
	return u.String(), nil
}

func (s *S3Store) Delete(ctx context.Context, storageID string) error {
	exists, err := s.Exists(ctx, storageID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotFound
	}

	if err := s.client.RemoveObject(ctx, s.bucket, storageID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *S3Store) Exists(ctx context.Context, storageID string) (bool, error) {
	if !validID(storageID) {
		return false, nil
	}

	_, err := s.client.StatObject(ctx, s.bucket, storageID, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}
