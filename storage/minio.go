package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"paper-tracker/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore ist die BlobStore-Variante für selbst betriebenes MinIO.
type MinioStore struct {
	client *minio.Client
	bucket string
	secure bool
	host   string
}

// NewMinioStore erstellt den Client. S3_ENDPOINT darf mit oder ohne Schema angegeben werden.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	host, secure := splitEndpoint(cfg.S3Endpoint, cfg.S3UseSSL)
	region := cfg.S3Region
	if region == "auto" {
		// "auto" versteht nur R2
		region = ""
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.S3Bucket, secure: secure, host: host}, nil
}

// EnsureBucket legt den Bucket an, falls er noch nicht existiert.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return objectURL(scheme+"://"+s.host, s.bucket, key), nil
}

// Delete ist idempotent, RemoveObject meldet fehlende Objekte nicht als Fehler.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), false
	}
	return strings.TrimSuffix(endpoint, "/"), useSSL
}
