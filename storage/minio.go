package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/hayeon-dev/ai-gallery/config"
)

type minioStorage struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStorage connects to the configured MinIO endpoint and ensures the
// bucket exists.
func NewMinioStorage(cfg *config.Config) (Provider, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 10 * time.Second,
		DisableCompression:    true,
	}

	if cfg.MinioUseSSL {
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure:    cfg.MinioUseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.MinioBucket, err)
		}
		zap.L().Info("created minio bucket", zap.String("bucket", cfg.MinioBucket))
	}

	return &minioStorage{
		client:     client,
		bucketName: cfg.MinioBucket,
	}, nil
}

func (s *minioStorage) SaveWithContext(ctx context.Context, identifier string, file io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucketName, identifier, file, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to minio: %w", identifier, err)
	}
	return nil
}

func (s *minioStorage) GetWithContext(ctx context.Context, identifier string) (io.ReadSeeker, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, identifier, minio.GetObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return nil, fmt.Errorf("file not found in minio: %s", identifier)
		}
		return nil, fmt.Errorf("failed to get object stream from minio for '%s': %w", identifier, err)
	}
	return obj, nil
}

func (s *minioStorage) DeleteWithContext(ctx context.Context, identifier string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, identifier, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object '%s' from minio: %w", identifier, err)
	}
	return nil
}

func (s *minioStorage) Exists(ctx context.Context, identifier string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, identifier, minio.StatObjectOptions{})
	if err != nil {
		errResponse := minio.ToErrorResponse(err)
		if errResponse.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object '%s' in minio: %w", identifier, err)
	}
	return true, nil
}

func (s *minioStorage) Health(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio bucket '%s' does not exist", s.bucketName)
	}
	return nil
}

func (s *minioStorage) Name() string {
	return "minio"
}
