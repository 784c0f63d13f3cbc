package storage

import (
	"bytes"
	"chathub/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// ossBackend 阿里云 OSS
type ossBackend struct {
	bucket *oss.Bucket
}

func (b ossBackend) exists(ctx context.Context, key string) (bool, error) {
	return b.bucket.IsObjectExist(key, oss.WithContext(ctx))
}

func (b ossBackend) upload(ctx context.Context, key string, body []byte, contentType string) error {
	return b.bucket.PutObject(key, bytes.NewReader(body), oss.WithContext(ctx), oss.ContentType(contentType))
}

func NewOSSArchive(cfg config.Config) (Archive, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	switch {
	case endpoint == "":
		return nil, errors.New("storage: STORAGE_OSS_ENDPOINT is required")
	case bucketName == "":
		return nil, errors.New("storage: STORAGE_OSS_BUCKET is required")
	case accessKey == "" || secretKey == "":
		return nil, errors.New("storage: OSS access key id and secret are required")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("storage: oss client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: oss bucket %s: %w", bucketName, err)
	}
	return &remoteArchive{kind: TypeOSS, prefix: cfg.StorageOSSPrefix, backend: ossBackend{bucket: bucket}}, nil
}
