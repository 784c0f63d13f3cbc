package storage

import (
	"bytes"
	"chathub/internal/config"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// cosBackend 腾讯云 COS
type cosBackend struct {
	client *cos.Client
}

func (b cosBackend) exists(ctx context.Context, key string) (bool, error) {
	resp, err := b.client.Object.Head(ctx, key, nil)
	drainCOS(resp)
	switch {
	case err == nil:
		return true, nil
	case cos.IsNotFoundError(err):
		return false, nil
	default:
		return false, err
	}
}

func (b cosBackend) upload(ctx context.Context, key string, body []byte, contentType string) error {
	resp, err := b.client.Object.Put(ctx, key, bytes.NewReader(body), &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType},
	})
	drainCOS(resp)
	return err
}

func drainCOS(resp *cos.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

func NewCOSArchive(cfg config.Config) (Archive, error) {
	rawURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if rawURL == "" {
		return nil, errors.New("storage: STORAGE_COS_BUCKET_URL is required")
	}
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: COS secret id and key are required")
	}
	bucketURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: cos bucket url: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{SecretID: secretID, SecretKey: secretKey},
	})
	return &remoteArchive{kind: TypeCOS, prefix: cfg.StorageCOSPrefix, backend: cosBackend{client: client}}, nil
}
