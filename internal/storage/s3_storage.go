package storage

import (
	"bytes"
	"chathub/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// s3API is the subset of *s3.Client the archive calls.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Backend serves both AWS S3 and S3-compatible stores such as R2.
type s3Backend struct {
	client s3API
	bucket string
}

func (b s3Backend) exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(key)})
	switch {
	case err == nil:
		return true, nil
	case isS3NotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (b s3Backend) upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	return err
}

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.ToLower(apiErr.ErrorCode()) {
		case "notfound", "nosuchkey", "404":
			return true
		}
	}
	return false
}

// s3Endpoint 描述一个 S3 兼容端点的连接参数
type s3Endpoint struct {
	region    string
	url       string
	bucket    string
	keyID     string
	secret    string
	session   string
	pathStyle bool
}

func (e s3Endpoint) client() (*s3.Client, error) {
	if e.bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if e.region == "" {
		return nil, errors.New("region is required")
	}
	if e.keyID == "" || e.secret == "" {
		return nil, errors.New("access key id and secret are required")
	}

	endpoint := e.url
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	awsCfg := aws.Config{
		Region:      e.region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(e.keyID, e.secret, e.session)),
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = e.pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func newS3Family(kind, prefix string, endpoint s3Endpoint) (Archive, error) {
	client, err := endpoint.client()
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", kind, err)
	}
	return &remoteArchive{
		kind:    kind,
		prefix:  prefix,
		backend: s3Backend{client: client, bucket: endpoint.bucket},
	}, nil
}

func NewS3Archive(cfg config.Config) (Archive, error) {
	return newS3Family(TypeS3, cfg.StorageS3Prefix, s3Endpoint{
		region:    strings.TrimSpace(cfg.StorageS3Region),
		url:       strings.TrimSpace(cfg.StorageS3Endpoint),
		bucket:    strings.TrimSpace(cfg.StorageS3Bucket),
		keyID:     strings.TrimSpace(cfg.StorageS3AccessKeyID),
		secret:    strings.TrimSpace(cfg.StorageS3SecretAccessKey),
		session:   strings.TrimSpace(cfg.StorageS3SessionToken),
		pathStyle: cfg.StorageS3ForcePathStyle,
	})
}

// NewR2Archive talks to Cloudflare R2 through its S3-compatible API.
// Without an explicit endpoint the account id decides the host.
func NewR2Archive(cfg config.Config) (Archive, error) {
	endpoint := strings.TrimSpace(cfg.StorageR2Endpoint)
	if endpoint == "" {
		accountID := strings.TrimSpace(cfg.StorageR2AccountID)
		if accountID == "" {
			return nil, errors.New("storage: r2: endpoint or account id is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}
	region := strings.TrimSpace(cfg.StorageR2Region)
	if region == "" {
		region = "auto"
	}
	return newS3Family(TypeR2, cfg.StorageR2Prefix, s3Endpoint{
		region:    region,
		url:       endpoint,
		bucket:    strings.TrimSpace(cfg.StorageR2Bucket),
		keyID:     strings.TrimSpace(cfg.StorageR2AccessKeyID),
		secret:    strings.TrimSpace(cfg.StorageR2SecretAccessKey),
		pathStyle: true,
	})
}
