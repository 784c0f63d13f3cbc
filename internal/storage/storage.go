package storage

import (
	"chathub/internal/config"
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// TypeLocal 表示本地文件系统存储。
	TypeLocal = "local"
	// TypeS3 表示 Amazon S3 或兼容的存储后端。
	TypeS3 = "s3"
	// TypeOSS 表示阿里云 OSS 存储。
	TypeOSS = "oss"
	// TypeCOS 表示腾讯云 COS 存储。
	TypeCOS = "cos"
	// TypeR2 表示 Cloudflare R2 存储。
	TypeR2 = "r2"
	// TypeNone 关闭归档。
	TypeNone = "none"
)

var errEmptyPayload = errors.New("empty payload")

// Object 描述一个待归档的对象。
//
// Key 由 Category、Owner、Name、Extension 拼接得到，相同输入总是得到相同的 Key，
// 因此 SkipIfExists 可以让重复归档变成幂等操作。
type Object struct {
	Category     string
	Owner        string
	Name         string
	Extension    string
	Body         []byte
	SkipIfExists bool
}

// Archive 持久化对象并返回后端相关的位置标识（本地相对路径或对象 Key）。
type Archive interface {
	Put(ctx context.Context, obj Object) (string, error)
	Kind() string
}

// NewArchive 根据配置实例化归档后端；STORAGE_TYPE=none 时返回 nil。
func NewArchive(cfg config.Config) (Archive, error) {
	typeName := strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch typeName {
	case TypeNone:
		return nil, nil
	case "", TypeLocal:
		local, err := NewLocalArchive(cfg.StorageLocalDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	case TypeS3:
		return NewS3Archive(cfg)
	case TypeOSS:
		return NewOSSArchive(cfg)
	case TypeCOS:
		return NewCOSArchive(cfg)
	case TypeR2:
		return NewR2Archive(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}
}

func checkPut(ctx context.Context, obj Object) error {
	if len(obj.Body) == 0 {
		return errEmptyPayload
	}
	return ctx.Err()
}
