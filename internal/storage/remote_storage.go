package storage

import (
	"context"
	"fmt"
)

// objectBackend 是远程对象存储需要提供的两个操作
type objectBackend interface {
	exists(ctx context.Context, key string) (bool, error)
	upload(ctx context.Context, key string, body []byte, contentType string) error
}

// remoteArchive 在各家对象存储之上统一处理前缀和 SkipIfExists
type remoteArchive struct {
	kind    string
	prefix  string
	backend objectBackend
}

func (a *remoteArchive) Kind() string { return a.kind }

func (a *remoteArchive) Put(ctx context.Context, obj Object) (string, error) {
	if err := checkPut(ctx, obj); err != nil {
		return "", err
	}
	key := withPrefix(a.prefix, objectKey(obj))

	if obj.SkipIfExists {
		found, err := a.backend.exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%s: check %s: %w", a.kind, key, err)
		}
		if found {
			return key, nil
		}
	}

	if err := a.backend.upload(ctx, key, obj.Body, contentTypeFor(obj.Extension)); err != nil {
		return "", fmt.Errorf("%s: upload %s: %w", a.kind, key, err)
	}
	return key, nil
}

var _ Archive = (*remoteArchive)(nil)
