package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalArchive persists objects below a directory on the local filesystem.
type LocalArchive struct {
	baseDir string
}

// NewLocalArchive creates the base directory when it does not exist yet.
func NewLocalArchive(baseDir string) (*LocalArchive, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/transcripts"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalArchive{baseDir: baseDir}, nil
}

func (s *LocalArchive) Kind() string { return TypeLocal }

// BaseDir returns the root directory used for storing files.
func (s *LocalArchive) BaseDir() string {
	return s.baseDir
}

// Put writes the object and returns its slash-separated path relative to the base directory.
func (s *LocalArchive) Put(ctx context.Context, obj Object) (string, error) {
	if err := checkPut(ctx, obj); err != nil {
		return "", err
	}

	relativePath := objectKey(obj)
	absPath := filepath.Join(s.baseDir, filepath.FromSlash(relativePath))

	if obj.SkipIfExists {
		if _, err := os.Stat(absPath); err == nil {
			return relativePath, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	// 先写临时文件再重命名，避免读到半截内容
	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".archive-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(obj.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), absPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename file: %w", err)
	}

	return relativePath, nil
}

var _ Archive = (*LocalArchive)(nil)
