package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 把图片写入磁盘目录，并通过静态路由对外提供。
type LocalStore struct {
	dir     string
	urlPath string
}

func NewLocalStore(dir, urlPath string) *LocalStore {
	if strings.TrimSpace(dir) == "" {
		dir = "web/static/uploads"
	}
	if strings.TrimSpace(urlPath) == "" {
		urlPath = "/static/uploads"
	}
	return &LocalStore{dir: dir, urlPath: "/" + strings.Trim(urlPath, "/")}
}

// Dir returns the directory served under URLPath.
func (s *LocalStore) Dir() string { return s.dir }

// URLPath returns the public prefix of stored files.
func (s *LocalStore) URLPath() string { return s.urlPath }

func (s *LocalStore) Save(_ context.Context, key, _ string, data []byte) (string, error) {
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", err
	}
	return s.urlPath + "/" + key, nil
}

func (s *LocalStore) Delete(_ context.Context, url string) error {
	prefix := s.urlPath + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	key := strings.TrimPrefix(url, prefix)
	if strings.Contains(key, "..") {
		return errors.New("invalid object key")
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
