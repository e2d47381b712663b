package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地磁盘存储
type LocalStorage struct {
	dir       string
	urlPrefix string
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(dir, urlPrefix string) *LocalStorage {
	return &LocalStorage{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

// Dir 本地存储根目录
func (s *LocalStorage) Dir() string {
	return s.dir
}

// URLPrefix 本地文件的访问前缀
func (s *LocalStorage) URLPrefix() string {
	return s.urlPrefix
}

// Save 保存文件到本地
func (s *LocalStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	// key 以 images/ 开头，本地目录本身就是图片目录
	rel := strings.TrimPrefix(key, "images/")
	full := filepath.Join(s.dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("保存文件失败: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, rel), nil
}
