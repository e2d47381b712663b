package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage 图片文件存储
type Storage interface {
	// Save 保存文件，返回可访问的URL
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey 生成存储键：images/2006/01/02/{uuid}{ext}
func ObjectKey(ext string, now time.Time) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join("images", now.Format("2006/01/02"), fmt.Sprintf("%s%s", uuid.NewString(), ext))
}
