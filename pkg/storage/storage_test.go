package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObjectKey(t *testing.T) {
	now := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	key := ObjectKey("JPG", now)
	assert.True(t, strings.HasPrefix(key, "images/2024/05/06/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads/images/")

	u, err := s.Save(context.Background(), "images/2024/05/06/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/images/2024/05/06/a.png", u)

	data, err := os.ReadFile(filepath.Join(dir, "2024", "05", "06", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func newDownloader(t *testing.T, maxBytes int64) (*Downloader, string) {
	dir := t.TempDir()
	return NewDownloader(nil, NewLocalStorage(dir, "/uploads/images"), DownloaderOptions{
		MaxBytes: maxBytes,
		Attempts: 3,
		Delay:    time.Millisecond,
		Timeout:  5 * time.Second,
	}, zap.NewNop().Sugar()), dir
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	d, _ := newDownloader(t, 1024)
	u, err := d.Download(context.Background(), srv.URL+"/cat.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "/uploads/images/"))
	assert.True(t, strings.HasSuffix(u, ".jpg"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDownloadRejectsNonImageWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	d, _ := newDownloader(t, 1024)
	_, err := d.Download(context.Background(), srv.URL+"/cat.jpg")
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDownloadRejectsOversized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	d, _ := newDownloader(t, 16)
	_, err := d.Download(context.Background(), srv.URL+"/big.png")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtensionFromContentType(t *testing.T) {
	assert.Equal(t, ".png", extension("https://x/image", "image/png"))
	assert.Equal(t, ".jpeg", extension("https://x/a.JPEG", "image/png"))
	assert.Equal(t, "", extension("https://x/a", "application/octet-stream"))
}
