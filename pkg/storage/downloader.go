package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

var (
	ErrNotImage = errors.New("远程资源不是图片")
	ErrTooLarge = errors.New("远程图片超过大小限制")
)

// permanentError 不需要重试的下载错误
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Downloader 下载远程图片并保存到存储
type Downloader struct {
	client   *http.Client
	storage  Storage
	maxBytes int64
	attempts uint
	delay    time.Duration
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// DownloaderOptions 下载配置
type DownloaderOptions struct {
	MaxBytes int64
	Attempts uint
	Delay    time.Duration
	Timeout  time.Duration
}

// NewDownloader 创建下载器
func NewDownloader(client *http.Client, storage Storage, opts DownloaderOptions, log *zap.SugaredLogger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	if opts.Delay == 0 {
		opts.Delay = time.Second
	}
	return &Downloader{
		client:   client,
		storage:  storage,
		maxBytes: opts.MaxBytes,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		timeout:  opts.Timeout,
		log:      log,
	}
}

// Download 下载图片并保存，返回存储后的URL
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var data []byte
	var contentType string
	err := retry.Do(
		func() error {
			var err error
			data, contentType, err = d.fetch(ctx, rawURL)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var p *permanentError
			return !errors.As(err, &p)
		}),
		retry.OnRetry(func(n uint, err error) {
			d.log.Warnf("下载图片第%d次失败: %s, %v", n+1, rawURL, err)
		}),
	)
	if err != nil {
		return "", err
	}

	key := ObjectKey(extension(rawURL, contentType), time.Now())
	return d.storage.Save(ctx, key, data, contentType)
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &permanentError{err}
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, "", fmt.Errorf("远程服务器错误: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", &permanentError{fmt.Errorf("下载失败: 状态码 %d", resp.StatusCode)}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", &permanentError{ErrNotImage}
	}

	reader := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}
	if d.maxBytes > 0 && int64(len(data)) > d.maxBytes {
		return nil, "", &permanentError{ErrTooLarge}
	}
	return data, contentType, nil
}

// extension 优先使用URL中的扩展名，否则根据Content-Type推断
func extension(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return strings.ToLower(ext)
		}
	}
	switch strings.SplitN(contentType, ";", 2)[0] {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
