package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nsxzhou1114/bookmarks-api/pkg/validate"
)

const (
	maxPageBytes = 5 << 20
	// MaxImages 单页最多返回的图片数量
	MaxImages = 50
)

// ErrUnsupportedScheme 仅支持http/https页面
var ErrUnsupportedScheme = errors.New("仅支持http或https页面")

// Scraper 从网页中提取可收藏的图片地址
type Scraper struct {
	client  *http.Client
	allowed []string
}

// New 创建抓取器
func New(client *http.Client, allowedExtensions []string) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{client: client, allowed: allowedExtensions}
}

// FindImages 返回页面中 og:image 和 <img> 的绝对地址，按出现顺序去重
func (s *Scraper) FindImages(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("解析页面地址失败: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "bookmarks-api/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求页面失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("请求页面失败: 状态码 %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("解析页面失败: %w", err)
	}

	// 跟随重定向后以最终地址解析相对路径
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	seen := make(map[string]struct{})
	images := make([]string, 0)
	add := func(raw string) {
		if len(images) >= MaxImages {
			return
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !validate.HasAllowedExtension(abs, s.allowed) {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		images = append(images, abs)
	}

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			add(content)
		}
	})
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			add(src)
		}
		if src, ok := sel.Attr("data-src"); ok {
			add(src)
		}
	})

	return images, nil
}
