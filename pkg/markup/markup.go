package markup

import (
	"html"
	"strings"
	"sync"

	"github.com/importcjj/sensitive"
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday"
)

// Filter 处理用户输入的文本：去除HTML、过滤敏感词、渲染Markdown
type Filter struct {
	mu     sync.RWMutex
	words  *sensitive.Filter
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
}

// NewFilter 创建过滤器，words 为初始敏感词
func NewFilter(words ...string) *Filter {
	f := &Filter{
		words:  newWordFilter(),
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
	}
	f.words.AddWord(words...)
	return f
}

// newWordFilter 默认噪音模式会删除空格和&等字符，这里只去除NUL
func newWordFilter() *sensitive.Filter {
	w := sensitive.New()
	w.UpdateNoisePattern(`\x00`)
	return w
}

// LoadWordsFile 从文件加载敏感词（每行一个），替换现有词库
func (f *Filter) LoadWordsFile(path string) error {
	next := newWordFilter()
	if err := next.LoadWordDict(path); err != nil {
		return err
	}
	f.mu.Lock()
	f.words = next
	f.mu.Unlock()
	return nil
}

// CleanText 去除全部HTML标签并将敏感词替换为*
func (f *Filter) CleanText(s string) string {
	plain := html.UnescapeString(f.strict.Sanitize(s))
	plain = strings.TrimSpace(plain)

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.words.Replace(plain, '*')
}

// RenderMarkdown 将Markdown渲染为安全的HTML
func (f *Filter) RenderMarkdown(s string) string {
	if s == "" {
		return ""
	}
	unsafe := blackfriday.MarkdownCommon([]byte(s))
	return string(f.ugc.SanitizeBytes(unsafe))
}
