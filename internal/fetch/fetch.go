package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/John-Robertt/discogs-digest/internal/infra/cache"
)

const DefaultBaseURL = "https://www.discogs.com"

// Event 描述一次 Fetch 的结果（命中缓存或走网络）。
type Event struct {
	Path  string
	Key   string
	Hit   bool
	Bytes int
	Dur   time.Duration
}

// Fetcher 是带缓存的页面抓取器：先查 Store，未命中再 GET 一次并原样写回。
//
// 约束：
// - 命中时不做任何网络请求，也不做新鲜度校验
// - Store 只读时，未命中直接失败（stage=store），同样不做网络请求
// - 不重试（重试策略只能由 Client 的 Transport 决定）
type Fetcher struct {
	BaseURL string
	Client  *http.Client
	Store   cache.Store

	// OnFetch 可选；并发调用，实现必须并发安全。
	OnFetch func(Event)
}

// Fetch 返回 path 对应页面的原始字节，key 是缓存键。
func (f *Fetcher) Fetch(ctx context.Context, path, key string) ([]byte, error) {
	if f.Store == nil {
		return nil, errors.New("fetch: store 不能为空")
	}
	started := time.Now()

	b, ok, err := f.Store.Get(ctx, key)
	if err != nil {
		return nil, &Error{Path: path, Stage: "cache", Err: err}
	}
	if ok {
		f.emit(Event{Path: path, Key: key, Hit: true, Bytes: len(b), Dur: time.Since(started)})
		return b, nil
	}

	if cache.IsReadOnly(f.Store) {
		return nil, &Error{Path: path, Stage: "store", Err: fmt.Errorf("缓存未命中：%w", cache.ErrReadOnly)}
	}

	b, err = f.get(ctx, f.URL(path))
	if err != nil {
		return nil, &Error{Path: path, Stage: "http", Err: err}
	}
	if err := f.Store.Put(ctx, key, b); err != nil {
		return nil, &Error{Path: path, Stage: "store", Err: err}
	}
	f.emit(Event{Path: path, Key: key, Hit: false, Bytes: len(b), Dur: time.Since(started)})
	return b, nil
}

// URL 把站内相对路径拼到 BaseURL 之后（不做任何转义/规范化）。
func (f *Fetcher) URL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(f.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + path
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func (f *Fetcher) emit(ev Event) {
	if f.OnFetch != nil {
		f.OnFetch(ev)
	}
}

// ArtistKey 是艺人页的缓存键：整条搜索路径（嵌套目录由 Store 负责）。
func ArtistKey(searchPath string) string {
	return strings.TrimPrefix(strings.TrimSpace(searchPath), "/")
}

// ReleaseKey 是发行页的缓存键：路径的第二段（/release/<id> 中的 <id>）。
func ReleaseKey(releasePath string) (string, error) {
	segs := strings.Split(releasePath, "/")
	if len(segs) < 3 || segs[2] == "" {
		return "", fmt.Errorf("非法发行路径：%q", releasePath)
	}
	return segs[2], nil
}
