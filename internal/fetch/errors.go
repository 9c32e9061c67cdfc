package fetch

import (
	"fmt"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// Error 是抓取阶段的可追溯错误（网络失败、非 2xx、缓存读写失败）。
type Error struct {
	Path  string
	Stage string // "cache" / "http" / "store"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch path=%s stage=%s: %v", e.Path, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
