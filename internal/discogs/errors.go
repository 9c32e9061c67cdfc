package discogs

import (
	"errors"
	"fmt"
)

// ErrInvalid 是所有“必填节点缺失”的统一错误，便于上层用 errors.Is 判断。
var ErrInvalid = errors.New("invalid")

// ExtractionError 表示发行页缺少必填节点（标题/艺人/视频的图片或标题）。
// 任何一个字段缺失都会让整个发行（进而整次运行）失败，不做部分输出。
type ExtractionError struct {
	Path  string
	Field string // "heading" / "artist" / "video.img" / "video.title" / "video.id"
	Index int    // 仅 video.* 有意义：第几个视频（从 0 开始）
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return ErrInvalid.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("release %s: %v", e.Path, ErrInvalid)
	}
	return fmt.Sprintf("release %s: %s: %v", e.Path, e.Field, ErrInvalid)
}

func (e *ExtractionError) Unwrap() error { return ErrInvalid }
