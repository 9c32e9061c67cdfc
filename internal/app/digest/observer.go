package digest

import (
	"time"

	"github.com/John-Robertt/discogs-digest/internal/config"
)

// Observer 把运行进度从核心流程中解耦出来。
//
// 约束：
// - digest 包只发事件，不做任何输出
// - OnItemDone 来自多个 goroutine，实现必须并发安全
type Observer interface {
	// OnStart 在抓取艺人页之前调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用："artist"（found/selected）与 "write"（path/bytes）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在单个发行处理结束时调用（err 非 nil 表示该发行失败）。
	OnItemDone(idx, total int, path string, err error, dur time.Duration)
}

// Observers 把多个 Observer 合并为一个（按顺序分发）。
type Observers []Observer

func (obs Observers) OnStart(eff config.EffectiveConfig) {
	for _, o := range obs {
		o.OnStart(eff)
	}
}

func (obs Observers) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	for _, o := range obs {
		o.OnPhaseDone(name, fields, dur)
	}
}

func (obs Observers) OnItemDone(idx, total int, path string, err error, dur time.Duration) {
	for _, o := range obs {
		o.OnItemDone(idx, total, path, err, dur)
	}
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig)                     {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration)  {}
func (nopObserver) OnItemDone(int, int, string, error, time.Duration) {}
