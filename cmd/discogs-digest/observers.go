package main

import (
	"log/slog"
	"time"

	"github.com/John-Robertt/discogs-digest/internal/app/digest"
	"github.com/John-Robertt/discogs-digest/internal/config"
	"github.com/John-Robertt/discogs-digest/internal/metrics"
)

var (
	_ digest.Observer = metricsObserver{}
	_ digest.Observer = logObserver{}
)

type metricsObserver struct{ c *metrics.Collector }

func (metricsObserver) OnStart(config.EffectiveConfig)                    {}
func (metricsObserver) OnPhaseDone(string, map[string]any, time.Duration) {}

func (o metricsObserver) OnItemDone(_, _ int, _ string, err error, _ time.Duration) {
	o.c.ObserveRelease(err == nil)
}

// logObserver 在非交互环境下把进度写成结构化日志。
type logObserver struct{ l *slog.Logger }

func (o logObserver) OnStart(eff config.EffectiveConfig) {
	o.l.Info("开始", "artist", eff.ArtistPath, "base_url", eff.BaseURL, "cache", eff.CacheBackend, "max_releases", eff.MaxReleases)
}

func (o logObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	attrs := make([]any, 0, 2*len(fields)+4)
	attrs = append(attrs, "phase", name)
	for _, k := range sortedKeys(fields) {
		attrs = append(attrs, k, fields[k])
	}
	attrs = append(attrs, "dur", dur.Round(time.Millisecond))
	o.l.Info("阶段完成", attrs...)
}

func (o logObserver) OnItemDone(idx, total int, path string, err error, dur time.Duration) {
	if err != nil {
		o.l.Warn("发行失败", "n", idx, "total", total, "path", path, "err", err, "dur", dur.Round(time.Millisecond))
		return
	}
	o.l.Info("发行完成", "n", idx, "total", total, "path", path, "dur", dur.Round(time.Millisecond))
}
