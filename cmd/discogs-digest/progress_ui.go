package main

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/John-Robertt/discogs-digest/internal/app/digest"
	"github.com/John-Robertt/discogs-digest/internal/config"
)

var _ digest.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// - 只写 w（通常是 stderr）
// - 事件驱动：digest 层只发事件，CLI 决定如何展示
// - keepalive：发行页迟迟不返回时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] discogs-digest %s\n", now.Format("15:04:05"), eff.ArtistPath)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  base_url: %s\n", truncate(eff.BaseURL, 120))
	fmt.Fprintf(p.w, "  max_releases: %d\n", eff.MaxReleases)
	fmt.Fprintf(p.w, "  cache: %s\n", formatCache(eff))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  retry_max: %d\n", eff.RetryMax)
	fmt.Fprintf(p.w, "  timeout: %s\n", formatTimeout(eff.Timeout))
	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  out: %s\n", eff.OutPath())
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "artist":
		p.total = intField(fields, "selected")
		fmt.Fprintf(p.w, "艺人页: found=%d selected=%d (%s)\n\n",
			intField(fields, "found"), p.total, formatShortDuration(dur),
		)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	case "write":
		p.stopTickerLocked()
		path, _ := fields["path"].(string)
		fmt.Fprintf(p.w, "\n写入: %s size=%s (%s) 总耗时 %s\n",
			path, humanize.Bytes(uint64(intField(fields, "bytes"))), formatShortDuration(dur),
			formatElapsed(time.Since(p.startedAt)),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, path string, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.total = total
	if err != nil {
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s: %s (%s)\n",
			idx, total, path, truncate(err.Error(), 160), formatShortDuration(dur),
		)
	} else {
		p.ok++
		fmt.Fprintf(p.w, "[%d/%d] OK %s (%s)\n", idx, total, path, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()

	// 失败即整体失败，不会再有 write 阶段。
	if err != nil || p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	stop := p.stopCh
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done < p.total && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d active=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.total-p.done, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func formatCache(eff config.EffectiveConfig) string {
	switch eff.CacheBackend {
	case config.BackendRedis:
		if eff.RedisPrefix == "" {
			return fmt.Sprintf("redis (%s db=%d)", eff.RedisAddr, eff.RedisDB)
		}
		return fmt.Sprintf("redis (%s db=%d prefix=%s)", eff.RedisAddr, eff.RedisDB, eff.RedisPrefix)
	case config.BackendMemory:
		return "memory"
	default:
		if eff.CacheReadOnly {
			return "file (" + eff.CacheDir + ", read-only)"
		}
		return "file (" + eff.CacheDir + ")"
	}
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func formatTimeout(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}

// truncate 按字符（rune）截断，避免把中文错误信息切成非法 UTF-8。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
