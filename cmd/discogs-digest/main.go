package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/redis/go-redis/v9"

	"github.com/John-Robertt/discogs-digest/internal/app/digest"
	"github.com/John-Robertt/discogs-digest/internal/config"
	"github.com/John-Robertt/discogs-digest/internal/fetch"
	"github.com/John-Robertt/discogs-digest/internal/infra/cache"
	"github.com/John-Robertt/discogs-digest/internal/infra/httpx"
	"github.com/John-Robertt/discogs-digest/internal/infra/logx"
	"github.com/John-Robertt/discogs-digest/internal/metrics"
)

type cliArgs struct {
	ArtistPath string `arg:"positional" placeholder:"ARTIST_PATH" help:"艺人搜索路径，例如 /artist/12345-Some-Artist（缺省时读取 discogs-digest.json 的 artist）"`
}

func (cliArgs) Description() string {
	return "抓取艺人页上的前 5 个发行，生成单个 HTML digest（写入 out/<artist path>.html）。\n"
}

func main() {
	if code := runCmd(os.Args[1:]); code != 0 {
		os.Exit(code)
	}
}

func runCmd(args []string) int {
	var ca cliArgs
	p, err := arg.NewParser(arg.Config{Program: "discogs-digest"}, &ca)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化参数解析失败：%v\n", err)
		return 1
	}
	if err := p.Parse(args); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			p.WriteHelp(os.Stdout)
			return 0
		}
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		p.WriteUsage(os.Stderr)
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, config.CLIArgs{ArtistPath: ca.ArtistPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if config.Code(err) == config.ErrCodeMissingArtist {
			p.WriteUsage(os.Stderr)
		}
		return 1
	}

	logger := logx.Init(os.Stderr, eff.LogLevel)

	store, closeStore, err := openStore(eff)
	if err != nil {
		logger.Error("初始化缓存失败", "backend", eff.CacheBackend, "err", err)
		return 1
	}
	defer closeStore()

	client, err := httpx.NewClient(httpx.Options{
		ProxyURL: eff.ProxyURL,
		RetryMax: eff.RetryMax,
		Timeout:  eff.Timeout,
	})
	if err != nil {
		logger.Error("初始化 HTTP client 失败", "err", err)
		return 1
	}

	collector := metrics.New()
	f := &fetch.Fetcher{
		BaseURL: eff.BaseURL,
		Client:  client,
		Store:   store,
		OnFetch: func(ev fetch.Event) {
			collector.ObserveFetch(ev)
			logger.Debug("page", "path", ev.Path, "key", ev.Key, "cache", cacheResult(ev.Hit),
				"size", humanize.Bytes(uint64(ev.Bytes)), "dur", ev.Dur.Round(time.Millisecond))
		},
	}

	obs := digest.Observers{metricsObserver{c: collector}}
	if w, ok := pickProgressWriter(); ok {
		obs = append(obs, newProgressUI(w))
	} else {
		obs = append(obs, logObserver{l: logger})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	d, runErr := digest.Execute(ctx, eff, f, obs)
	collector.ObserveRun(time.Since(started).Seconds(), runErr == nil)

	if eff.MetricsTextfile != "" {
		if err := writeMetrics(collector, eff.MetricsTextfile); err != nil {
			logger.Warn("写入 metrics textfile 失败", "path", eff.MetricsTextfile, "err", err)
		}
	}

	if runErr != nil {
		logger.Error("运行失败", "artist", eff.ArtistPath, "err", runErr)
		return 1
	}
	logger.Info("digest 已生成",
		"out", d.OutPath,
		"releases", len(d.Releases),
		"size", humanize.Bytes(uint64(len(d.Document))),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return 0
}

// openStore 按 cache.backend 构造页面缓存；返回的 close 函数总是非 nil。
func openStore(eff config.EffectiveConfig) (cache.Store, func(), error) {
	switch eff.CacheBackend {
	case config.BackendMemory:
		return cache.NewMemStore(), func() {}, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: eff.RedisAddr, DB: eff.RedisDB})
		s := cache.NewRedisStore(rdb, eff.RedisPrefix)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			_ = s.Close()
			return nil, func() {}, fmt.Errorf("连接 redis %s 失败：%w", eff.RedisAddr, err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return cache.NewFileStore(eff.CacheDir, eff.CacheReadOnly), func() {}, nil
	}
}

func writeMetrics(c *metrics.Collector, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return c.WriteTextfile(path)
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 仅重定向 stderr 时 stdout 可能仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
