package digest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/discogs-digest/internal/config"
	"github.com/John-Robertt/discogs-digest/internal/discogs"
	"github.com/John-Robertt/discogs-digest/internal/domain"
	"github.com/John-Robertt/discogs-digest/internal/fetch"
	"github.com/John-Robertt/discogs-digest/internal/infra/fsx"
	"github.com/John-Robertt/discogs-digest/internal/render"
)

// Execute 生成一个艺人的 digest：艺人页 -> 至多 5 个发行页（并发）-> 单个 HTML 文件。
//
// 约束：
// - fail-fast：任一发行失败即取消其余请求并返回错误，不写任何输出
// - 文档内发行顺序 = 艺人页上的出现顺序（与完成顺序无关）
// - 输出文件原子写入：要么完整存在，要么不存在
func Execute(ctx context.Context, eff config.EffectiveConfig, f discogs.Fetcher, obs Observer) (domain.Digest, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	obs.OnStart(eff)

	artistStarted := time.Now()
	html, err := f.Fetch(ctx, eff.ArtistPath, fetch.ArtistKey(eff.ArtistPath))
	if err != nil {
		return domain.Digest{}, fmt.Errorf("抓取艺人页失败：%w", err)
	}
	paths, err := discogs.ParseArtist(html)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("解析艺人页失败：%w", err)
	}
	selected := SelectReleases(paths, eff.MaxReleases)
	obs.OnPhaseDone("artist", map[string]any{
		"found":    len(paths),
		"selected": len(selected),
	}, time.Since(artistStarted))

	summaries := make([]domain.ReleaseSummary, len(selected))
	fragments := make([][]byte, len(selected))

	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range selected {
		g.Go(func() error {
			oneStarted := time.Now()
			s, frag, err := buildRelease(gctx, f, p)
			obs.OnItemDone(int(done.Add(1)), len(selected), p, err, time.Since(oneStarted))
			if err != nil {
				return fmt.Errorf("发行 %q：%w", p, err)
			}
			// 按下标写入：每个 goroutine 只写自己的槽位。
			summaries[i] = s
			fragments[i] = frag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Digest{}, err
	}

	writeStarted := time.Now()
	doc, err := render.Document(fragments)
	if err != nil {
		return domain.Digest{}, fmt.Errorf("渲染文档失败：%w", err)
	}
	outPath := eff.OutPath()
	if err := fsx.WriteFile(outPath, doc); err != nil {
		return domain.Digest{}, fmt.Errorf("写入 digest 失败：%w", err)
	}
	obs.OnPhaseDone("write", map[string]any{
		"path":  outPath,
		"bytes": len(doc),
	}, time.Since(writeStarted))

	return domain.Digest{
		ArtistPath: eff.ArtistPath,
		OutPath:    outPath,
		Releases:   summaries,
		Document:   doc,
	}, nil
}

func buildRelease(ctx context.Context, f discogs.Fetcher, path string) (domain.ReleaseSummary, []byte, error) {
	s, err := discogs.Extract(ctx, f, path)
	if err != nil {
		return domain.ReleaseSummary{}, nil, err
	}
	frag, err := render.Fragment(s)
	if err != nil {
		return domain.ReleaseSummary{}, nil, err
	}
	return s, frag, nil
}

// SelectReleases 取前 n 个发行路径（n 超过硬上限时按硬上限处理）。
func SelectReleases(paths []string, n int) []string {
	if n <= 0 || n > domain.MaxReleases {
		n = domain.MaxReleases
	}
	if len(paths) < n {
		n = len(paths)
	}
	return append([]string(nil), paths[:n]...)
}
