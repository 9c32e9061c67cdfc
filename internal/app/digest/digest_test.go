package digest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/discogs-digest/internal/config"
	"github.com/John-Robertt/discogs-digest/internal/discogs"
	"github.com/John-Robertt/discogs-digest/internal/fetch"
	"github.com/John-Robertt/discogs-digest/internal/infra/cache"
)

// site 是一个最小的站点替身：/artist/a 列出 n 个发行，每个发行页带一个曲目。
type site struct {
	n       int
	broken  map[int]bool // 这些发行页缺少 h1
	videos  map[int]bool // 这些发行页带一个视频
	delay   map[int]time.Duration
	hits    int32
	reqLock sync.Mutex
	reqs    []string
}

func (s *site) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.hits, 1)
		s.reqLock.Lock()
		s.reqs = append(s.reqs, r.URL.Path)
		s.reqLock.Unlock()

		if r.URL.Path == "/artist/a" {
			var b strings.Builder
			b.WriteString("<html><body><table><tbody>")
			for i := 1; i <= s.n; i++ {
				fmt.Fprintf(&b, `<tr class="main"><td class="title"><a href="/release/%d-R">R%d</a></td></tr>`, i, i)
			}
			b.WriteString("</tbody></table></body></html>")
			_, _ = w.Write([]byte(b.String()))
			return
		}

		var i int
		if _, err := fmt.Sscanf(r.URL.Path, "/release/%d-R", &i); err != nil {
			http.NotFound(w, r)
			return
		}
		if d := s.delay[i]; d > 0 {
			time.Sleep(d)
		}
		if s.broken[i] {
			_, _ = w.Write([]byte(`<html><body><p>nothing</p></body></html>`))
			return
		}
		video := ""
		if s.videos[i] {
			video = fmt.Sprintf(`<div id="release-videos"><div><ul><li><button><img src="https://i.ytimg.com/vi/VID%d/default.jpg"><div>v%d</div></button></li></ul></div></div>`, i, i)
		}
		fmt.Fprintf(w, `<html><body><h1><span><a>Artist</a></span> – Album %d</h1>
<div id="release-tracklist"><div><table><tbody><tr><td>1</td><td></td><td><span>Track %d</span></td></tr></tbody></table></div></div>
%s</body></html>`, i, i, video)
	})
}

func newEnv(t *testing.T, s *site) (config.EffectiveConfig, *fetch.Fetcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(s.handler())
	t.Cleanup(srv.Close)

	root := t.TempDir()
	eff := config.EffectiveConfig{
		ArtistPath:  "/artist/a",
		BaseURL:     srv.URL,
		CacheDir:    filepath.Join(root, "cache"),
		OutDir:      filepath.Join(root, "out"),
		MaxReleases: 5,
	}
	f := &fetch.Fetcher{
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Store:   cache.NewFileStore(eff.CacheDir, false),
	}
	return eff, f, srv
}

func TestExecute_TakesFirstFiveInOrder(t *testing.T) {
	s := &site{n: 7, videos: map[int]bool{2: true}, delay: map[int]time.Duration{1: 50 * time.Millisecond}}
	eff, f, _ := newEnv(t, s)

	d, err := Execute(context.Background(), eff, f, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(d.Releases) != 5 {
		t.Fatalf("期望处理 5 个发行，实际 %d", len(d.Releases))
	}
	for i, r := range d.Releases {
		want := fmt.Sprintf("/release/%d-R", i+1)
		if r.SourcePath != want {
			t.Fatalf("第 %d 个发行期望 %s，实际 %s", i, want, r.SourcePath)
		}
	}

	b, err := os.ReadFile(filepath.Join(eff.OutDir, "artist", "a.html"))
	if err != nil {
		t.Fatalf("读取输出失败：%v", err)
	}
	doc := string(b)
	if !reflect.DeepEqual([]byte(doc), d.Document) {
		t.Fatalf("返回的 Document 与落盘内容不一致")
	}
	last := -1
	for i := 1; i <= 5; i++ {
		idx := strings.Index(doc, fmt.Sprintf("Album %d</a>", i))
		if idx < 0 || idx < last {
			t.Fatalf("Album %d 缺失或顺序错误", i)
		}
		last = idx
	}
	if strings.Contains(doc, "Album 6") || strings.Contains(doc, "Album 7") {
		t.Fatalf("不应处理第 6/7 个发行")
	}
	if strings.Count(doc, "No videos found.") != 4 || !strings.Contains(doc, "https://www.youtube.com/embed/VID2") {
		t.Fatalf("视频/提示渲染不符合预期：\n%s", doc)
	}

	// 缓存：艺人页用完整路径，发行页用第二段。
	for _, p := range []string{filepath.Join("artist", "a"), "1-R", "5-R"} {
		if _, err := os.Stat(filepath.Join(eff.CacheDir, p)); err != nil {
			t.Fatalf("期望缓存文件 %s 存在：%v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(eff.CacheDir, "6-R")); !os.IsNotExist(err) {
		t.Fatalf("第 6 个发行不应被抓取")
	}
}

func TestExecute_FewerThanFive(t *testing.T) {
	s := &site{n: 3}
	eff, f, _ := newEnv(t, s)

	d, err := Execute(context.Background(), eff, f, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(d.Releases) != 3 {
		t.Fatalf("期望 3 个发行，实际 %d", len(d.Releases))
	}
}

func TestExecute_WarmCacheNoNetwork(t *testing.T) {
	s := &site{n: 2}
	eff, f, srv := newEnv(t, s)

	first, err := Execute(context.Background(), eff, f, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	hits := atomic.LoadInt32(&s.hits)
	srv.Close()

	second, err := Execute(context.Background(), eff, f, nil)
	if err != nil {
		t.Fatalf("热缓存不应访问网络：%v", err)
	}
	if atomic.LoadInt32(&s.hits) != hits {
		t.Fatalf("热缓存时出现了网络请求")
	}
	if string(first.Document) != string(second.Document) {
		t.Fatalf("两次运行输出应逐字节一致")
	}
}

func TestExecute_OneFailureNoOutput(t *testing.T) {
	s := &site{n: 5, broken: map[int]bool{3: true}}
	eff, f, _ := newEnv(t, s)

	_, err := Execute(context.Background(), eff, f, nil)
	if !errors.Is(err, discogs.ErrInvalid) {
		t.Fatalf("期望 ErrInvalid，实际 %v", err)
	}
	if !strings.Contains(err.Error(), "/release/3-R") {
		t.Fatalf("错误信息应包含失败的发行路径：%v", err)
	}
	if _, err := os.Stat(eff.OutPath()); !os.IsNotExist(err) {
		t.Fatalf("失败时不应写出输出文件，Stat err=%v", err)
	}
}

func TestExecute_ArtistFetchFailure(t *testing.T) {
	s := &site{n: 1}
	eff, f, _ := newEnv(t, s)
	eff.ArtistPath = "/artist/missing"

	_, err := Execute(context.Background(), eff, f, nil)
	var hs *fetch.HTTPStatusError
	if !errors.As(err, &hs) || hs.StatusCode != http.StatusNotFound {
		t.Fatalf("期望 HTTP 404，实际 %v", err)
	}
	if _, err := os.Stat(eff.OutDir); !os.IsNotExist(err) {
		t.Fatalf("失败时不应创建输出目录")
	}
}

type recordObserver struct {
	mu     sync.Mutex
	starts int
	phases []string
	items  []string
	fails  int
}

func (o *recordObserver) OnStart(config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnItemDone(idx, total int, path string, err error, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, path)
	if err != nil {
		o.fails++
	}
}

func TestExecute_EmitsEvents(t *testing.T) {
	s := &site{n: 2}
	eff, f, _ := newEnv(t, s)

	a, b := &recordObserver{}, &recordObserver{}
	if _, err := Execute(context.Background(), eff, f, Observers{a, b}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, o := range []*recordObserver{a, b} {
		if o.starts != 1 {
			t.Fatalf("期望 1 次 OnStart，实际 %d", o.starts)
		}
		if !reflect.DeepEqual(o.phases, []string{"artist", "write"}) {
			t.Fatalf("阶段事件不符合预期：%v", o.phases)
		}
		if len(o.items) != 2 || o.fails != 0 {
			t.Fatalf("条目事件不符合预期：%v fails=%d", o.items, o.fails)
		}
	}
}

func TestSelectReleases(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e", "f"}
	if got := SelectReleases(paths, 5); !reflect.DeepEqual(got, paths[:5]) {
		t.Fatalf("期望前 5 个，实际 %v", got)
	}
	if got := SelectReleases(paths, 99); len(got) != 5 {
		t.Fatalf("硬上限应为 5，实际 %d", len(got))
	}
	if got := SelectReleases(paths, 2); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("期望前 2 个，实际 %v", got)
	}
	if got := SelectReleases(nil, 5); len(got) != 0 {
		t.Fatalf("空输入应返回空，实际 %v", got)
	}
}
