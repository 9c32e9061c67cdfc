package discogs

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/discogs-digest/internal/domain"
	"github.com/John-Robertt/discogs-digest/internal/fetch"
)

const (
	selHeading   = "h1"
	selArtist    = "h1 > span > a"
	selTracklist = "#release-tracklist > div > table > tbody > tr > td:nth-child(3) > span"
	selVideos    = "#release-videos > div > ul > li > button"
)

// Fetcher 是 Release/Artist 依赖的最小抓取接口（由 *fetch.Fetcher 实现）。
type Fetcher interface {
	Fetch(ctx context.Context, path, key string) ([]byte, error)
	URL(path string) string
}

var _ Fetcher = (*fetch.Fetcher)(nil)

// Extract 抓取并解析一个发行页。缓存键为路径第二段。
func Extract(ctx context.Context, f Fetcher, path string) (domain.ReleaseSummary, error) {
	key, err := fetch.ReleaseKey(path)
	if err != nil {
		return domain.ReleaseSummary{}, err
	}
	html, err := f.Fetch(ctx, path, key)
	if err != nil {
		return domain.ReleaseSummary{}, err
	}
	return ParseRelease(html, path, f.URL(path))
}

// releaseFields 是“原样”抓出的字段：指针为 nil 表示节点缺失。
// 解析阶段不做任何判断，统一交给 validate。
type releaseFields struct {
	heading *string
	artist  *string
	tracks  []string
	videos  []videoFields
}

type videoFields struct {
	src   *string
	title *string
}

// ParseRelease 把发行页 HTML 解析为 ReleaseSummary（纯函数：相同输入 => 相同输出）。
func ParseRelease(html []byte, path, sourceURL string) (domain.ReleaseSummary, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.ReleaseSummary{}, err
	}
	return scanRelease(doc).validate(path, sourceURL)
}

func scanRelease(doc *goquery.Document) releaseFields {
	var rf releaseFields

	if h := doc.Find(selHeading).First(); h.Length() > 0 {
		s := normSpace(h.Text())
		rf.heading = &s
	}
	if a := doc.Find(selArtist).First(); a.Length() > 0 {
		s := normSpace(a.Text())
		rf.artist = &s
	}

	doc.Find(selTracklist).Each(func(_ int, s *goquery.Selection) {
		rf.tracks = append(rf.tracks, normSpace(s.Text()))
	})

	doc.Find(selVideos).Each(func(_ int, s *goquery.Selection) {
		var vf videoFields
		if src, ok := s.Find("img").First().Attr("src"); ok {
			vf.src = &src
		}
		if d := s.Find("div").First(); d.Length() > 0 {
			t := normSpace(d.Text())
			vf.title = &t
		}
		rf.videos = append(rf.videos, vf)
	})
	return rf
}

// validate 是唯一把“字段缺失”转换为 ExtractionError 的地方。
func (rf releaseFields) validate(path, sourceURL string) (domain.ReleaseSummary, error) {
	if rf.heading == nil {
		return domain.ReleaseSummary{}, &ExtractionError{Path: path, Field: "heading"}
	}
	if rf.artist == nil {
		return domain.ReleaseSummary{}, &ExtractionError{Path: path, Field: "artist"}
	}

	videos := make([]domain.Video, 0, len(rf.videos))
	for i, vf := range rf.videos {
		if vf.src == nil {
			return domain.ReleaseSummary{}, &ExtractionError{Path: path, Field: "video.img", Index: i}
		}
		if vf.title == nil {
			return domain.ReleaseSummary{}, &ExtractionError{Path: path, Field: "video.title", Index: i}
		}
		id, ok := VideoID(*vf.src)
		if !ok {
			return domain.ReleaseSummary{}, &ExtractionError{Path: path, Field: "video.id", Index: i}
		}
		videos = append(videos, domain.Video{ID: id, Title: *vf.title})
	}

	tracks := rf.tracks
	if tracks == nil {
		tracks = []string{}
	}
	return domain.ReleaseSummary{
		Title:      *rf.heading,
		Artist:     *rf.artist,
		SourcePath: path,
		SourceURL:  sourceURL,
		Tracklist:  tracks,
		Videos:     videos,
	}, nil
}

// VideoID 从 YouTube 缩略图地址中取出视频 ID：
// 按 "/vi/" 切分取第二段，再按 "/default.jpg" 切分取第一段。
// 没有 "/vi/" 时返回 ok=false。
func VideoID(src string) (string, bool) {
	parts := strings.Split(src, "/vi/")
	if len(parts) < 2 {
		return "", false
	}
	return strings.Split(parts[1], "/default.jpg")[0], true
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
