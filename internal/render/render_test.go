package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/John-Robertt/discogs-digest/internal/domain"
)

func TestFragment_NoVideos(t *testing.T) {
	b, err := Fragment(domain.ReleaseSummary{
		Title:     "Artist – Album",
		SourceURL: "https://www.discogs.com/release/1-One",
		Tracklist: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := `<h3>
  <a href="https://www.discogs.com/release/1-One">Artist – Album</a>
</h3>
<ul>
  <li>a</li>
  <li>b</li>
</ul>
<p>No videos found.</p>
`
	if string(b) != want {
		t.Fatalf("输出不符合预期：\n%s", b)
	}
	if strings.Contains(string(b), "<iframe") {
		t.Fatalf("无视频时不应输出 iframe")
	}
}

func TestFragment_VideosInOrder(t *testing.T) {
	b, err := Fragment(domain.ReleaseSummary{
		Title:     "T",
		SourceURL: "https://www.discogs.com/release/1",
		Videos:    []domain.Video{{ID: "ABC123", Title: "first"}, {ID: "DEF456", Title: "second"}},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	s := string(b)
	if strings.Contains(s, NoVideosNotice) {
		t.Fatalf("有视频时不应输出提示：%s", s)
	}
	if n := strings.Count(s, "<iframe"); n != 2 {
		t.Fatalf("期望 2 个 iframe，实际 %d", n)
	}
	i1 := strings.Index(s, EmbedURLPrefix+"ABC123")
	i2 := strings.Index(s, EmbedURLPrefix+"DEF456")
	if i1 < 0 || i2 < 0 || i1 > i2 {
		t.Fatalf("iframe 顺序或地址不符合预期：%s", s)
	}
	if !strings.Contains(s, "<ul>\n</ul>") {
		t.Fatalf("空 tracklist 应渲染为空列表：%s", s)
	}
}

func TestFragment_EscapesText(t *testing.T) {
	b, err := Fragment(domain.ReleaseSummary{
		Title:     "<script>x</script>",
		SourceURL: "https://www.discogs.com/release/1",
		Tracklist: []string{"A & B"},
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	s := string(b)
	if strings.Contains(s, "<script>") || !strings.Contains(s, "A &amp; B") {
		t.Fatalf("文本未转义：%s", s)
	}
}

func TestFragment_Deterministic(t *testing.T) {
	s := domain.ReleaseSummary{
		Title:     "T",
		SourceURL: "https://www.discogs.com/release/1",
		Tracklist: []string{"x"},
		Videos:    []domain.Video{{ID: "V1", Title: "v"}},
	}
	a, _ := Fragment(s)
	b, _ := Fragment(s)
	if !bytes.Equal(a, b) {
		t.Fatalf("相同输入应得到相同输出")
	}
}

func TestDocument_ConcatInOrder(t *testing.T) {
	b, err := Document([][]byte{[]byte("<h3>1</h3>\n"), []byte("<h3>2</h3>\n")})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := "<html>\n<head></head>\n<body>\n<h3>1</h3>\n<h3>2</h3>\n</body>\n</html>\n"
	if string(b) != want {
		t.Fatalf("输出不符合预期：%q", b)
	}
}
