package render

import (
	"bytes"
	"html/template"

	"github.com/John-Robertt/discogs-digest/internal/domain"
)

// EmbedURLPrefix 是视频 iframe 的固定地址前缀（后接视频 ID）。
const EmbedURLPrefix = "https://www.youtube.com/embed/"

const NoVideosNotice = "No videos found."

// 模板文本即输出格式；改动会改变生成的 digest 字节。
const fragmentTmpl = `<h3>
  <a href="{{.SourceURL}}">{{.Title}}</a>
</h3>
<ul>
{{range .Tracklist}}  <li>{{.}}</li>
{{end}}</ul>
{{if .Videos}}{{range .Videos}}<iframe src="https://www.youtube.com/embed/{{.ID}}" width="640" height="320" title="{{.Title}}"></iframe>
{{end}}{{else}}<p>` + NoVideosNotice + `</p>
{{end}}`

const documentTmpl = `<html>
<head></head>
<body>
{{range .}}{{.}}{{end}}</body>
</html>
`

var (
	fragmentT = template.Must(template.New("fragment").Parse(fragmentTmpl))
	documentT = template.Must(template.New("document").Parse(documentTmpl))
)

// Fragment 渲染单个发行的 HTML 片段：标题链接 + 曲目列表 + 视频（或“无视频”提示）。
// 纯函数：相同 summary => 相同字节。文本与属性值均做 HTML 转义。
func Fragment(s domain.ReleaseSummary) ([]byte, error) {
	var buf bytes.Buffer
	if err := fragmentT.Execute(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document 按给定顺序拼接片段，生成完整的 digest 文档（无 doctype、无样式）。
func Document(fragments [][]byte) ([]byte, error) {
	parts := make([]template.HTML, 0, len(fragments))
	for _, f := range fragments {
		// 片段均由 Fragment 生成，已完成转义。
		parts = append(parts, template.HTML(f))
	}
	var buf bytes.Buffer
	if err := documentT.Execute(&buf, parts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
