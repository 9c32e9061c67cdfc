package discogs

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

const selReleaseLinks = "tr.main > td.title > a"

// ParseArtist 从艺人页中按出现顺序取出所有发行链接（缺少 href 的链接记为空串）。
func ParseArtist(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, 16)
	doc.Find(selReleaseLinks).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out = append(out, href)
	})
	return out, nil
}
