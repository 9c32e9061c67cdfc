package domain

// Digest 是一次运行的最终产物：按艺人页出现顺序排列的发行摘要 + 渲染后的 HTML 文档。
type Digest struct {
	ArtistPath string
	OutPath    string

	Releases []ReleaseSummary
	Document []byte
}
