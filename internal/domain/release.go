package domain

// Video 是发行页 videos 区块中的一条视频（YouTube）。
type Video struct {
	ID    string
	Title string
}

// ReleaseSummary 是从单个发行页解析出的结构化摘要（只在内存中存在，渲染后即丢弃）。
//
// 约束：
// - Title/Artist 对应节点必须存在（缺失即解析失败；文本可以为空）
// - Tracklist/Videos 允许为空，但顺序与页面一致
type ReleaseSummary struct {
	Title      string
	Artist     string
	SourcePath string
	SourceURL  string

	Tracklist []string
	Videos    []Video
}

// MaxReleases 是单次运行最多处理的发行数量（硬上限，配置只能调低）。
const MaxReleases = 5
