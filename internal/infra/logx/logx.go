package logx

import (
	"io"
	"log/slog"
)

// Init 安装全局 slog logger（text 格式，写到 w，通常是 stderr）。
// stdout 不承载日志：digest 只写文件。
func Init(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("15:04:05"))
			}
			return a
		},
	})
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}
