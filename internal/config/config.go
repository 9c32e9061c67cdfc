package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/discogs-digest/internal/domain"
	"github.com/John-Robertt/discogs-digest/internal/fetch"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingArtist 表示 CLI 与配置文件都没有给出艺人路径。
	ErrCodeMissingArtist = "config_missing_artist"
	// ErrCodeInvalidArtist 表示艺人路径不合法；Path 为空表示来自命令行参数。
	ErrCodeInvalidArtist = "config_invalid_artist"
)

// FileName 是 cwd 下可选配置文件的固定文件名。
const FileName = "discogs-digest.json"

const (
	DefaultCacheDir = "cache"
	DefaultOutDir   = "out"

	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// CLIArgs 是命令行唯一的输入：艺人搜索路径（可为空，回退到配置文件）。
type CLIArgs struct {
	ArtistPath string
}

// FileConfig 对应 discogs-digest.json 的解析结构。所有字段可选。
type FileConfig struct {
	Artist          string       `json:"artist"`
	BaseURL         string       `json:"base_url"`
	CacheDir        string       `json:"cache_dir"`
	OutDir          string       `json:"out_dir"`
	MaxReleases     int          `json:"max_releases"`
	Proxy           *ProxyConfig `json:"proxy"`
	RetryMax        int          `json:"retry_max"`
	TimeoutSeconds  int          `json:"timeout_seconds"`
	Cache           *CacheConfig `json:"cache"`
	MetricsTextfile string       `json:"metrics_textfile"`
	LogLevel        string       `json:"log_level"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type CacheConfig struct {
	Backend     string `json:"backend"`
	RedisAddr   string `json:"redis_addr"`
	RedisDB     int    `json:"redis_db"`
	RedisPrefix string `json:"redis_prefix"`
	ReadOnly    bool   `json:"read_only"`
}

// EffectiveConfig 是合并并规范化后的最终配置（下游直接消费，不再做默认值判断）。
type EffectiveConfig struct {
	ArtistPath string
	BaseURL    string

	CacheDir string
	OutDir   string

	MaxReleases int

	ProxyURL string
	RetryMax int
	Timeout  time.Duration

	CacheBackend  string
	CacheReadOnly bool
	RedisAddr     string
	RedisDB       int
	RedisPrefix   string

	MetricsTextfile string
	LogLevel        slog.Level
}

// OutPath 返回 digest 文件路径：<out>/<artist path>.html。
func (c EffectiveConfig) OutPath() string {
	return filepath.Join(c.OutDir, filepath.FromSlash(fetch.ArtistKey(c.ArtistPath))+".html")
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingArtist:
		return fmt.Sprintf("%s：缺少艺人路径（命令行参数或 %s 的 artist 字段）", e.Code, FileName)
	case ErrCodeInvalidArtist:
		if e.Path == "" {
			return fmt.Sprintf("%s：命令行参数中的艺人路径无效：%v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 的 artist 无效：%v", e.Code, e.Path, e.Err)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <cwd>/discogs-digest.json（可选）并与 CLI 参数合并。
//
// 覆盖优先级：
// - artist：CLI > config
// - 其他字段：仅由 config 控制；缺省值见 Default* 常量
// - 相对目录以 cwd 为基准
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	cfgPath := filepath.Join(cwdAbs, FileName)

	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(fc.BaseURL), "/")
	if baseURL == "" {
		baseURL = fetch.DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return EffectiveConfig{}, invalid("base_url 必须是 http/https 地址：%q", fc.BaseURL)
	}

	artist := strings.TrimSpace(cli.ArtistPath)
	artistSrc := ""
	if artist == "" {
		artist = strings.TrimSpace(fc.Artist)
		artistSrc = cfgPath
	}
	if artist == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingArtist, Path: cfgPath}
	}
	badArtist := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalidArtist, Path: artistSrc, Err: fmt.Errorf(format, args...)}
	}
	// 允许直接粘贴完整地址：去掉站点前缀后按站内路径处理。
	artist = strings.TrimPrefix(artist, baseURL)
	if !strings.HasPrefix(artist, "/") || fetch.ArtistKey(artist) == "" {
		return EffectiveConfig{}, badArtist("必须是以 / 开头的站内路径，实际是 %q", artist)
	}
	for _, seg := range strings.Split(fetch.ArtistKey(artist), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return EffectiveConfig{}, badArtist("含有空段或 . / ..：%q", artist)
		}
	}

	// 硬上限 5：配置只能调低。
	maxReleases := fc.MaxReleases
	if maxReleases <= 0 || maxReleases > domain.MaxReleases {
		maxReleases = domain.MaxReleases
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
	}
	if fc.RetryMax < 0 {
		return EffectiveConfig{}, invalid("retry_max 不能为负数：%d", fc.RetryMax)
	}
	if fc.TimeoutSeconds < 0 {
		return EffectiveConfig{}, invalid("timeout_seconds 不能为负数：%d", fc.TimeoutSeconds)
	}

	backend := BackendFile
	var cc CacheConfig
	if fc.Cache != nil {
		cc = *fc.Cache
		if b := strings.ToLower(strings.TrimSpace(cc.Backend)); b != "" {
			backend = b
		}
	}
	switch backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cc.RedisAddr) == "" {
			return EffectiveConfig{}, invalid("cache.backend=redis 但 cache.redis_addr 为空")
		}
	default:
		return EffectiveConfig{}, invalid("cache.backend 只能是 file/memory/redis，实际是 %q", backend)
	}
	if cc.ReadOnly && backend != BackendFile {
		return EffectiveConfig{}, invalid("cache.read_only 只支持 file 后端，实际是 %q", backend)
	}

	level, err := parseLevel(fc.LogLevel)
	if err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}

	metrics := strings.TrimSpace(fc.MetricsTextfile)
	if metrics != "" {
		metrics = absCleanFrom(cwdAbs, metrics)
	}

	return EffectiveConfig{
		ArtistPath:      artist,
		BaseURL:         baseURL,
		CacheDir:        absCleanFrom(cwdAbs, orDefault(fc.CacheDir, DefaultCacheDir)),
		OutDir:          absCleanFrom(cwdAbs, orDefault(fc.OutDir, DefaultOutDir)),
		MaxReleases:     maxReleases,
		ProxyURL:        proxyURL,
		RetryMax:        fc.RetryMax,
		Timeout:         time.Duration(fc.TimeoutSeconds) * time.Second,
		CacheBackend:    backend,
		CacheReadOnly:   cc.ReadOnly,
		RedisAddr:       strings.TrimSpace(cc.RedisAddr),
		RedisDB:         cc.RedisDB,
		RedisPrefix:     strings.TrimSpace(cc.RedisPrefix),
		MetricsTextfile: metrics,
		LogLevel:        level,
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level 无效：%q", s)
	}
	return l, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件；文件不存在不算错误。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
