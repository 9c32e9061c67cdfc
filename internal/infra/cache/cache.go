package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/discogs-digest/internal/infra/fsx"
)

// Store 是原始页面的 key-value 缓存。
//
// 约束：
// - 只有“存在/不存在”两种状态：没有 TTL，没有失效
// - Get 未命中返回 ok=false 且 err=nil；err 只表示后端故障
// - Put 写入原始字节，不做任何改写
type Store interface {
	Get(ctx context.Context, key string) (b []byte, ok bool, err error)
	Put(ctx context.Context, key string, b []byte) error
}

var ErrReadOnly = errors.New("cache: read-only")

// IsReadOnly 报告 s 是否只回放已有缓存（cache.read_only）。只读时未命中即失败，不走网络。
func IsReadOnly(s Store) bool {
	switch fs := s.(type) {
	case FileStore:
		return fs.ReadOnly
	case *FileStore:
		return fs != nil && fs.ReadOnly
	default:
		return false
	}
}

// FileStore 把每个 key 存为 <Root>/<key> 一个文件（key 中的 '/' 形成子目录）。
type FileStore struct {
	Root     string
	ReadOnly bool
}

func NewFileStore(root string, readOnly bool) FileStore {
	return FileStore{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// Path 返回 key 对应的缓存文件路径。
func (s FileStore) Path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(k)), nil
}

func (s FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s FileStore) Put(_ context.Context, key string, b []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, b)
}

// cleanKey 规范化 key 并拒绝路径穿越（key 可能来自页面上的 href）。
func cleanKey(key string) (string, error) {
	k := strings.Trim(strings.TrimSpace(key), "/")
	if k == "" {
		return "", fmt.Errorf("cache key 不能为空")
	}
	for _, seg := range strings.Split(k, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("非法 cache key：%q", key)
		}
	}
	return k, nil
}
