package cache

import (
	"context"
	"sync"
)

// MemStore 是进程内缓存（测试替身；也可通过 cache.backend=memory 在一次运行内去重）。
type MemStore struct {
	mu sync.Mutex
	m  map[string][]byte

	gets int
	puts int
}

func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]byte)}
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	b, ok := s.m[k]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (s *MemStore) Put(_ context.Context, key string, b []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.m[k] = append([]byte(nil), b...)
	return nil
}

// Stats 返回 Get/Put 调用次数。
func (s *MemStore) Stats() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}
