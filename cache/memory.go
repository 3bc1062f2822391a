package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/rushteam/grapheval/core"
)

// MemoryStore 是进程内实现的缓存后端，基于 ristretto。
// 适合同一进程内时间内的反复评估（如网格搜索）；进程退出即失效。
type MemoryStore struct {
	cache *ristretto.Cache
}

func NewMemoryStore(maxCostBytes int64) (*MemoryStore, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 1 << 28
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create in-memory cache: %w", err)
	}
	return &MemoryStore{cache: c}, nil
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.cache.Get(key)
	if !ok {
		return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeNotFound, fmt.Sprintf("cache entry %q not found", key))
	}
	return val.([]byte), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, value, int64(len(value)))
	// ristretto 写入是异步的；评估循环依赖"写后立即可读"的语义。
	s.cache.Wait()
	return nil
}

func (s *MemoryStore) Close() {
	s.cache.Close()
}

var _ Store = (*MemoryStore)(nil)
