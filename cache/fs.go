package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rushteam/grapheval/core"
)

// FSStore 是文件系统实现的缓存后端：每个条目一个文件。
// 单机长跑实验最常用，工件可直接被外部工具读取。
// 写入非原子：并发进程写同一条目可能产生损坏文件，这是已接受的限制。
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeConfiguration, "cache root directory must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root %q: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Name() string { return "fs" }

func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.NewDomainError(core.ModuleCache, core.ErrorCodeNotFound, fmt.Sprintf("cache entry %q not found", key))
	}
	return raw, err
}

func (s *FSStore) Set(_ context.Context, key string, value []byte) error {
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, value, 0o644)
}

var _ Store = (*FSStore)(nil)
