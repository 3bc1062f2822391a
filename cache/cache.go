// Package cache 提供显式的内容寻址结果缓存。
//
// 缓存键是对"与结果语义相关"参数子集的规范化哈希：忽略集（冗长度、
// 冒烟测试标志、可由其他参数复现的大图对象）是调用方显式构造参数表
// 时的白名单，而非隐式装饰器配置。缓存纪律为"存在且启用则读，否则
// 计算后写"，不加锁：并发进程对同一键可能重复计算，或在非原子写入
// 时损坏半成品条目，这是已接受的限制。条目只建只读，从不更新。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/cespare/xxhash/v2"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/report"
)

// Store 是缓存后端的最小接口。
type Store interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key 计算参数表的内容哈希。
// encoding/json 对 map 键排序，同一参数表总是产出同一哈希；
// 调用方传入的参数表就是显式的"参与哈希"白名单。
func Key(args map[string]any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("canonicalize cache arguments: %w", err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw)), nil
}

// ArtifactPath 按 任务名/图名/holdout_N/[模型名/库名]/哈希 的层级拼出工件路径。
func ArtifactPath(hash string, elems ...string) string {
	return path.Join(append(append([]string{}, elems...), hash+".jsonl.gz")...)
}

// ReportCache 是面向报表的缓存层：读写 gzip JSON-lines 工件。
type ReportCache struct {
	store Store
}

// New 创建报表缓存；store 为 nil 时返回 nil，调用方以 nil 表示禁用。
func New(store Store) *ReportCache {
	if store == nil {
		return nil
	}
	return &ReportCache{store: store}
}

// Get 读取缓存的报表；条目不存在时第二个返回值为 false。
func (c *ReportCache) Get(ctx context.Context, artifact string) (report.Report, bool, error) {
	raw, err := c.store.Get(ctx, artifact)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache artifact %q from %s: %w", artifact, c.store.Name(), err)
	}
	decoded, err := report.Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode cache artifact %q: %w", artifact, err)
	}
	return decoded, true, nil
}

// Set 写入报表工件。
func (c *ReportCache) Set(ctx context.Context, artifact string, r report.Report) error {
	raw, err := report.Encode(r)
	if err != nil {
		return fmt.Errorf("encode cache artifact %q: %w", artifact, err)
	}
	if err := c.store.Set(ctx, artifact, raw); err != nil {
		return fmt.Errorf("write cache artifact %q to %s: %w", artifact, c.store.Name(), err)
	}
	return nil
}
