package feature

import "context"

// Source 是外部特征库的抓取接口：按实体名批量取回特征向量，
// 组装为带行名矩阵。ext/feast 提供基于 Feast 在线存储的实现。
type Source interface {
	// Fetch 为每个实体名取回一行特征，返回带行名矩阵。
	Fetch(ctx context.Context, entityNames []string) (LabeledMatrix, error)
	// Name 返回特征来源名，用于报表与错误提示。
	Name() string
	Close() error
}
