// Package feature 将多态的特征说明归一化为与图对齐的数值矩阵序列。
package feature

import (
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
)

// Kind 标记特征的对齐基数：行数分别对应节点数、节点类型数、有向边数。
type Kind int

const (
	KindNode Kind = iota
	KindNodeType
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindNodeType:
		return "node type"
	case KindEdge:
		return "edge"
	}
	return "unknown"
}

// Spec 是特征说明的封闭联合类型，四个变体：
// Matrix（裸数值矩阵）、LabeledMatrix(带行名矩阵)、
// Embedder（待拟合的嵌入模型实例）、Ref（注册表中的模型名）。
// 归一化器在边界处对变体做显式分派。
type Spec interface {
	spec()
}

// Matrix 是裸数值矩阵特征。行序无法校验，调用方需自行保证与图 ID 对齐。
type Matrix struct {
	Values *mat.Dense
}

func (Matrix) spec() {}

// LabeledMatrix 是带行名的矩阵特征，归一化时按图的规范名序重排。
type LabeledMatrix struct {
	Rows   []string
	Values *mat.Dense
}

func (LabeledMatrix) spec() {}

// Embedder 是待拟合的嵌入模型特征。
// 归一化器可能选择延迟计算并原样交还该实例（见 Normalized.Deferred）。
type Embedder struct {
	Model core.EmbeddingModel
}

func (Embedder) spec() {}

// Ref 按名称引用注册表中的嵌入模型；Library 为空时要求名称全局唯一。
type Ref struct {
	Name    string
	Library string
}

func (Ref) spec() {}

// Normalized 是归一化的显式结果枚举：二者有且仅有一个非空。
//
// Deferred 非空表示该特征的计算被有意推迟：在全图范围拟合它会泄漏
// 任务正在评估的信号（或其随机性应随 holdout 变化），调用方应在
// holdout 范围内用新的随机状态重新归一化。
type Normalized struct {
	Matrix   *mat.Dense
	Deferred core.EmbeddingModel
}

// IsDeferred 返回该结果是否为延迟标记。
func (n Normalized) IsDeferred() bool { return n.Deferred != nil }

// Specs 把归一化结果还原为特征说明序列，供 holdout 范围的二次归一化使用。
func Specs(normalized []Normalized) []Spec {
	specs := make([]Spec, 0, len(normalized))
	for _, n := range normalized {
		if n.IsDeferred() {
			specs = append(specs, Embedder{Model: n.Deferred})
		} else {
			specs = append(specs, Matrix{Values: n.Matrix})
		}
	}
	return specs
}

// Matrices 提取全部已计算矩阵；遇到延迟标记返回 false。
func Matrices(normalized []Normalized) ([]*mat.Dense, bool) {
	out := make([]*mat.Dense, 0, len(normalized))
	for _, n := range normalized {
		if n.IsDeferred() {
			return nil, false
		}
		out = append(out, n.Matrix)
	}
	return out, true
}
