package edgeprediction

import (
	"github.com/rushteam/grapheval/core"
)

// edgeDimension 返回边嵌入维度：全部节点特征矩阵的列数之和。
func edgeDimension(features *core.FeatureSet) int {
	total := 0
	for _, m := range features.NodeFeatures {
		_, cols := m.Dims()
		total += cols
	}
	return total
}

// edgeEmbedding 用 Hadamard 积把一条边的两端节点特征折叠为边嵌入，
// 多个节点特征矩阵的结果按顺序拼接。
func edgeEmbedding(features *core.FeatureSet, src, dst int, out []float64) []float64 {
	out = out[:0]
	for _, m := range features.NodeFeatures {
		_, cols := m.Dims()
		for j := 0; j < cols; j++ {
			out = append(out, m.At(src, j)*m.At(dst, j))
		}
	}
	return out
}

// requireNodeFeatures 校验边分类器依赖的节点特征是否存在。
func requireNodeFeatures(modelName, libraryName string, features *core.FeatureSet) error {
	if features == nil || len(features.NodeFeatures) == 0 {
		return core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			"the "+modelName+" model from the "+libraryName+" library requires at least "+
				"one node feature to build edge embeddings, but none was provided")
	}
	return nil
}
