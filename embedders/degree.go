// Package embedders 提供两个廉价的参考嵌入模型，供特征归一化管线
// 在没有外部深度学习依赖的情况下产出真实的节点特征。
package embedders

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// EmbeddingTaskName 是全部嵌入模型共享的任务名。
const EmbeddingTaskName = "Node Embedding"

// DegreeEmbedder 是确定性的拓扑嵌入：每个节点映射为
// [出度, 入度, log(1+总度), 1/sqrt(1+总度)]。
// 图有节点类型时额外产出一个节点类型通道（同类型节点的度均值），
// 一次拟合产出多个通道。
//
// 该嵌入编码图的拓扑，在拓扑任务（如边预测）下构成评估偏置，
// 全图范围归一化时会被延迟到 holdout 范围重算。
type DegreeEmbedder struct{}

func NewDegreeEmbedder() *DegreeEmbedder { return &DegreeEmbedder{} }

func (*DegreeEmbedder) ModelName() string   { return "Degree" }
func (*DegreeEmbedder) LibraryName() string { return "gonum" }
func (*DegreeEmbedder) TaskName() string    { return EmbeddingTaskName }

func (*DegreeEmbedder) Parameters() map[string]any          { return map[string]any{} }
func (*DegreeEmbedder) SmokeTestParameters() map[string]any { return map[string]any{} }

func (*DegreeEmbedder) IsStochastic() bool   { return false }
func (*DegreeEmbedder) SetRandomState(int64) {}

func (m *DegreeEmbedder) Clone() core.Model { return &DegreeEmbedder{} }

func (m *DegreeEmbedder) IntoSmokeTest() core.EmbeddingModel {
	return m.Clone().(*DegreeEmbedder)
}

func (*DegreeEmbedder) IsTopological() bool      { return true }
func (*DegreeEmbedder) IsUsingEdgeTypes() bool   { return false }
func (*DegreeEmbedder) IsUsingNodeTypes() bool   { return false }
func (*DegreeEmbedder) IsUsingEdgeWeights() bool { return false }

func (m *DegreeEmbedder) FitTransform(g core.Graph) (*core.EmbeddingResult, error) {
	nodes := g.NumberOfNodes()
	outDegrees := make([]float64, nodes)
	inDegrees := make([]float64, nodes)
	for _, edge := range g.EdgeNodeIDs() {
		outDegrees[edge[0]]++
		inDegrees[edge[1]]++
	}

	nodeEmbedding := mat.NewDense(nodes, 4, nil)
	for node := 0; node < nodes; node++ {
		total := outDegrees[node] + inDegrees[node]
		nodeEmbedding.Set(node, 0, outDegrees[node])
		nodeEmbedding.Set(node, 1, inDegrees[node])
		nodeEmbedding.Set(node, 2, math.Log1p(total))
		nodeEmbedding.Set(node, 3, 1/math.Sqrt(1+total))
	}

	result := &core.EmbeddingResult{
		NodeEmbeddings: []*mat.Dense{nodeEmbedding},
	}

	if g.HasNodeTypes() {
		types := g.NumberOfNodeTypes()
		sums := make([]float64, types)
		counts := make([]float64, types)
		for node, typeID := range g.NodeTypeIDs() {
			if typeID < 0 {
				continue
			}
			sums[typeID] += outDegrees[node] + inDegrees[node]
			counts[typeID]++
		}
		typeEmbedding := mat.NewDense(types, 1, nil)
		for typeID := 0; typeID < types; typeID++ {
			if counts[typeID] > 0 {
				typeEmbedding.Set(typeID, 0, sums[typeID]/counts[typeID])
			}
		}
		result.NodeTypeEmbeddings = []*mat.Dense{typeEmbedding}
	}

	return result, nil
}

func init() {
	registry.RegisterEmbedder("Degree", "gonum",
		func() core.EmbeddingModel { return NewDegreeEmbedder() })
}

var _ core.EmbeddingModel = (*DegreeEmbedder)(nil)
