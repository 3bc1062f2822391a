package embedders

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// RandomProjection 是随机投影嵌入：每个节点映射为一个由
// (随机种子, 节点 ID) 确定的高斯向量。不消费拓扑、类型或权重，
// 因此对任何任务都不构成评估偏置；但它是随机模型，
// 未开启常量预计算时会被延迟，使各 holdout 捕获方法随机性的方差。
//
// 行生成按节点分块并发执行；拟合内部的并行对编排核心不可见。
type RandomProjection struct {
	dimension   int
	randomState int64
}

func NewRandomProjection() *RandomProjection {
	return &RandomProjection{
		dimension:   16,
		randomState: 42,
	}
}

func (*RandomProjection) ModelName() string   { return "Random Projection" }
func (*RandomProjection) LibraryName() string { return "gonum" }
func (*RandomProjection) TaskName() string    { return EmbeddingTaskName }

func (m *RandomProjection) Parameters() map[string]any {
	return map[string]any{"dimension": m.dimension}
}

func (m *RandomProjection) SmokeTestParameters() map[string]any {
	return map[string]any{"dimension": 2}
}

func (*RandomProjection) IsStochastic() bool { return true }

func (m *RandomProjection) SetRandomState(randomState int64) {
	m.randomState = randomState
}

func (m *RandomProjection) Clone() core.Model {
	return &RandomProjection{
		dimension:   m.dimension,
		randomState: m.randomState,
	}
}

func (m *RandomProjection) IntoSmokeTest() core.EmbeddingModel {
	clone := m.Clone().(*RandomProjection)
	clone.dimension = 2
	return clone
}

func (*RandomProjection) IsTopological() bool      { return false }
func (*RandomProjection) IsUsingEdgeTypes() bool   { return false }
func (*RandomProjection) IsUsingNodeTypes() bool   { return false }
func (*RandomProjection) IsUsingEdgeWeights() bool { return false }

func (m *RandomProjection) FitTransform(g core.Graph) (*core.EmbeddingResult, error) {
	nodes := g.NumberOfNodes()
	embedding := mat.NewDense(nodes, m.dimension, nil)

	const chunk = 1024
	eg, _ := errgroup.WithContext(context.Background())
	for start := 0; start < nodes; start += chunk {
		start := start
		end := start + chunk
		if end > nodes {
			end = nodes
		}
		eg.Go(func() error {
			for node := start; node < end; node++ {
				// 每行的随机流由 (种子, 节点 ID) 确定，与分块方式无关。
				rng := rand.New(rand.NewSource(m.randomState + int64(node)))
				for j := 0; j < m.dimension; j++ {
					embedding.Set(node, j, rng.NormFloat64())
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &core.EmbeddingResult{
		NodeEmbeddings: []*mat.Dense{embedding},
	}, nil
}

func init() {
	registry.RegisterEmbedder("Random Projection", "gonum",
		func() core.EmbeddingModel { return NewRandomProjection() })
}

var _ core.EmbeddingModel = (*RandomProjection)(nil)
