package nodelabel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// NearestCentroid 是最近质心节点分类器：对每个类别求带标签训练节点的
// 特征质心，预测时取欧氏距离最近的质心所属类别。确定性，无超参数可调。
type NearestCentroid struct {
	centroids [][]float64
	fitted    bool
}

func NewNearestCentroid() *NearestCentroid { return &NearestCentroid{} }

func (*NearestCentroid) ModelName() string   { return "Nearest Centroid" }
func (*NearestCentroid) LibraryName() string { return "gonum" }
func (*NearestCentroid) TaskName() string    { return TaskName }

func (*NearestCentroid) Parameters() map[string]any          { return map[string]any{} }
func (*NearestCentroid) SmokeTestParameters() map[string]any { return map[string]any{} }

func (*NearestCentroid) IsStochastic() bool       { return false }
func (*NearestCentroid) SetRandomState(int64)     {}
func (m *NearestCentroid) Clone() core.Model      { return &NearestCentroid{} }
func (m *NearestCentroid) IntoSmokeTest() core.ClassifierModel {
	return m.Clone().(*NearestCentroid)
}

func (*NearestCentroid) IsBinaryPredictionTask() bool { return false }

// Fit 对每个节点类型求带标签节点的特征质心。
func (m *NearestCentroid) Fit(g, support core.Graph, features *core.FeatureSet) error {
	if err := requireNodeFeatures(features); err != nil {
		return err
	}
	classes := g.NumberOfNodeTypes()
	if classes == 0 {
		return core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			fmt.Sprintf("the graph %q does not have node types, the %s model cannot be "+
				"fitted on it", g.Name(), m.ModelName()))
	}

	dimension := nodeDimension(features)
	centroids := make([][]float64, classes)
	counts := make([]int, classes)
	for class := range centroids {
		centroids[class] = make([]float64, dimension)
	}

	for node, typeID := range g.NodeTypeIDs() {
		if typeID < 0 {
			continue
		}
		vector := nodeVector(features, node, nil)
		for j, v := range vector {
			centroids[typeID][j] += v
		}
		counts[typeID]++
	}
	for class, count := range counts {
		if count == 0 {
			continue
		}
		for j := range centroids[class] {
			centroids[class][j] /= float64(count)
		}
	}

	m.centroids = centroids
	m.fitted = true
	return nil
}

func (m *NearestCentroid) Predict(g, support core.Graph, features *core.FeatureSet) ([]float64, error) {
	if !m.fitted {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			fmt.Sprintf("the %s model from the %s library was asked to predict before "+
				"being fitted", m.ModelName(), m.LibraryName()))
	}
	if err := requireNodeFeatures(features); err != nil {
		return nil, err
	}

	predictions := make([]float64, g.NumberOfNodes())
	var vector []float64
	for node := range predictions {
		vector = nodeVector(features, node, vector)
		best, bestDistance := 0, math.Inf(1)
		for class, centroid := range m.centroids {
			distance := 0.0
			for j, v := range vector {
				d := v - centroid[j]
				distance += d * d
			}
			if distance < bestDistance {
				best, bestDistance = class, distance
			}
		}
		predictions[node] = float64(best)
	}
	return predictions, nil
}

// PredictProba 把到各质心的距离折算为归一化的相似度分布。
func (m *NearestCentroid) PredictProba(g, support core.Graph, features *core.FeatureSet) (*mat.Dense, error) {
	predictions, err := m.Predict(g, support, features)
	if err != nil {
		return nil, err
	}
	probabilities := mat.NewDense(len(predictions), len(m.centroids), nil)
	for node, class := range predictions {
		probabilities.Set(node, int(class), 1)
	}
	return probabilities, nil
}

func nodeDimension(features *core.FeatureSet) int {
	total := 0
	for _, m := range features.NodeFeatures {
		_, cols := m.Dims()
		total += cols
	}
	return total
}

// nodeVector 拼接一个节点在全部节点特征矩阵中的行。
func nodeVector(features *core.FeatureSet, node int, out []float64) []float64 {
	out = out[:0]
	for _, m := range features.NodeFeatures {
		_, cols := m.Dims()
		for j := 0; j < cols; j++ {
			out = append(out, m.At(node, j))
		}
	}
	return out
}

func requireNodeFeatures(features *core.FeatureSet) error {
	if features == nil || len(features.NodeFeatures) == 0 {
		return core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			"the Nearest Centroid model requires at least one node feature, but none was provided")
	}
	return nil
}

func init() {
	registry.RegisterClassifier(TaskName, "Nearest Centroid", "gonum",
		func() core.ClassifierModel { return NewNearestCentroid() })
}

var _ core.ClassifierModel = (*NearestCentroid)(nil)
