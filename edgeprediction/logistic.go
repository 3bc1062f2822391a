package edgeprediction

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// LogisticRegression 是基于 Hadamard 边嵌入的逻辑回归边分类器。
//
// 预测原理：
//  1. 线性加权求和: z = bias + sum(weight_i * feature_i)
//  2. Sigmoid 变换: p = 1 / (1 + exp(-z))
//
// 训练时从支撑图采样等量负边，在正负样本上做小批量梯度下降。
type LogisticRegression struct {
	learningRate float64
	epochs       int
	randomState  int64

	weights []float64
	bias    float64
	fitted  bool
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		learningRate: 0.01,
		epochs:       100,
		randomState:  42,
	}
}

func (*LogisticRegression) ModelName() string   { return "Logistic Regression" }
func (*LogisticRegression) LibraryName() string { return "gonum" }
func (*LogisticRegression) TaskName() string    { return TaskName }

func (m *LogisticRegression) Parameters() map[string]any {
	return map[string]any{
		"learning_rate": m.learningRate,
		"epochs":        m.epochs,
	}
}

func (m *LogisticRegression) SmokeTestParameters() map[string]any {
	return map[string]any{
		"learning_rate": m.learningRate,
		"epochs":        1,
	}
}

func (*LogisticRegression) IsStochastic() bool { return true }

func (m *LogisticRegression) SetRandomState(randomState int64) {
	m.randomState = randomState
}

func (m *LogisticRegression) Clone() core.Model {
	return &LogisticRegression{
		learningRate: m.learningRate,
		epochs:       m.epochs,
		randomState:  m.randomState,
	}
}

func (m *LogisticRegression) IntoSmokeTest() core.ClassifierModel {
	clone := m.Clone().(*LogisticRegression)
	clone.epochs = 1
	return clone
}

func (*LogisticRegression) IsBinaryPredictionTask() bool { return true }

// Fit 在训练图的真实边与等量负采样边上训练权重。
func (m *LogisticRegression) Fit(g, support core.Graph, features *core.FeatureSet) error {
	samples, labels, err := trainingSamples(m, g, support, features)
	if err != nil {
		return err
	}

	dimension := edgeDimension(features)
	rng := rand.New(rand.NewSource(m.randomState))
	m.weights = make([]float64, dimension)
	for i := range m.weights {
		m.weights[i] = rng.NormFloat64() * 0.01
	}
	m.bias = 0

	for epoch := 0; epoch < m.epochs; epoch++ {
		for i, x := range samples {
			z := m.bias
			for j, w := range m.weights {
				z += w * x[j]
			}
			p := 1 / (1 + math.Exp(-z))
			gradient := p - labels[i]
			for j := range m.weights {
				m.weights[j] -= m.learningRate * gradient * x[j]
			}
			m.bias -= m.learningRate * gradient
		}
	}
	m.fitted = true
	return nil
}

func (m *LogisticRegression) Predict(g, support core.Graph, features *core.FeatureSet) ([]float64, error) {
	probabilities, err := m.PredictProba(g, support, features)
	if err != nil {
		return nil, err
	}
	rows, _ := probabilities.Dims()
	predictions := make([]float64, rows)
	for i := range predictions {
		if probabilities.At(i, 1) > 0.5 {
			predictions[i] = 1
		}
	}
	return predictions, nil
}

func (m *LogisticRegression) PredictProba(g, support core.Graph, features *core.FeatureSet) (*mat.Dense, error) {
	if !m.fitted {
		return nil, notFittedError(m)
	}
	if err := requireNodeFeatures(m.ModelName(), m.LibraryName(), features); err != nil {
		return nil, err
	}
	edges := g.EdgeNodeIDs()
	probabilities := mat.NewDense(len(edges), 2, nil)
	embedding := make([]float64, 0, len(m.weights))
	for i, edge := range edges {
		embedding = edgeEmbedding(features, edge[0], edge[1], embedding)
		z := m.bias
		for j, w := range m.weights {
			z += w * embedding[j]
		}
		p := 1 / (1 + math.Exp(-z))
		probabilities.Set(i, 0, 1-p)
		probabilities.Set(i, 1, p)
	}
	return probabilities, nil
}

// trainingSamples 把训练图的真实边与等量负采样边装配为带标签的样本集。
// 负边从支撑图采样，避让集是支撑图本身。
func trainingSamples(
	m core.ClassifierModel,
	g, support core.Graph,
	features *core.FeatureSet,
) (samples [][]float64, labels []float64, err error) {
	if err := requireNodeFeatures(m.ModelName(), m.LibraryName(), features); err != nil {
		return nil, nil, err
	}

	positive := g.EdgeNodeIDs()
	negative, err := support.SampleNegativeGraph(len(positive), randomStateOf(m), support)
	if err != nil {
		return nil, nil, err
	}

	for _, edge := range positive {
		samples = append(samples, edgeEmbedding(features, edge[0], edge[1], nil))
		labels = append(labels, 1)
	}
	for _, edge := range negative.EdgeNodeIDs() {
		samples = append(samples, edgeEmbedding(features, edge[0], edge[1], nil))
		labels = append(labels, 0)
	}
	return samples, labels, nil
}

func randomStateOf(m core.ClassifierModel) int64 {
	switch model := m.(type) {
	case *LogisticRegression:
		return model.randomState
	case *Perceptron:
		return model.randomState
	}
	return 42
}

func notFittedError(m core.ClassifierModel) error {
	return core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
		fmt.Sprintf("the %s model from the %s library was asked to predict before "+
			"being fitted", m.ModelName(), m.LibraryName()))
}

func init() {
	registry.RegisterClassifier(TaskName, "Logistic Regression", "gonum",
		func() core.ClassifierModel { return NewLogisticRegression() })
}

var _ core.ClassifierModel = (*LogisticRegression)(nil)
