package edgeprediction

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// Perceptron 是基于 Hadamard 边嵌入的感知机边分类器。
// 误分类驱动的在线更新，比逻辑回归更便宜；概率输出经 Sigmoid 压缩，
// 只保证排序意义而非校准意义。
type Perceptron struct {
	learningRate float64
	epochs       int
	randomState  int64

	weights []float64
	bias    float64
	fitted  bool
}

func NewPerceptron() *Perceptron {
	return &Perceptron{
		learningRate: 0.1,
		epochs:       50,
		randomState:  42,
	}
}

func (*Perceptron) ModelName() string   { return "Perceptron" }
func (*Perceptron) LibraryName() string { return "gonum" }
func (*Perceptron) TaskName() string    { return TaskName }

func (m *Perceptron) Parameters() map[string]any {
	return map[string]any{
		"learning_rate": m.learningRate,
		"epochs":        m.epochs,
	}
}

func (m *Perceptron) SmokeTestParameters() map[string]any {
	return map[string]any{
		"learning_rate": m.learningRate,
		"epochs":        1,
	}
}

func (*Perceptron) IsStochastic() bool { return true }

func (m *Perceptron) SetRandomState(randomState int64) {
	m.randomState = randomState
}

func (m *Perceptron) Clone() core.Model {
	return &Perceptron{
		learningRate: m.learningRate,
		epochs:       m.epochs,
		randomState:  m.randomState,
	}
}

func (m *Perceptron) IntoSmokeTest() core.ClassifierModel {
	clone := m.Clone().(*Perceptron)
	clone.epochs = 1
	return clone
}

func (*Perceptron) IsBinaryPredictionTask() bool { return true }

func (m *Perceptron) Fit(g, support core.Graph, features *core.FeatureSet) error {
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
			predicted := 0.0
			if z > 0 {
				predicted = 1
			}
			if predicted == labels[i] {
				continue
			}
			direction := labels[i] - predicted
			for j := range m.weights {
				m.weights[j] += m.learningRate * direction * x[j]
			}
			m.bias += m.learningRate * direction
		}
	}
	m.fitted = true
	return nil
}

func (m *Perceptron) Predict(g, support core.Graph, features *core.FeatureSet) ([]float64, error) {
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

func (m *Perceptron) PredictProba(g, support core.Graph, features *core.FeatureSet) (*mat.Dense, error) {
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

func init() {
	registry.RegisterClassifier(TaskName, "Perceptron", "gonum",
		func() core.ClassifierModel { return NewPerceptron() })
}

var _ core.ClassifierModel = (*Perceptron)(nil)
