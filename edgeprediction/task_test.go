package edgeprediction

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/eval"
	"github.com/rushteam/grapheval/graph"
	"github.com/rushteam/grapheval/schema"
)

func testRing(t *testing.T, n int) core.Graph {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = "v" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	var edges [][2]int
	for i := 0; i < n; i++ {
		edges = append(edges, [2]int{i, (i + 1) % n})
		edges = append(edges, [2]int{i, (i + 2) % n})
	}
	g, err := graph.New("edge-test", names, edges)
	if err != nil {
		t.Fatalf("graph.New() error = %v", err)
	}
	return g
}

func degreeFeatures(g core.Graph) *core.FeatureSet {
	nodes := g.NumberOfNodes()
	degrees := make([]float64, nodes)
	for _, edge := range g.EdgeNodeIDs() {
		degrees[edge[0]]++
		degrees[edge[1]]++
	}
	dense := mat.NewDense(nodes, 2, nil)
	for i := 0; i < nodes; i++ {
		dense.Set(i, 0, degrees[i])
		dense.Set(i, 1, 1)
	}
	return &core.FeatureSet{NodeFeatures: []*mat.Dense{dense}}
}

func TestTaskEvaluate_RowPerModeAndRate(t *testing.T) {
	g := testRing(t, 12)
	train, test, err := g.RandomHoldout(0.8, 42)
	if err != nil {
		t.Fatalf("RandomHoldout() error = %v", err)
	}
	features := degreeFeatures(g)

	model := NewLogisticRegression()
	if err := model.Fit(train, train, features); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	task := New()
	performance, err := task.Evaluate(model, eval.EvaluationArgs{
		Graph:          g,
		Support:        train,
		Train:          train,
		Test:           test,
		Features:       features,
		RandomState:    42,
		UnbalanceRates: []float64{1.0, 2.0},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// 2 不平衡率 x 2 评估模式
	if len(performance) != 4 {
		t.Fatalf("rows = %d, want 4", len(performance))
	}

	wantTrainSize := float64(train.NumberOfDirectedEdges()) /
		float64(train.NumberOfDirectedEdges()+test.NumberOfDirectedEdges())
	modes := map[string]int{}
	for _, row := range performance {
		mode, _ := row["evaluation_mode"].(string)
		modes[mode]++
		if row["train_size"] != wantTrainSize {
			t.Errorf("train_size = %v, want %v", row["train_size"], wantTrainSize)
		}
		for _, metric := range []string{"accuracy_score", "auroc", "auprc", "f1_score"} {
			value, ok := row[metric].(float64)
			if !ok {
				t.Errorf("missing metric %q", metric)
				continue
			}
			if value < 0 || value > 1 {
				t.Errorf("%s = %v outside [0, 1]", metric, value)
			}
		}
	}
	if modes["train"] != 2 || modes["test"] != 2 {
		t.Errorf("modes = %v, want two rows each", modes)
	}
}

func TestTaskEvaluate_IsDeterministic(t *testing.T) {
	g := testRing(t, 12)
	train, test, err := g.RandomHoldout(0.8, 42)
	if err != nil {
		t.Fatalf("RandomHoldout() error = %v", err)
	}
	features := degreeFeatures(g)
	model := NewLogisticRegression()
	if err := model.Fit(train, train, features); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	task := New()
	args := eval.EvaluationArgs{
		Graph: g, Support: train, Train: train, Test: test,
		Features: features, RandomState: 42, UnbalanceRates: []float64{1.0},
	}
	first, err := task.Evaluate(model, args)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	second, err := task.Evaluate(model, args)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("same seed produced different evaluation rows")
	}
}

func TestLogisticRegression_Lifecycle(t *testing.T) {
	g := testRing(t, 10)
	features := degreeFeatures(g)
	model := NewLogisticRegression()

	// 未拟合即预测是配置错误
	if _, err := model.PredictProba(g, g, features); !core.IsConfiguration(err) {
		t.Fatalf("PredictProba() before Fit() error = %v, want CONFIGURATION", err)
	}

	// 缺少节点特征无法装配边嵌入
	if err := model.Fit(g, g, &core.FeatureSet{}); !core.IsConfiguration(err) {
		t.Fatalf("Fit() without node features error = %v, want CONFIGURATION", err)
	}

	if err := model.Fit(g, g, features); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	probabilities, err := model.PredictProba(g, g, features)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	rows, cols := probabilities.Dims()
	if rows != g.NumberOfDirectedEdges() || cols != 2 {
		t.Fatalf("dims = (%d, %d), want (%d, 2)", rows, cols, g.NumberOfDirectedEdges())
	}
	for i := 0; i < rows; i++ {
		sum := probabilities.At(i, 0) + probabilities.At(i, 1)
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("row %d probabilities sum to %v, want 1", i, sum)
		}
	}

	// 克隆不带走拟合状态
	clone := model.Clone().(*LogisticRegression)
	if _, err := clone.PredictProba(g, g, features); !core.IsConfiguration(err) {
		t.Errorf("clone PredictProba() error = %v, want CONFIGURATION for an unfitted clone", err)
	}
}

func TestPerceptron_SmokeTestPreset(t *testing.T) {
	model := NewPerceptron()
	smoke := model.IntoSmokeTest().(*Perceptron)
	if smoke.epochs != 1 {
		t.Errorf("smoke test epochs = %d, want 1", smoke.epochs)
	}
	if model.epochs == 1 {
		t.Errorf("IntoSmokeTest() must not mutate the receiver")
	}
	if got := model.SmokeTestParameters()["epochs"]; got != 1 {
		t.Errorf("SmokeTestParameters()[epochs] = %v, want 1", got)
	}
}

func TestEdgeEmbedding_HadamardConcat(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})
	b := mat.NewDense(3, 1, []float64{
		10,
		20,
		30,
	})
	features := &core.FeatureSet{NodeFeatures: []*mat.Dense{a, b}}

	if got := edgeDimension(features); got != 3 {
		t.Fatalf("edgeDimension() = %d, want 3", got)
	}
	got := edgeEmbedding(features, 0, 2, nil)
	want := []float64{1 * 5, 2 * 6, 10 * 30}
	if len(got) != len(want) {
		t.Fatalf("edgeEmbedding() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edgeEmbedding()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPositiveColumn_SingleColumnFallback(t *testing.T) {
	single := mat.NewDense(2, 1, []float64{0.2, 0.8})
	got := positiveColumn(single)
	if got[0] != 0.2 || got[1] != 0.8 {
		t.Errorf("positiveColumn(single) = %v", got)
	}

	double := mat.NewDense(2, 2, []float64{0.9, 0.1, 0.3, 0.7})
	got = positiveColumn(double)
	if got[0] != 0.1 || got[1] != 0.7 {
		t.Errorf("positiveColumn(double) = %v, want the second column", got)
	}
}

func TestTask_AvailableSchemas(t *testing.T) {
	task := New()
	if got := len(task.AvailableSchemas()); got != len(schema.Available()) {
		t.Errorf("AvailableSchemas() = %d entries, want %d", got, len(schema.Available()))
	}
	if !task.Traits().EdgeOriented {
		t.Errorf("edge prediction must be edge oriented")
	}
}
