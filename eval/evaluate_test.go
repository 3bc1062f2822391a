package eval_test

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/cache"
	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/edgeprediction"
	_ "github.com/rushteam/grapheval/embedders"
	"github.com/rushteam/grapheval/eval"
	"github.com/rushteam/grapheval/feature"
	"github.com/rushteam/grapheval/graph"
	"github.com/rushteam/grapheval/nodelabel"
	"github.com/rushteam/grapheval/schema"
)

// countingModel 是用于观测编排行为的边预测模型：
// 记录 fit 次数与注入的随机种子，概率固定。
type countingModel struct {
	name        string
	stochastic  bool
	randomState int64
	fits        *int
	seeds       *[]int64
}

func newCountingModel(name string, stochastic bool) *countingModel {
	fits := 0
	var seeds []int64
	return &countingModel{name: name, stochastic: stochastic, fits: &fits, seeds: &seeds}
}

func (m *countingModel) ModelName() string          { return m.name }
func (m *countingModel) LibraryName() string        { return "testlib" }
func (m *countingModel) TaskName() string           { return edgeprediction.TaskName }
func (m *countingModel) Parameters() map[string]any { return map[string]any{"depth": 1} }
func (m *countingModel) SmokeTestParameters() map[string]any {
	return map[string]any{"depth": 0}
}
func (m *countingModel) IsStochastic() bool { return m.stochastic }

func (m *countingModel) SetRandomState(randomState int64) {
	m.randomState = randomState
	*m.seeds = append(*m.seeds, randomState)
}

func (m *countingModel) Clone() core.Model {
	clone := *m
	return &clone
}

func (m *countingModel) IntoSmokeTest() core.ClassifierModel {
	return m.Clone().(*countingModel)
}

func (m *countingModel) IsBinaryPredictionTask() bool { return true }

func (m *countingModel) Fit(core.Graph, core.Graph, *core.FeatureSet) error {
	*m.fits++
	return nil
}

func (m *countingModel) Predict(g core.Graph, _ core.Graph, _ *core.FeatureSet) ([]float64, error) {
	out := make([]float64, g.NumberOfDirectedEdges())
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

func (m *countingModel) PredictProba(g core.Graph, _ core.Graph, _ *core.FeatureSet) (*mat.Dense, error) {
	edges := g.NumberOfDirectedEdges()
	probabilities := mat.NewDense(edges, 2, nil)
	for i := 0; i < edges; i++ {
		probabilities.Set(i, 0, 0.3)
		probabilities.Set(i, 1, 0.7)
	}
	return probabilities, nil
}

var _ core.ClassifierModel = (*countingModel)(nil)

// countingEmbedder 是确定性的非拓扑嵌入模型，
// 用于观测常量特征是否被重复计算。
type countingEmbedder struct {
	fits *int
}

func newCountingEmbedder() *countingEmbedder {
	fits := 0
	return &countingEmbedder{fits: &fits}
}

func (e *countingEmbedder) ModelName() string          { return "Counting Embedder" }
func (e *countingEmbedder) LibraryName() string        { return "testlib" }
func (e *countingEmbedder) TaskName() string           { return edgeprediction.TaskName }
func (e *countingEmbedder) Parameters() map[string]any { return map[string]any{"dimension": 2} }
func (e *countingEmbedder) SmokeTestParameters() map[string]any {
	return map[string]any{"dimension": 2}
}
func (e *countingEmbedder) IsStochastic() bool          { return false }
func (e *countingEmbedder) SetRandomState(int64)        {}
func (e *countingEmbedder) IsTopological() bool         { return false }
func (e *countingEmbedder) IsUsingEdgeTypes() bool      { return false }
func (e *countingEmbedder) IsUsingNodeTypes() bool      { return false }
func (e *countingEmbedder) IsUsingEdgeWeights() bool    { return false }
func (e *countingEmbedder) Clone() core.Model           { clone := *e; return &clone }
func (e *countingEmbedder) IntoSmokeTest() core.EmbeddingModel {
	return e.Clone().(*countingEmbedder)
}

func (e *countingEmbedder) FitTransform(g core.Graph) (*core.EmbeddingResult, error) {
	*e.fits++
	n := g.NumberOfNodes()
	dense := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		dense.Set(i, 0, 1)
		dense.Set(i, 1, float64(i))
	}
	return &core.EmbeddingResult{NodeEmbeddings: []*mat.Dense{dense}}, nil
}

var _ core.EmbeddingModel = (*countingEmbedder)(nil)

func evalGraph(t *testing.T, n int) core.Graph {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = "node" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	var edges [][2]int
	for i := 0; i < n; i++ {
		edges = append(edges, [2]int{i, (i + 1) % n})
		edges = append(edges, [2]int{i, (i + 2) % n})
	}
	g, err := graph.New("eval-test", names, edges)
	if err != nil {
		t.Fatalf("graph.New() error = %v", err)
	}
	return g
}

func baseOptions() eval.Options {
	return eval.Options{
		SchemaParams:     schema.Params{TrainSize: 0.8},
		NumberOfHoldouts: 2,
		RandomState:      100,
	}
}

func TestEvaluate_RowCountLaw(t *testing.T) {
	g := evalGraph(t, 20)
	task := edgeprediction.New()
	candidates := []eval.Candidate{
		{Model: newCountingModel("Model A", false)},
		{Model: newCountingModel("Model B", false)},
	}
	opts := baseOptions()
	opts.UnbalanceRates = []float64{1.0, 2.0}

	performance, err := eval.Evaluate(context.Background(), task, candidates, g,
		schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// 2 holdouts x 2 模型 x 2 不平衡率 x 2 评估模式
	if len(performance) != 16 {
		t.Fatalf("rows = %d, want 16", len(performance))
	}

	// 每行携带溯源列与指标列
	for i, row := range performance {
		for _, column := range []string{
			"task_name", "model_name", "library_name", "graph_name",
			"evaluation_schema", "evaluation_mode", "holdout_number",
			"holdouts_kwargs", "validation_unbalance_rate", "train_size",
			"accuracy_score", "auroc", "auprc",
			"time_required_for_training", "time_required_for_evaluation",
			"number_of_holdouts", "runtime_version",
			"model_parameters.depth",
		} {
			if _, ok := row[column]; !ok {
				t.Errorf("row %d is missing column %q", i, column)
			}
		}
		if row["task_name"] != edgeprediction.TaskName {
			t.Errorf("row %d task_name = %v", i, row["task_name"])
		}
	}
}

func TestEvaluate_SecondRunHitsCacheWithoutRefitting(t *testing.T) {
	g := evalGraph(t, 20)
	task := edgeprediction.New()
	model := newCountingModel("Cached Model", false)
	store, err := cache.NewMemoryStore(0)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	opts := baseOptions()
	opts.Cache = cache.New(store)

	first, err := eval.Evaluate(context.Background(), task,
		[]eval.Candidate{{Model: model}}, g, schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("first Evaluate() error = %v", err)
	}
	fitsAfterFirst := *model.fits
	if fitsAfterFirst != 2 {
		t.Fatalf("fits after first run = %d, want one per holdout", fitsAfterFirst)
	}

	second, err := eval.Evaluate(context.Background(), task,
		[]eval.Candidate{{Model: model}}, g, schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}
	if *model.fits != fitsAfterFirst {
		t.Errorf("second run refitted the model: fits = %d", *model.fits)
	}
	if !first.Equal(second) {
		t.Errorf("cached report differs from the computed one")
	}
}

func TestEvaluate_FullyCachedRunSkipsConstantFeatures(t *testing.T) {
	// 顶层缓存命中必须发生在常量特征计算之前：
	// 完全相同的重跑连特征嵌入都不再拟合。
	g := evalGraph(t, 20)
	task := edgeprediction.New()
	model := newCountingModel("Featured Cached", false)
	embedder := newCountingEmbedder()
	store, err := cache.NewMemoryStore(0)
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	opts := baseOptions()
	opts.Cache = cache.New(store)
	opts.NodeFeatures = []feature.Spec{feature.Embedder{Model: embedder}}

	first, err := eval.Evaluate(context.Background(), task,
		[]eval.Candidate{{Model: model}}, g, schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("first Evaluate() error = %v", err)
	}
	if *embedder.fits != 1 {
		t.Fatalf("embedder fits after first run = %d, want 1", *embedder.fits)
	}

	second, err := eval.Evaluate(context.Background(), task,
		[]eval.Candidate{{Model: model}}, g, schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}
	if *embedder.fits != 1 {
		t.Errorf("fully cached second run recomputed constant features: fits = %d", *embedder.fits)
	}
	if *model.fits != 2 {
		t.Errorf("second run refitted the model: fits = %d", *model.fits)
	}
	if !first.Equal(second) {
		t.Errorf("cached report differs from the computed one")
	}
}

func TestEvaluate_StochasticModelsGetPerHoldoutSeeds(t *testing.T) {
	g := evalGraph(t, 20)
	task := edgeprediction.New()
	model := newCountingModel("Seeded Model", true)
	opts := baseOptions()

	if _, err := eval.Evaluate(context.Background(), task,
		[]eval.Candidate{{Model: model}}, g, schema.MonteCarlo, opts); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// holdout h 的种子是 randomState * (h + 1)
	want := []int64{100, 200}
	if len(*model.seeds) != len(want) {
		t.Fatalf("seeds = %v, want %v", *model.seeds, want)
	}
	for i, seed := range want {
		if (*model.seeds)[i] != seed {
			t.Errorf("seed[%d] = %d, want %d", i, (*model.seeds)[i], seed)
		}
	}
}

func TestEvaluate_ValidationErrors(t *testing.T) {
	g := evalGraph(t, 20)
	edgeTask := edgeprediction.New()
	nodeTask := nodelabel.New()
	candidates := []eval.Candidate{{Model: newCountingModel("Model", false)}}

	t.Run("zero holdouts", func(t *testing.T) {
		opts := baseOptions()
		opts.NumberOfHoldouts = 0
		_, err := eval.Evaluate(context.Background(), edgeTask, candidates, g, schema.MonteCarlo, opts)
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("unknown schema", func(t *testing.T) {
		_, err := eval.Evaluate(context.Background(), edgeTask, candidates, g, "Bootstrap", baseOptions())
		if !core.IsUnknownSchema(err) {
			t.Errorf("error = %v, want UNKNOWN_SCHEMA", err)
		}
	})

	t.Run("empty candidates", func(t *testing.T) {
		_, err := eval.Evaluate(context.Background(), edgeTask, nil, g, schema.MonteCarlo, baseOptions())
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("subgraph on non edge task", func(t *testing.T) {
		opts := baseOptions()
		opts.SubgraphOfInterest = g
		_, err := eval.Evaluate(context.Background(), nodeTask, candidates, g, schema.MonteCarlo, opts)
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("subgraph not contained", func(t *testing.T) {
		stranger, err := graph.New("stranger", []string{"x", "y"}, [][2]int{{0, 1}})
		if err != nil {
			t.Fatalf("graph.New() error = %v", err)
		}
		opts := baseOptions()
		opts.SubgraphOfInterest = stranger
		_, err = eval.Evaluate(context.Background(), edgeTask, candidates, g, schema.MonteCarlo, opts)
		if !core.IsContainment(err) {
			t.Errorf("error = %v, want CONTAINMENT", err)
		}
	})

	t.Run("support without subgraph", func(t *testing.T) {
		opts := baseOptions()
		opts.UseSubgraphAsSupport = true
		_, err := eval.Evaluate(context.Background(), edgeTask, candidates, g, schema.MonteCarlo, opts)
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("model of another task", func(t *testing.T) {
		_, err := eval.Evaluate(context.Background(), nodeTask, candidates, g, schema.MonteCarlo, baseOptions())
		if !core.IsTypeMismatch(err) {
			t.Errorf("error = %v, want TYPE_MISMATCH", err)
		}
	})
}

func TestEvaluate_Sharding(t *testing.T) {
	g := evalGraph(t, 20)
	task := edgeprediction.New()
	candidates := []eval.Candidate{{Model: newCountingModel("Sharded", false)}}

	t.Run("oversharding rejected", func(t *testing.T) {
		opts := baseOptions()
		opts.NumberOfHoldouts = 4
		opts.NumberOfShards = 2
		t.Setenv(eval.DefaultShardIDVariable, "0")
		_, err := eval.Evaluate(context.Background(), task, candidates, g, schema.MonteCarlo, opts)
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("missing shard variable is a hard error", func(t *testing.T) {
		opts := baseOptions()
		opts.NumberOfShards = 2
		opts.ShardIDVariable = "GRAPHEVAL_TEST_SHARD_UNSET"
		_, err := eval.Evaluate(context.Background(), task, candidates, g, schema.MonteCarlo, opts)
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("non integer shard id rejected", func(t *testing.T) {
		opts := baseOptions()
		opts.NumberOfShards = 2
		t.Setenv(eval.DefaultShardIDVariable, "first")
		_, err := eval.Evaluate(context.Background(), task, candidates, g, schema.MonteCarlo, opts)
		if !core.IsConfiguration(err) {
			t.Errorf("error = %v, want CONFIGURATION", err)
		}
	})

	t.Run("each shard processes its own holdouts", func(t *testing.T) {
		opts := baseOptions()
		opts.NumberOfShards = 2
		t.Setenv(eval.DefaultShardIDVariable, "1")
		performance, err := eval.Evaluate(context.Background(), task, candidates, g, schema.MonteCarlo, opts)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		// 分片 1 只处理 holdout 1：每 holdout 2 行（train/test）
		if len(performance) != 2 {
			t.Fatalf("rows = %d, want 2", len(performance))
		}
		for _, row := range performance {
			if row["holdout_number"] != 1.0 {
				t.Errorf("holdout_number = %v, want 1", row["holdout_number"])
			}
			if row["shard_id"] != 1.0 {
				t.Errorf("shard_id = %v, want 1", row["shard_id"])
			}
		}
	})
}

func TestEvaluate_CompatibleSubgraphOfInterest(t *testing.T) {
	g := evalGraph(t, 20)
	subgraph, err := g.FilterFromNodeNames(g.NodeNames())
	if err != nil {
		t.Fatalf("FilterFromNodeNames() error = %v", err)
	}
	task := edgeprediction.New()
	candidates := []eval.Candidate{{Model: newCountingModel("Focused", false)}}

	opts := baseOptions()
	opts.SubgraphOfInterest = subgraph
	opts.UseSubgraphAsSupport = true

	performance, err := eval.Evaluate(context.Background(), task, candidates, g,
		schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(performance) != 4 {
		t.Fatalf("rows = %d, want 4", len(performance))
	}
	for _, row := range performance {
		if row["use_subgraph_as_support"] != true {
			t.Errorf("use_subgraph_as_support = %v, want true", row["use_subgraph_as_support"])
		}
	}
}

func TestEvaluate_DeferredFeaturesRecomputedPerHoldout(t *testing.T) {
	// 拓扑特征在拓扑任务下先被延迟，再于每个 holdout 的训练图上重算。
	g := evalGraph(t, 20)
	task := edgeprediction.New()
	candidates := []eval.Candidate{{Model: newCountingModel("Featured", false)}}

	opts := baseOptions()
	opts.NodeFeatures = []feature.Spec{feature.Ref{Name: "Degree"}}

	performance, err := eval.Evaluate(context.Background(), task, candidates, g,
		schema.MonteCarlo, opts)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(performance) != 4 {
		t.Fatalf("rows = %d, want 4", len(performance))
	}
	for _, row := range performance {
		if _, ok := row["time_required_to_compute_node_features"]; !ok {
			t.Errorf("missing holdout-scope feature timing column")
		}
	}
}

func TestNamedCandidates(t *testing.T) {
	if _, err := eval.NamedCandidates([]string{"A", "B"}, []string{"libA"}); !core.IsConfiguration(err) {
		t.Errorf("mismatched lengths error = %v, want CONFIGURATION", err)
	}
	candidates, err := eval.NamedCandidates([]string{"A", "B"}, nil)
	if err != nil {
		t.Fatalf("NamedCandidates() error = %v", err)
	}
	if len(candidates) != 2 || candidates[0].Name != "A" || candidates[1].Library != "" {
		t.Errorf("NamedCandidates() = %+v", candidates)
	}
}
