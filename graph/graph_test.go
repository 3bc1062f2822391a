package graph

import (
	"testing"

	"github.com/rushteam/grapheval/core"
)

// ringGraph 构建 n 节点的有向环加弦，保证连通且有足够多的边可划分。
func ringGraph(t *testing.T, n int) *Graph {
	t.Helper()
	names := make([]string, n)
	for i := range names {
		names[i] = string(rune('a' + i%26)) + string(rune('0'+i/26))
	}
	var edges [][2]int
	for i := 0; i < n; i++ {
		edges = append(edges, [2]int{i, (i + 1) % n})
		edges = append(edges, [2]int{i, (i + 2) % n})
	}
	g, err := New("ring", names, edges)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func edgeKeySet(g core.Graph) map[[2]string]struct{} {
	names := g.NodeNames()
	set := make(map[[2]string]struct{})
	for _, e := range g.EdgeNodeIDs() {
		set[[2]string{names[e[0]], names[e[1]]}] = struct{}{}
	}
	return set
}

func TestNew_RejectsDuplicateNodeNames(t *testing.T) {
	_, err := New("dup", []string{"a", "a"}, nil)
	if !core.IsConfiguration(err) {
		t.Fatalf("New() error = %v, want CONFIGURATION", err)
	}
}

func TestNew_RejectsOutOfRangeEdges(t *testing.T) {
	_, err := New("oob", []string{"a", "b"}, [][2]int{{0, 5}})
	if !core.IsConfiguration(err) {
		t.Fatalf("New() error = %v, want CONFIGURATION", err)
	}
}

func TestRandomHoldout_PartitionsEdges(t *testing.T) {
	g := ringGraph(t, 20)
	train, test, err := g.RandomHoldout(0.8, 42)
	if err != nil {
		t.Fatalf("RandomHoldout() error = %v", err)
	}

	// 两侧不相交、并为全集
	trainEdges := edgeKeySet(train)
	testEdges := edgeKeySet(test)
	if len(trainEdges)+len(testEdges) != g.NumberOfDirectedEdges() {
		t.Errorf("train %d + test %d edges, want %d in total",
			len(trainEdges), len(testEdges), g.NumberOfDirectedEdges())
	}
	for e := range trainEdges {
		if _, ok := testEdges[e]; ok {
			t.Errorf("edge %v present in both partitions", e)
		}
	}

	// 节点词表在两侧保持不变
	if train.NumberOfNodes() != g.NumberOfNodes() || test.NumberOfNodes() != g.NumberOfNodes() {
		t.Errorf("partitions must preserve the node vocabulary")
	}

	// 比例近似命中
	want := int(0.8 * float64(g.NumberOfDirectedEdges()))
	got := train.NumberOfDirectedEdges()
	if got < want-1 || got > want+1 {
		t.Errorf("train edges = %d, want about %d", got, want)
	}
}

func TestRandomHoldout_IsDeterministic(t *testing.T) {
	g := ringGraph(t, 20)
	trainA, _, err := g.RandomHoldout(0.8, 42)
	if err != nil {
		t.Fatalf("RandomHoldout() error = %v", err)
	}
	trainB, _, err := g.RandomHoldout(0.8, 42)
	if err != nil {
		t.Fatalf("RandomHoldout() error = %v", err)
	}
	a, b := edgeKeySet(trainA), edgeKeySet(trainB)
	if len(a) != len(b) {
		t.Fatalf("same seed produced different partition sizes: %d vs %d", len(a), len(b))
	}
	for e := range a {
		if _, ok := b[e]; !ok {
			t.Fatalf("same seed produced different partitions")
		}
	}

	trainC, _, err := g.RandomHoldout(0.8, 43)
	if err != nil {
		t.Fatalf("RandomHoldout() error = %v", err)
	}
	c := edgeKeySet(trainC)
	same := true
	for e := range a {
		if _, ok := c[e]; !ok {
			same = false
			break
		}
	}
	if same {
		t.Errorf("different seeds produced identical partitions")
	}
}

func TestRandomHoldout_RejectsInvalidTrainSize(t *testing.T) {
	g := ringGraph(t, 10)
	for _, trainSize := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := g.RandomHoldout(trainSize, 42); !core.IsConfiguration(err) {
			t.Errorf("RandomHoldout(%v) error = %v, want CONFIGURATION", trainSize, err)
		}
	}
}

func TestConnectedHoldout_PreservesConnectivity(t *testing.T) {
	g := ringGraph(t, 20)
	train, test, err := g.ConnectedHoldout(0.7, 42)
	if err != nil {
		t.Fatalf("ConnectedHoldout() error = %v", err)
	}
	if !test.HasEdges() {
		t.Fatalf("test partition has no edges")
	}

	// 训练图必须连通（按无向解释）
	parent := make([]int, train.NumberOfNodes())
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	for _, e := range train.EdgeNodeIDs() {
		parent[find(e[0])] = find(e[1])
	}
	root := find(0)
	for i := 1; i < train.NumberOfNodes(); i++ {
		if find(i) != root {
			t.Fatalf("train partition is not connected: node %d in a separate component", i)
		}
	}
}

func TestEdgePredictionKfold_FoldsCoverAllEdges(t *testing.T) {
	g := ringGraph(t, 15)
	const k = 5
	covered := make(map[[2]string]int)
	for fold := 0; fold < k; fold++ {
		train, test, err := g.EdgePredictionKfold(k, fold, 42)
		if err != nil {
			t.Fatalf("EdgePredictionKfold(fold=%d) error = %v", fold, err)
		}
		if train.NumberOfDirectedEdges()+test.NumberOfDirectedEdges() != g.NumberOfDirectedEdges() {
			t.Errorf("fold %d does not partition the edge set", fold)
		}
		for e := range edgeKeySet(test) {
			covered[e]++
		}
	}
	// 每条边恰好落入一个测试折
	if len(covered) != g.NumberOfDirectedEdges() {
		t.Errorf("test folds cover %d edges, want %d", len(covered), g.NumberOfDirectedEdges())
	}
	for e, n := range covered {
		if n != 1 {
			t.Errorf("edge %v appears in %d test folds, want 1", e, n)
		}
	}
}

func TestEdgePredictionKfold_RejectsInvalidFolds(t *testing.T) {
	g := ringGraph(t, 10)
	if _, _, err := g.EdgePredictionKfold(1, 0, 42); !core.IsConfiguration(err) {
		t.Errorf("k=1 error = %v, want CONFIGURATION", err)
	}
	if _, _, err := g.EdgePredictionKfold(5, 5, 42); !core.IsConfiguration(err) {
		t.Errorf("kIndex=k error = %v, want CONFIGURATION", err)
	}
}

func TestNodeLabelHoldout_MasksLabelsOutsidePartition(t *testing.T) {
	g := ringGraph(t, 12)
	types := make([]int, 12)
	for i := range types {
		types[i] = i % 3
	}
	if _, err := g.WithNodeTypes([]string{"x", "y", "z"}, types); err != nil {
		t.Fatalf("WithNodeTypes() error = %v", err)
	}

	train, test, err := g.NodeLabelHoldout(0.75, 42)
	if err != nil {
		t.Fatalf("NodeLabelHoldout() error = %v", err)
	}

	// 两侧共享完整拓扑
	if train.NumberOfDirectedEdges() != g.NumberOfDirectedEdges() {
		t.Errorf("train partition lost edges: %d, want %d",
			train.NumberOfDirectedEdges(), g.NumberOfDirectedEdges())
	}

	trainTypes := train.NodeTypeIDs()
	testTypes := test.NodeTypeIDs()
	var trainLabeled, testLabeled int
	for i := range trainTypes {
		trainHas := trainTypes[i] >= 0
		testHas := testTypes[i] >= 0
		if trainHas && testHas {
			t.Errorf("node %d is labelled in both partitions", i)
		}
		if trainHas {
			trainLabeled++
			if trainTypes[i] != types[i] {
				t.Errorf("node %d label changed: %d, want %d", i, trainTypes[i], types[i])
			}
		}
		if testHas {
			testLabeled++
		}
	}
	if trainLabeled+testLabeled != 12 {
		t.Errorf("labelled nodes = %d + %d, want 12", trainLabeled, testLabeled)
	}
	if trainLabeled != 9 {
		t.Errorf("train labelled nodes = %d, want 9", trainLabeled)
	}
}

func TestFilterFromNodeNames_ReindexesInducedSubgraph(t *testing.T) {
	g, err := New("square", []string{"a", "b", "c", "d"},
		[][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sub, err := g.FilterFromNodeNames([]string{"b", "c", "d"})
	if err != nil {
		t.Fatalf("FilterFromNodeNames() error = %v", err)
	}
	if got := sub.NumberOfNodes(); got != 3 {
		t.Fatalf("nodes = %d, want 3", got)
	}
	// 只有两端都保留的边才带入：b->c 与 c->d
	want := map[[2]string]struct{}{
		{"b", "c"}: {},
		{"c", "d"}: {},
	}
	got := edgeKeySet(sub)
	if len(got) != len(want) {
		t.Fatalf("edges = %v, want %v", got, want)
	}
	for e := range want {
		if _, ok := got[e]; !ok {
			t.Errorf("missing edge %v", e)
		}
	}
}

func TestIntersection_KeepsCommonEdgesOnly(t *testing.T) {
	g, _ := New("g", []string{"a", "b", "c"}, [][2]int{{0, 1}, {1, 2}, {2, 0}})
	other, _ := New("h", []string{"a", "b", "c"}, [][2]int{{0, 1}})
	inter, err := g.Intersection(other)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if inter.NumberOfDirectedEdges() != 1 {
		t.Fatalf("intersection edges = %d, want 1", inter.NumberOfDirectedEdges())
	}
	// 保留接收者的节点词表
	if inter.NumberOfNodes() != 3 {
		t.Errorf("intersection nodes = %d, want 3", inter.NumberOfNodes())
	}
}

func TestUnion_RequiresCompatibleVocabulary(t *testing.T) {
	g, _ := New("g", []string{"a", "b"}, [][2]int{{0, 1}})
	other, _ := New("h", []string{"a", "b", "c"}, [][2]int{{0, 1}})
	if _, err := g.Union(other); !core.IsConfiguration(err) {
		t.Fatalf("Union() error = %v, want CONFIGURATION", err)
	}

	same, _ := New("h", []string{"a", "b"}, [][2]int{{1, 0}})
	union, err := g.Union(same)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	if union.NumberOfDirectedEdges() != 2 {
		t.Errorf("union edges = %d, want 2", union.NumberOfDirectedEdges())
	}
}

func TestSampleNegativeGraph_AvoidsExistingAndAvoidedEdges(t *testing.T) {
	g := ringGraph(t, 15)
	negative, err := g.SampleNegativeGraph(10, 42, g)
	if err != nil {
		t.Fatalf("SampleNegativeGraph() error = %v", err)
	}
	if negative.NumberOfDirectedEdges() != 10 {
		t.Fatalf("negative edges = %d, want 10", negative.NumberOfDirectedEdges())
	}
	for _, e := range negative.EdgeNodeIDs() {
		if e[0] == e[1] {
			t.Errorf("sampled a self loop (%d, %d)", e[0], e[1])
		}
		if g.HasEdgeByIDs(e[0], e[1]) {
			t.Errorf("sampled an existing edge (%d, %d)", e[0], e[1])
		}
	}

	// 同种子可复现
	again, err := g.SampleNegativeGraph(10, 42, g)
	if err != nil {
		t.Fatalf("SampleNegativeGraph() error = %v", err)
	}
	a, b := edgeKeySet(negative), edgeKeySet(again)
	for e := range a {
		if _, ok := b[e]; !ok {
			t.Fatalf("same seed produced different negative samples")
		}
	}
}

func TestSampleNegativeGraph_FailsOnDenseGraph(t *testing.T) {
	// 完全图没有可采样的负边
	var edges [][2]int
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i != j {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	g, _ := New("complete", []string{"a", "b", "c"}, edges)
	if _, err := g.SampleNegativeGraph(5, 42, nil); !core.IsEmptyPartition(err) {
		t.Fatalf("SampleNegativeGraph() error = %v, want EMPTY_PARTITION", err)
	}
}

func TestContains_And_NodeIDMapping(t *testing.T) {
	g, _ := New("parent", []string{"a", "b", "c", "d"},
		[][2]int{{0, 1}, {1, 2}, {2, 3}})
	sub, err := g.FilterFromNodeNames([]string{"b", "c"})
	if err != nil {
		t.Fatalf("FilterFromNodeNames() error = %v", err)
	}
	if !g.Contains(sub) {
		t.Errorf("parent must contain its induced subgraph")
	}

	mapping, err := sub.(*Graph).NodeIDMapping(g)
	if err != nil {
		t.Fatalf("NodeIDMapping() error = %v", err)
	}
	want := []int{1, 2}
	for i, id := range mapping {
		if id != want[i] {
			t.Errorf("mapping[%d] = %d, want %d", i, id, want[i])
		}
	}

	stranger, _ := New("other", []string{"z"}, nil)
	if _, err := stranger.NodeIDMapping(g); !core.IsContainment(err) {
		t.Errorf("NodeIDMapping() error = %v, want CONTAINMENT", err)
	}
}
