package graph

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rushteam/grapheval/core"
)

func (g *Graph) validateTrainSize(trainSize float64) error {
	if trainSize <= 0 || trainSize >= 1 {
		return core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("train size must be in the open interval (0, 1), but %v was provided", trainSize))
	}
	return nil
}

func (g *Graph) shuffledEdgeIndices(randomState int64) []int {
	indices := make([]int, len(g.edges))
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(randomState))
	rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}

func (g *Graph) splitEdgesByIndices(trainIndices, testIndices []int) (core.Graph, core.Graph) {
	train := make([][2]int, 0, len(trainIndices))
	for _, i := range trainIndices {
		train = append(train, g.edges[i])
	}
	test := make([][2]int, 0, len(testIndices))
	for _, i := range testIndices {
		test = append(test, g.edges[i])
	}
	return g.derive(train), g.derive(test)
}

// RandomHoldout 按 trainSize 比例随机划分边集。
// 两侧边集不相交且并为全集；节点词表与类型在两侧保持不变。
func (g *Graph) RandomHoldout(trainSize float64, randomState int64) (core.Graph, core.Graph, error) {
	if err := g.validateTrainSize(trainSize); err != nil {
		return nil, nil, err
	}
	if !g.HasEdges() {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeEmptyPartition,
			fmt.Sprintf("graph %q has no edges to split", g.name))
	}
	indices := g.shuffledEdgeIndices(randomState)
	cut := int(math.Round(trainSize * float64(len(indices))))
	if cut == 0 {
		cut = 1
	}
	if cut == len(indices) {
		cut = len(indices) - 1
	}
	train, test := g.splitEdgesByIndices(indices[:cut], indices[cut:])
	return train, test, nil
}

// ConnectedHoldout 随机划分边集，同时保证训练图保持父图的连通分量结构：
// 先以随机顺序收集一组生成边放入训练集，再从剩余边中随机补足至目标比例。
// 生成边数量可能超过目标比例，此时连通性优先。
func (g *Graph) ConnectedHoldout(trainSize float64, randomState int64) (core.Graph, core.Graph, error) {
	if err := g.validateTrainSize(trainSize); err != nil {
		return nil, nil, err
	}
	if !g.HasEdges() {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeEmptyPartition,
			fmt.Sprintf("graph %q has no edges to split", g.name))
	}
	indices := g.shuffledEdgeIndices(randomState)

	parent := make([]int, len(g.nodeNames))
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

	spanning := make([]int, 0, len(g.nodeNames))
	pool := make([]int, 0, len(indices))
	for _, i := range indices {
		e := g.edges[i]
		// 连通性按无向解释判断
		rootSrc, rootDst := find(e[0]), find(e[1])
		if rootSrc != rootDst {
			parent[rootSrc] = rootDst
			spanning = append(spanning, i)
		} else {
			pool = append(pool, i)
		}
	}

	target := int(math.Round(trainSize * float64(len(indices))))
	trainIndices := spanning
	testIndices := make([]int, 0, len(pool))
	for _, i := range pool {
		if len(trainIndices) < target {
			trainIndices = append(trainIndices, i)
		} else {
			testIndices = append(testIndices, i)
		}
	}
	if len(testIndices) == 0 {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeEmptyPartition,
			fmt.Sprintf("graph %q cannot be split while preserving connectivity: "+
				"no edges remain for the test partition", g.name))
	}
	train, test := g.splitEdgesByIndices(trainIndices, testIndices)
	return train, test, nil
}

// EdgePredictionKfold 返回第 kIndex 折的边划分。
// 折成员关系由 randomState 决定，不随 kIndex 偏移：折号本身已提供划分间差异。
func (g *Graph) EdgePredictionKfold(k, kIndex int, randomState int64) (core.Graph, core.Graph, error) {
	if k < 2 || k > len(g.edges) {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("the number of folds must be in [2, %d], but %d was provided", len(g.edges), k))
	}
	if kIndex < 0 || kIndex >= k {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("the fold index must be in [0, %d), but %d was provided", k, kIndex))
	}
	indices := g.shuffledEdgeIndices(randomState)
	foldStart := kIndex * len(indices) / k
	foldEnd := (kIndex + 1) * len(indices) / k
	testIndices := indices[foldStart:foldEnd]
	trainIndices := make([]int, 0, len(indices)-len(testIndices))
	trainIndices = append(trainIndices, indices[:foldStart]...)
	trainIndices = append(trainIndices, indices[foldEnd:]...)
	train, test := g.splitEdgesByIndices(trainIndices, testIndices)
	return train, test, nil
}

func (g *Graph) labeledNodeIDs() []int {
	labeled := make([]int, 0, len(g.nodeTypeIDs))
	for i, t := range g.nodeTypeIDs {
		if t >= 0 {
			labeled = append(labeled, i)
		}
	}
	return labeled
}

// maskLabelsOutside 返回共享拓扑、仅保留 keep 集内节点标签的新图。
func (g *Graph) maskLabelsOutside(keep map[int]struct{}) *Graph {
	masked := g.derive(g.edges)
	types := make([]int, len(g.nodeTypeIDs))
	for i, t := range g.nodeTypeIDs {
		if _, ok := keep[i]; ok {
			types[i] = t
		} else {
			types[i] = -1
		}
	}
	masked.nodeTypeIDs = types
	return masked
}

// NodeLabelHoldout 按 trainSize 比例随机划分带标签节点。
// 两侧共享完整拓扑，各自仅保留自己划分内节点的标签。
func (g *Graph) NodeLabelHoldout(trainSize float64, randomState int64) (core.Graph, core.Graph, error) {
	if err := g.validateTrainSize(trainSize); err != nil {
		return nil, nil, err
	}
	labeled := g.labeledNodeIDs()
	if len(labeled) < 2 {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeEmptyPartition,
			fmt.Sprintf("graph %q has %d labelled nodes, at least 2 are required for a node label holdout",
				g.name, len(labeled)))
	}
	rng := rand.New(rand.NewSource(randomState))
	rng.Shuffle(len(labeled), func(i, j int) {
		labeled[i], labeled[j] = labeled[j], labeled[i]
	})
	cut := int(math.Round(trainSize * float64(len(labeled))))
	if cut == 0 {
		cut = 1
	}
	if cut == len(labeled) {
		cut = len(labeled) - 1
	}
	trainKeep := make(map[int]struct{}, cut)
	for _, id := range labeled[:cut] {
		trainKeep[id] = struct{}{}
	}
	testKeep := make(map[int]struct{}, len(labeled)-cut)
	for _, id := range labeled[cut:] {
		testKeep[id] = struct{}{}
	}
	return g.maskLabelsOutside(trainKeep), g.maskLabelsOutside(testKeep), nil
}

// NodeLabelKfold 返回第 kIndex 折的节点标签划分。
func (g *Graph) NodeLabelKfold(k, kIndex int, randomState int64) (core.Graph, core.Graph, error) {
	labeled := g.labeledNodeIDs()
	if k < 2 || k > len(labeled) {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("the number of folds must be in [2, %d], but %d was provided", len(labeled), k))
	}
	if kIndex < 0 || kIndex >= k {
		return nil, nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("the fold index must be in [0, %d), but %d was provided", k, kIndex))
	}
	rng := rand.New(rand.NewSource(randomState))
	rng.Shuffle(len(labeled), func(i, j int) {
		labeled[i], labeled[j] = labeled[j], labeled[i]
	})
	foldStart := kIndex * len(labeled) / k
	foldEnd := (kIndex + 1) * len(labeled) / k
	testKeep := make(map[int]struct{}, foldEnd-foldStart)
	for _, id := range labeled[foldStart:foldEnd] {
		testKeep[id] = struct{}{}
	}
	trainKeep := make(map[int]struct{}, len(labeled)-len(testKeep))
	for _, id := range labeled {
		if _, ok := testKeep[id]; !ok {
			trainKeep[id] = struct{}{}
		}
	}
	return g.maskLabelsOutside(trainKeep), g.maskLabelsOutside(testKeep), nil
}

// FilterFromNodeNames 返回仅保留给定名称节点的诱导子图。
// 节点按父图 ID 顺序重新编号，类型与两端都保留的边一并带入。
func (g *Graph) FilterFromNodeNames(names []string) (core.Graph, error) {
	keep := make(map[int]struct{}, len(names))
	for _, n := range names {
		if id, ok := g.nodeIndex[n]; ok {
			keep[id] = struct{}{}
		}
	}
	newNames := make([]string, 0, len(keep))
	newTypes := make([]int, 0, len(keep))
	oldToNew := make(map[int]int, len(keep))
	for id, n := range g.nodeNames {
		if _, ok := keep[id]; ok {
			oldToNew[id] = len(newNames)
			newNames = append(newNames, n)
			newTypes = append(newTypes, g.nodeTypeIDs[id])
		}
	}
	edges := make([][2]int, 0, len(g.edges))
	for _, e := range g.edges {
		src, okSrc := oldToNew[e[0]]
		dst, okDst := oldToNew[e[1]]
		if okSrc && okDst {
			edges = append(edges, [2]int{src, dst})
		}
	}
	filtered, err := New(g.name, newNames, edges)
	if err != nil {
		return nil, err
	}
	if g.HasNodeTypes() {
		if _, err := filtered.WithNodeTypes(g.nodeTypeNames, newTypes); err != nil {
			return nil, err
		}
	}
	filtered.speedups = g.speedups
	return filtered, nil
}

// Intersection 返回与 other 共有的边构成的图，保留接收者的节点词表与类型。
func (g *Graph) Intersection(other core.Graph) (core.Graph, error) {
	otherNames := other.NodeNames()
	otherEdges := make(map[[2]string]struct{})
	for _, e := range other.EdgeNodeIDs() {
		otherEdges[[2]string{otherNames[e[0]], otherNames[e[1]]}] = struct{}{}
	}
	edges := make([][2]int, 0, len(g.edges))
	for _, e := range g.edges {
		key := [2]string{g.nodeNames[e[0]], g.nodeNames[e[1]]}
		if _, ok := otherEdges[key]; ok {
			edges = append(edges, e)
		}
	}
	return g.derive(edges), nil
}

// Union 返回两图边集之并，要求节点词表兼容。
func (g *Graph) Union(other core.Graph) (core.Graph, error) {
	if !g.HasCompatibleNodeVocabulary(other) {
		return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("graphs %q and %q do not share the same node vocabulary, "+
				"their union is not defined", g.name, other.Name()))
	}
	edges := append([][2]int(nil), g.edges...)
	for _, e := range other.EdgeNodeIDs() {
		if !g.HasEdgeByIDs(e[0], e[1]) {
			edges = append(edges, e)
		}
	}
	return g.derive(edges), nil
}

// SampleNegativeGraph 采样 n 条既不在接收者也不在 avoid 中的负边（不含自环）。
// 超过最大尝试次数仍未集齐时返回错误，避免在稠密图上死循环。
func (g *Graph) SampleNegativeGraph(n int, randomState int64, avoid core.Graph) (core.Graph, error) {
	if n <= 0 {
		return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("the number of negative samples must be positive, but %d was provided", n))
	}
	avoidEdges := make(map[[2]string]struct{})
	if avoid != nil {
		avoidNames := avoid.NodeNames()
		for _, e := range avoid.EdgeNodeIDs() {
			avoidEdges[[2]string{avoidNames[e[0]], avoidNames[e[1]]}] = struct{}{}
		}
	}
	rng := rand.New(rand.NewSource(randomState))
	sampled := make([][2]int, 0, n)
	seen := make(map[[2]int]struct{}, n)
	maxAttempts := 100 * n
	for attempts := 0; len(sampled) < n; attempts++ {
		if attempts >= maxAttempts {
			return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeEmptyPartition,
				fmt.Sprintf("could not sample %d negative edges from graph %q after %d attempts, "+
					"the graph may be too dense", n, g.name, maxAttempts))
		}
		src := rng.Intn(len(g.nodeNames))
		dst := rng.Intn(len(g.nodeNames))
		if src == dst {
			continue
		}
		e := [2]int{src, dst}
		if _, ok := seen[e]; ok {
			continue
		}
		if g.HasEdgeByIDs(src, dst) {
			continue
		}
		if _, ok := avoidEdges[[2]string{g.nodeNames[src], g.nodeNames[dst]}]; ok {
			continue
		}
		seen[e] = struct{}{}
		sampled = append(sampled, e)
	}
	return g.derive(sampled), nil
}
