// Package graph 提供 core.Graph 的内存参考实现。
//
// 评估管线只依赖 core.Graph 接口；此实现面向中小规模图与测试场景，
// 节点 ID 为按插入顺序分配的稠密整数，所有随机操作显式接收种子。
package graph

import (
	"fmt"

	"github.com/rushteam/grapheval/core"
)

// Graph 是内存图：命名节点、可选节点类型、有向边集。
type Graph struct {
	name          string
	nodeNames     []string
	nodeIndex     map[string]int
	nodeTypeNames []string
	nodeTypeIDs   []int // 每个节点的类型 ID，-1 表示无标签
	edges         [][2]int
	edgeSet       map[[2]int]struct{}
	speedups      core.Speedups
}

// New 创建一个新图。edges 中的节点 ID 必须落在 [0, len(nodeNames)) 内。
func New(name string, nodeNames []string, edges [][2]int) (*Graph, error) {
	index := make(map[string]int, len(nodeNames))
	for i, n := range nodeNames {
		if _, ok := index[n]; ok {
			return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
				fmt.Sprintf("graph %q has duplicated node name %q", name, n))
		}
		index[n] = i
	}
	g := &Graph{
		name:        name,
		nodeNames:   nodeNames,
		nodeIndex:   index,
		nodeTypeIDs: make([]int, len(nodeNames)),
		edges:       make([][2]int, 0, len(edges)),
		edgeSet:     make(map[[2]int]struct{}, len(edges)),
	}
	for i := range g.nodeTypeIDs {
		g.nodeTypeIDs[i] = -1
	}
	for _, e := range edges {
		if e[0] < 0 || e[0] >= len(nodeNames) || e[1] < 0 || e[1] >= len(nodeNames) {
			return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
				fmt.Sprintf("graph %q has edge (%d, %d) outside of the node range [0, %d)",
					name, e[0], e[1], len(nodeNames)))
		}
		if _, ok := g.edgeSet[e]; ok {
			continue
		}
		g.edges = append(g.edges, e)
		g.edgeSet[e] = struct{}{}
	}
	return g, nil
}

// WithNodeTypes 设置节点类型词表与每个节点的类型 ID（-1 表示无标签），返回接收者。
func (g *Graph) WithNodeTypes(typeNames []string, nodeTypeIDs []int) (*Graph, error) {
	if len(nodeTypeIDs) != len(g.nodeNames) {
		return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
			fmt.Sprintf("graph %q has %d nodes but %d node type ids were provided",
				g.name, len(g.nodeNames), len(nodeTypeIDs)))
	}
	for _, t := range nodeTypeIDs {
		if t < -1 || t >= len(typeNames) {
			return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
				fmt.Sprintf("graph %q has node type id %d outside of the type range [0, %d)",
					g.name, t, len(typeNames)))
		}
	}
	g.nodeTypeNames = typeNames
	g.nodeTypeIDs = append([]int(nil), nodeTypeIDs...)
	return g, nil
}

func (g *Graph) Name() string               { return g.name }
func (g *Graph) NumberOfNodes() int         { return len(g.nodeNames) }
func (g *Graph) NumberOfDirectedEdges() int { return len(g.edges) }
func (g *Graph) NumberOfNodeTypes() int     { return len(g.nodeTypeNames) }
func (g *Graph) HasNodes() bool             { return len(g.nodeNames) > 0 }
func (g *Graph) HasEdges() bool             { return len(g.edges) > 0 }
func (g *Graph) HasNodeTypes() bool         { return len(g.nodeTypeNames) > 0 }

// HasEdgeTypes 返回 false：此实现暂不承载边类型。
func (g *Graph) HasEdgeTypes() bool { return false }

func (g *Graph) NodeNames() []string {
	return append([]string(nil), g.nodeNames...)
}

func (g *Graph) NodeTypeNames() []string {
	return append([]string(nil), g.nodeTypeNames...)
}

func (g *Graph) NodeTypeIDs() []int {
	return append([]int(nil), g.nodeTypeIDs...)
}

func (g *Graph) EdgeNodeIDs() [][2]int {
	return append([][2]int(nil), g.edges...)
}

func (g *Graph) Speedups() core.Speedups { return g.speedups }

func (g *Graph) EnableSpeedups(s core.Speedups) { g.speedups = s }

// HasEdgeByIDs 判断有向边 (src, dst) 是否存在。
func (g *Graph) HasEdgeByIDs(src, dst int) bool {
	_, ok := g.edgeSet[[2]int{src, dst}]
	return ok
}

// Contains 判断 other 的节点与边（按名称）是否全部包含于接收者。
func (g *Graph) Contains(other core.Graph) bool {
	names := other.NodeNames()
	for _, n := range names {
		if _, ok := g.nodeIndex[n]; !ok {
			return false
		}
	}
	for _, e := range other.EdgeNodeIDs() {
		src, okSrc := g.nodeIndex[names[e[0]]]
		dst, okDst := g.nodeIndex[names[e[1]]]
		if !okSrc || !okDst || !g.HasEdgeByIDs(src, dst) {
			return false
		}
	}
	return true
}

// HasCompatibleNodeVocabulary 判断 other 是否与接收者共享完全一致的节点词表（含顺序）。
func (g *Graph) HasCompatibleNodeVocabulary(other core.Graph) bool {
	names := other.NodeNames()
	if len(names) != len(g.nodeNames) {
		return false
	}
	for i, n := range names {
		if g.nodeNames[i] != n {
			return false
		}
	}
	return true
}

// NodeIDMapping 返回接收者每个节点 ID 在 parent 中对应的节点 ID。
func (g *Graph) NodeIDMapping(parent core.Graph) ([]int, error) {
	parentIndex := make(map[string]int)
	for i, n := range parent.NodeNames() {
		parentIndex[n] = i
	}
	mapping := make([]int, len(g.nodeNames))
	for i, n := range g.nodeNames {
		id, ok := parentIndex[n]
		if !ok {
			return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeContainment,
				fmt.Sprintf("node %q of graph %q is not present in graph %q",
					n, g.name, parent.Name()))
		}
		mapping[i] = id
	}
	return mapping, nil
}

// derive 构建共享节点词表与类型信息的新图，仅边集不同。
func (g *Graph) derive(edges [][2]int) *Graph {
	edgeSet := make(map[[2]int]struct{}, len(edges))
	for _, e := range edges {
		edgeSet[e] = struct{}{}
	}
	return &Graph{
		name:          g.name,
		nodeNames:     g.nodeNames,
		nodeIndex:     g.nodeIndex,
		nodeTypeNames: g.nodeTypeNames,
		nodeTypeIDs:   g.nodeTypeIDs,
		edges:         edges,
		edgeSet:       edgeSet,
		speedups:      g.speedups,
	}
}
