// Package dsl 提供基于 CEL (Common Expression Language) 的节点谓词，
// 用于从图中筛出关注子图：对每个节点求值一个布尔表达式，
// 命中的节点构成诱导子图。
//
// 表达式可用变量：
//   - name: 节点名
//   - node_type: 节点类型名，无类型节点为 ""
//   - degree: 节点总度（出度 + 入度）
//
// 示例：
//   - `node_type == "gene"` → 只保留基因节点
//   - `degree > 10` → 只保留高度节点
//   - `name.startsWith("GO:") && degree > 0` → 组合条件
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/grapheval/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("name", cel.StringType),
			cel.Variable("node_type", cel.StringType),
			cel.Variable("degree", cel.IntType),
		)
	})
	return celEnv, celEnvErr
}

// Selector 是一个已编译的节点谓词，可在多个图上复用。
type Selector struct {
	expr string
	prg  cel.Program
}

// NewSelector 编译节点谓词表达式。
func NewSelector(expr string) (*Selector, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	return &Selector{expr: expr, prg: prg}, nil
}

// Expression 返回源表达式。
func (s *Selector) Expression() string { return s.expr }

// SelectNodeNames 返回谓词命中的节点名序列，按节点 ID 顺序。
func (s *Selector) SelectNodeNames(g core.Graph) ([]string, error) {
	degrees := make([]int64, g.NumberOfNodes())
	for _, edge := range g.EdgeNodeIDs() {
		degrees[edge[0]]++
		degrees[edge[1]]++
	}

	typeNames := g.NodeTypeNames()
	typeIDs := g.NodeTypeIDs()

	var selected []string
	for node, name := range g.NodeNames() {
		nodeType := ""
		if typeIDs[node] >= 0 {
			nodeType = typeNames[typeIDs[node]]
		}
		out, _, err := s.prg.Eval(map[string]any{
			"name":      name,
			"node_type": nodeType,
			"degree":    degrees[node],
		})
		if err != nil {
			return nil, fmt.Errorf("eval error on node %q: %v", name, err)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("expression must return boolean, got %T", out.Value())
		}
		if matched {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

// SelectSubgraph 返回谓词命中节点的诱导子图。
func (s *Selector) SelectSubgraph(g core.Graph) (core.Graph, error) {
	names, err := s.SelectNodeNames(g)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeEmptyPartition,
			fmt.Sprintf("the selector %q did not match any node of graph %q", s.expr, g.Name()))
	}
	return g.FilterFromNodeNames(names)
}
