package graph

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rushteam/grapheval/core"
)

// FromEdgeListFile 从边表文件加载图。
//
// 文件格式：每行一条有向边 "src dst"，以空白分隔；
// 可选第三列为源节点类型名。以 '#' 开头的行视为注释。
// 节点按首次出现顺序分配 ID。
func FromEdgeListFile(path, name string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edge list %q: %w", path, err)
	}
	defer f.Close()

	var (
		nodeNames []string
		nodeIndex = make(map[string]int)
		edges     [][2]int
		typeNames []string
		typeIndex = make(map[string]int)
		nodeTypes []int
		hasTypes  bool
	)
	internNode := func(n string) int {
		if id, ok := nodeIndex[n]; ok {
			return id
		}
		id := len(nodeNames)
		nodeIndex[n] = id
		nodeNames = append(nodeNames, n)
		nodeTypes = append(nodeTypes, -1)
		return id
	}

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, core.NewDomainError(core.ModuleGraph, core.ErrorCodeConfiguration,
				fmt.Sprintf("edge list %q line %d: expected at least 2 fields, got %d",
					path, line, len(fields)))
		}
		src := internNode(fields[0])
		dst := internNode(fields[1])
		edges = append(edges, [2]int{src, dst})
		if len(fields) >= 3 {
			hasTypes = true
			t, ok := typeIndex[fields[2]]
			if !ok {
				t = len(typeNames)
				typeIndex[fields[2]] = t
				typeNames = append(typeNames, fields[2])
			}
			nodeTypes[src] = t
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read edge list %q: %w", path, err)
	}

	g, err := New(name, nodeNames, edges)
	if err != nil {
		return nil, err
	}
	if hasTypes {
		if _, err := g.WithNodeTypes(typeNames, nodeTypes); err != nil {
			return nil, err
		}
	}
	return g, nil
}
