package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/grapheval/core"
)

func TestFromEdgeListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.tsv")
	content := "# comment line\n" +
		"a\tb\tgene\n" +
		"b\tc\tgene\n" +
		"c\ta\tterm\n" +
		"\n" +
		"a\tc\tgene\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	g, err := FromEdgeListFile(path, "loaded")
	if err != nil {
		t.Fatalf("FromEdgeListFile() error = %v", err)
	}
	if g.Name() != "loaded" {
		t.Errorf("Name() = %q", g.Name())
	}
	if g.NumberOfNodes() != 3 {
		t.Errorf("nodes = %d, want 3", g.NumberOfNodes())
	}
	if g.NumberOfDirectedEdges() != 4 {
		t.Errorf("edges = %d, want 4", g.NumberOfDirectedEdges())
	}
	if !g.HasNodeTypes() {
		t.Fatalf("third column must populate node types")
	}
	// 类型按源节点归属：a 与 b 为 gene，c 为 term
	types := g.NodeTypeIDs()
	names := g.NodeTypeNames()
	if names[types[0]] != "gene" || names[types[1]] != "gene" || names[types[2]] != "term" {
		t.Errorf("node types = %v (%v)", types, names)
	}
}

func TestFromEdgeListFile_MalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsv")
	if err := os.WriteFile(path, []byte("only_one_field\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := FromEdgeListFile(path, "bad"); !core.IsConfiguration(err) {
		t.Fatalf("FromEdgeListFile() error = %v, want CONFIGURATION", err)
	}
}

func TestFromEdgeListFile_MissingFile(t *testing.T) {
	if _, err := FromEdgeListFile(filepath.Join(t.TempDir(), "nope.tsv"), "x"); err == nil {
		t.Fatalf("FromEdgeListFile() on a missing file must fail")
	}
}
