// Package config 把 YAML 描述的评估运行解析为一次 eval.Evaluate 调用：
// 图文件、任务、评估模式、候选模型、特征、缓存后端与分片设置。
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/grapheval/cache"
	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/edgeprediction"
	_ "github.com/rushteam/grapheval/embedders"
	"github.com/rushteam/grapheval/eval"
	"github.com/rushteam/grapheval/ext/feast"
	"github.com/rushteam/grapheval/feature"
	"github.com/rushteam/grapheval/graph"
	"github.com/rushteam/grapheval/nodelabel"
	"github.com/rushteam/grapheval/pkg/conv"
	"github.com/rushteam/grapheval/pkg/dsl"
	"github.com/rushteam/grapheval/report"
	"github.com/rushteam/grapheval/schema"
)

// RunConfig 是一次评估运行的完整描述（支持 YAML）。
type RunConfig struct {
	Graph struct {
		// Path 是空白分隔的边表文件：src dst [src_type]，# 开头为注释。
		Path string `yaml:"path"`
		Name string `yaml:"name"`
	} `yaml:"graph"`

	// Task 是任务名：Edge Prediction / Node Label Prediction。
	Task string `yaml:"task"`

	Evaluation struct {
		Schema           string         `yaml:"schema"`
		SchemaParams     map[string]any `yaml:"schema_params"`
		NumberOfHoldouts int            `yaml:"number_of_holdouts"`
		RandomState      int64          `yaml:"random_state"`
		UnbalanceRates   []float64      `yaml:"unbalance_rates"`
		SmokeTest        bool           `yaml:"smoke_test"`
		// PrecomputeConstantStochasticFeatures 见 feature.Options 同名语义。
		PrecomputeConstantStochasticFeatures bool `yaml:"precompute_constant_stochastic_features"`
	} `yaml:"evaluation"`

	Models []ModelConfig `yaml:"models"`

	Features struct {
		// Node、NodeType、Edge 是注册表中的嵌入模型名。
		Node     []string `yaml:"node"`
		NodeType []string `yaml:"node_type"`
		Edge     []string `yaml:"edge"`
		// Source 非空时在运行前从外部特征库为每个节点抓取一行特征，
		// 以带行名矩阵的形式追加到节点特征。
		Source *SourceConfig `yaml:"source"`
	} `yaml:"features"`

	Subgraph struct {
		// Selector 是 CEL 节点谓词，非空时筛出关注子图。
		Selector     string `yaml:"selector"`
		UseAsSupport bool   `yaml:"use_as_support"`
	} `yaml:"subgraph"`

	Cache struct {
		// Backend 是 fs / memory / redis 之一，空串禁用缓存。
		Backend string         `yaml:"backend"`
		Config  map[string]any `yaml:"config"`
	} `yaml:"cache"`

	Sharding struct {
		Shards     int    `yaml:"shards"`
		IDVariable string `yaml:"id_variable"`
	} `yaml:"sharding"`
}

// ModelConfig 是单个候选模型的配置。
type ModelConfig struct {
	Name    string `yaml:"name"`
	Library string `yaml:"library"`
}

// SourceConfig 描述一个外部特征来源；kind 目前支持 feast。
type SourceConfig struct {
	Kind       string `yaml:"kind"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Project    string `yaml:"project"`
	EntityName string `yaml:"entity_name"`
	// Features 是要抓取的特征引用，顺序即结果矩阵的列序。
	Features []string `yaml:"features"`
}

// LoadFromYAML 从 YAML 文件加载运行配置。
func LoadFromYAML(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// BuildTask 把任务名解析为任务实现。
func BuildTask(name string) (eval.Task, error) {
	switch name {
	case edgeprediction.TaskName:
		return edgeprediction.New(), nil
	case nodelabel.TaskName:
		return nodelabel.New(), nil
	}
	return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeConfiguration,
		fmt.Sprintf("the requested task %q is not available, the available tasks are: "+
			"%s, %s", name, edgeprediction.TaskName, nodelabel.TaskName))
}

// BuildStore 按配置构建缓存后端；backend 为空返回 (nil, nil) 表示禁用。
func BuildStore(backend string, config map[string]any) (cache.Store, error) {
	switch backend {
	case "":
		return nil, nil
	case "fs":
		return cache.NewFSStore(conv.ConfigGet[string](config, "root", "experiments"))
	case "memory":
		return cache.NewMemoryStore(conv.ConfigGetInt64(config, "max_cost_bytes", 0))
	case "redis":
		addr := conv.ConfigGet[string](config, "addr", "127.0.0.1:6379")
		db := int(conv.ConfigGetInt64(config, "db", 0))
		prefix := conv.ConfigGet[string](config, "prefix", "grapheval")
		return cache.NewRedisStore(addr, db, prefix)
	}
	return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeConfiguration,
		fmt.Sprintf("the requested cache backend %q is not available, the available "+
			"backends are: fs, memory, redis", backend))
}

// BuildSource 按配置构建外部特征来源；cfg 为 nil 返回 (nil, nil) 表示未配置。
func BuildSource(cfg *SourceConfig) (feature.Source, error) {
	if cfg == nil {
		return nil, nil
	}
	switch cfg.Kind {
	case "feast":
		return feast.NewSource(cfg.Host, cfg.Port, cfg.Project, cfg.EntityName, cfg.Features)
	}
	return nil, core.NewDomainError(core.ModuleConfig, core.ErrorCodeConfiguration,
		fmt.Sprintf("the requested feature source kind %q is not available, the "+
			"available kinds are: feast", cfg.Kind))
}

// fetchSourceFeatures 从外部特征来源为图的每个节点抓取一行特征。
// 行名对齐交给特征归一化器，来源返回的节点顺序无需与图一致。
func fetchSourceFeatures(ctx context.Context, source feature.Source, g core.Graph) (feature.Spec, error) {
	labeled, err := source.Fetch(ctx, g.NodeNames())
	if err != nil {
		return nil, fmt.Errorf("fetch node features from the %s source: %w", source.Name(), err)
	}
	return labeled, nil
}

// Resolve 把配置落位为一次评估调用的全部输入。
func (c *RunConfig) Resolve() (eval.Task, []eval.Candidate, core.Graph, string, eval.Options, error) {
	var zero eval.Options

	task, err := BuildTask(c.Task)
	if err != nil {
		return nil, nil, nil, "", zero, err
	}

	if c.Graph.Path == "" {
		return nil, nil, nil, "", zero, core.NewDomainError(core.ModuleConfig,
			core.ErrorCodeConfiguration, "a graph edge list path must be provided")
	}
	g, err := graph.FromEdgeListFile(c.Graph.Path, c.Graph.Name)
	if err != nil {
		return nil, nil, nil, "", zero, err
	}

	candidates := make([]eval.Candidate, len(c.Models))
	for i, model := range c.Models {
		candidates[i] = eval.Candidate{Name: model.Name, Library: model.Library}
	}

	opts := eval.Options{
		SchemaParams: schema.Params{
			TrainSize: conv.ConfigGetFloat64(c.Evaluation.SchemaParams, "train_size", 0.8),
		},
		NumberOfHoldouts:             c.Evaluation.NumberOfHoldouts,
		RandomState:                  c.Evaluation.RandomState,
		NodeFeatures:                 refSpecs(c.Features.Node),
		NodeTypeFeatures:             refSpecs(c.Features.NodeType),
		EdgeFeatures:                 refSpecs(c.Features.Edge),
		UseSubgraphAsSupport:         c.Subgraph.UseAsSupport,
		UnbalanceRates:               c.Evaluation.UnbalanceRates,
		SmokeTest:                    c.Evaluation.SmokeTest,
		PrecomputeConstantStochastic: c.Evaluation.PrecomputeConstantStochasticFeatures,
		NumberOfShards:               c.Sharding.Shards,
		ShardIDVariable:              c.Sharding.IDVariable,
	}
	if opts.RandomState == 0 {
		opts.RandomState = 42
	}

	if c.Subgraph.Selector != "" {
		selector, err := dsl.NewSelector(c.Subgraph.Selector)
		if err != nil {
			return nil, nil, nil, "", zero, err
		}
		subgraph, err := selector.SelectSubgraph(g)
		if err != nil {
			return nil, nil, nil, "", zero, err
		}
		opts.SubgraphOfInterest = subgraph
	}

	store, err := BuildStore(c.Cache.Backend, c.Cache.Config)
	if err != nil {
		return nil, nil, nil, "", zero, err
	}
	opts.Cache = cache.New(store)

	return task, candidates, g, c.Evaluation.Schema, opts, nil
}

// Run 执行配置描述的完整评估。
func (c *RunConfig) Run(ctx context.Context) (report.Report, error) {
	task, candidates, g, schemaName, opts, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	source, err := BuildSource(c.Features.Source)
	if err != nil {
		return nil, err
	}
	if source != nil {
		defer source.Close()
		spec, err := fetchSourceFeatures(ctx, source, g)
		if err != nil {
			return nil, err
		}
		opts.NodeFeatures = append(opts.NodeFeatures, spec)
	}
	return eval.Evaluate(ctx, task, candidates, g, schemaName, opts)
}

// refSpecs 把注册表模型名序列转为 Ref 特征说明。
func refSpecs(names []string) []feature.Spec {
	if len(names) == 0 {
		return nil
	}
	specs := make([]feature.Spec, len(names))
	for i, name := range names {
		specs[i] = feature.Ref{Name: name}
	}
	return specs
}
