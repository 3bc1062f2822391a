package eval

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/grapheval/cache"
	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/feature"
	"github.com/rushteam/grapheval/report"
	"github.com/rushteam/grapheval/schema"
)

// DefaultShardIDVariable 是分片执行时提供本进程分片号的默认环境变量名。
const DefaultShardIDVariable = "GRAPHEVAL_SHARD_ID"

// Options 控制一次顶层评估。
type Options struct {
	// SchemaParams 转发给评估模式的划分参数。
	SchemaParams schema.Params
	// NumberOfHoldouts 是 holdout 重复次数，必须为正。
	NumberOfHoldouts int
	// RandomState 是全部随机推导的根种子。
	RandomState int64

	// NodeFeatures、NodeTypeFeatures、EdgeFeatures 是三类特征说明。
	NodeFeatures     []feature.Spec
	NodeTypeFeatures []feature.Spec
	EdgeFeatures     []feature.Spec

	// SubgraphOfInterest 把评估聚焦到一个边/节点子集，仅边导向任务支持。
	SubgraphOfInterest core.Graph
	// UseSubgraphAsSupport 是否用关注训练图（而非未过滤训练图）作拓扑支撑。
	UseSubgraphAsSupport bool

	// UnbalanceRates 是验证负样本的不平衡率序列，空时取 (1.0)。
	UnbalanceRates []float64

	// SmokeTest 把全部模型与特征降级为冒烟测试预设。
	SmokeTest bool
	// PrecomputeConstantStochastic 见 feature.Options 的同名字段。
	PrecomputeConstantStochastic bool

	// Cache 为 nil 时禁用全部缓存层。
	Cache *cache.ReportCache

	// NumberOfShards 大于零时启用外部进程分片：每个进程只处理
	// holdout % NumberOfShards == shardID % NumberOfShards 的 holdout，
	// 部分报表由外部协作者合并。
	NumberOfShards int
	// ShardIDVariable 是提供分片号的环境变量名，空时取默认值。
	// 启用分片而该变量缺失是硬配置错误。
	ShardIDVariable string
}

// Evaluate 在给定图上按评估模式对全部候选模型执行完整的 holdout 评估，
// 返回聚合报表：每个 (模型, holdout, 评估模式, 不平衡率) 组合一行。
//
// 偏置特征与未预计算的随机特征在这里只做延迟标记，
// 由每个 holdout 在训练图范围内以独立种子重算。
func Evaluate(
	ctx context.Context,
	task Task,
	candidates []Candidate,
	g core.Graph,
	schemaName string,
	opts Options,
) (report.Report, error) {
	if opts.NumberOfHoldouts <= 0 {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			fmt.Sprintf("the number of holdouts must be a strictly positive integer, "+
				"but %d was provided", opts.NumberOfHoldouts))
	}

	supported := task.AvailableSchemas()
	if !containsString(supported, schemaName) {
		return nil, schema.UnknownError(schemaName, supported)
	}

	subgraphCompatible := false
	if opts.SubgraphOfInterest != nil {
		if !task.Traits().EdgeOriented {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
				fmt.Sprintf("a subgraph of interest was provided, but this parameter is only "+
					"currently supported for edge-oriented tasks and not the %q task", task.Name()))
		}
		if !g.Contains(opts.SubgraphOfInterest) {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeContainment,
				fmt.Sprintf("the provided subgraph of interest is not contained "+
					"in the provided graph %q", g.Name()))
		}
		if !opts.SubgraphOfInterest.HasEdges() {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
				"the provided subgraph of interest does not have any edges")
		}
		subgraphCompatible = g.HasCompatibleNodeVocabulary(opts.SubgraphOfInterest)
	} else if opts.UseSubgraphAsSupport {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			"no subgraph of interest was provided but it has been requested to use the "+
				"subgraph of interest as support, it is not clear how to proceed")
	}

	models, err := resolveCandidates(task, candidates, opts.SmokeTest)
	if err != nil {
		return nil, err
	}

	shardID := -1
	if opts.NumberOfShards > 0 {
		if opts.NumberOfHoldouts > opts.NumberOfShards {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
				fmt.Sprintf("only holdout-level parallelism is supported at this layer: "+
					"%d holdouts were requested across %d shards",
					opts.NumberOfHoldouts, opts.NumberOfShards))
		}
		variable := opts.ShardIDVariable
		if variable == "" {
			variable = DefaultShardIDVariable
		}
		raw, ok := os.LookupEnv(variable)
		if !ok {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
				fmt.Sprintf("sharded execution across %d shards was requested but the "+
					"environment variable %q providing the shard identifier of this "+
					"process is not set", opts.NumberOfShards, variable))
		}
		shardID, err = strconv.Atoi(raw)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
				fmt.Sprintf("the environment variable %q must hold an integer shard "+
					"identifier, but %q was provided", variable, raw))
		}
	}

	if len(opts.UnbalanceRates) == 0 {
		opts.UnbalanceRates = []float64{1.0}
	}

	featuresNames, featuresParameters := collectFeatureProvenance(
		opts.NodeFeatures, opts.NodeTypeFeatures, opts.EdgeFeatures)

	rc := &runContext{
		task:               task,
		models:             models,
		graph:              g,
		schemaName:         schemaName,
		subgraph:           opts.SubgraphOfInterest,
		subgraphCompatible: subgraphCompatible,
		featuresNames:      featuresNames,
		featuresParameters: featuresParameters,
		opts:               opts,
	}

	// 顶层缓存键只依赖运行描述，不依赖任何已计算的矩阵；
	// 命中时在常量特征计算之前返回，完整重跑不触发任何拟合。
	topArgs := rc.baseCacheArgs()
	topArgs["number_of_holdouts"] = opts.NumberOfHoldouts
	topArgs["number_of_shards"] = opts.NumberOfShards
	topArgs["shard_id"] = shardID
	topHash, err := cache.Key(topArgs)
	if err != nil {
		return nil, err
	}
	topArtifact := cache.ArtifactPath(topHash, task.Name(), g.Name())
	if opts.Cache != nil {
		if cached, ok, err := opts.Cache.Get(ctx, topArtifact); err != nil {
			return nil, err
		} else if ok {
			return cached, nil
		}
	}

	traits := task.Traits()
	constantOpts := feature.Options{
		RandomState:                  opts.RandomState,
		AllowAutomatic:               true,
		SkipEvaluationBiased:         true,
		SmokeTest:                    opts.SmokeTest,
		PrecomputeConstantStochastic: opts.PrecomputeConstantStochastic,
	}

	// 常量特征只在全图范围计算一次；会产生偏置的特征被延迟，
	// 留给每个 holdout 在训练图范围重算。
	start := time.Now()
	rc.nodeFeatures, err = feature.NormalizeAll(g, traits, feature.KindNode, opts.NodeFeatures, constantOpts)
	if err != nil {
		return nil, err
	}
	nodeFeatureSeconds := time.Since(start).Seconds()

	start = time.Now()
	rc.nodeTypeFeatures, err = feature.NormalizeAll(g, traits, feature.KindNodeType, opts.NodeTypeFeatures, constantOpts)
	if err != nil {
		return nil, err
	}
	nodeTypeFeatureSeconds := time.Since(start).Seconds()

	start = time.Now()
	rc.edgeFeatures, err = feature.NormalizeAll(g, traits, feature.KindEdge, opts.EdgeFeatures, constantOpts)
	if err != nil {
		return nil, err
	}
	edgeFeatureSeconds := time.Since(start).Seconds()

	metadata := report.Row{}
	metadata.Set("number_of_threads", runtime.NumCPU())
	metadata.Set("runtime_version", runtime.Version())
	metadata.Set("platform", runtime.GOOS+"/"+runtime.GOARCH)
	metadata.Set("number_of_holdouts", opts.NumberOfHoldouts)
	metadata.Set("time_required_to_compute_constant_node_features", nodeFeatureSeconds)
	metadata.Set("time_required_to_compute_constant_node_type_features", nodeTypeFeatureSeconds)
	metadata.Set("time_required_to_compute_constant_edge_features", edgeFeatureSeconds)
	if opts.NumberOfShards > 0 {
		metadata.Set("shard_id", shardID)
		metadata.Set("number_of_shards", opts.NumberOfShards)
	}

	var performance report.Report
	for holdoutNumber := 0; holdoutNumber < opts.NumberOfHoldouts; holdoutNumber++ {
		if opts.NumberOfShards > 0 &&
			shardID%opts.NumberOfShards != holdoutNumber%opts.NumberOfShards {
			continue
		}
		rows, err := rc.singleHoldout(ctx, holdoutNumber, metadata)
		if err != nil {
			return nil, err
		}
		performance = report.Concat(performance, rows)
	}

	if opts.Cache != nil {
		if err := opts.Cache.Set(ctx, topArtifact, performance); err != nil {
			return nil, err
		}
	}
	return performance, nil
}

// collectFeatureProvenance 收集自动特征的模型名与超参数，写入报表溯源列。
func collectFeatureProvenance(featureLists ...[]feature.Spec) ([]string, map[string]any) {
	seen := map[string]struct{}{}
	var names []string
	parameters := map[string]any{}
	for _, specs := range featureLists {
		for _, spec := range specs {
			embedder, ok := spec.(feature.Embedder)
			if !ok {
				continue
			}
			name := embedder.Model.ModelName()
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
			for parameter, value := range embedder.Model.Parameters() {
				parameters[parameter] = value
			}
		}
	}
	sort.Strings(names)
	return names, parameters
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// modelIdentities 返回参与缓存键的模型身份序列。
func modelIdentities(models []core.ClassifierModel) []string {
	identities := make([]string, len(models))
	for i, m := range models {
		identities[i] = m.ModelName() + "/" + m.LibraryName()
	}
	return identities
}

// formatNames 把名字序列折叠为固定字符串形式写入单列。
func formatNames(names []string) string {
	return strings.Join(names, ", ")
}
