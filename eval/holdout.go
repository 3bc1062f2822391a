package eval

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/cache"
	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/feature"
	"github.com/rushteam/grapheval/report"
)

// runContext 汇集一次顶层评估内不随 holdout 变化的状态。
type runContext struct {
	task               Task
	models             []core.ClassifierModel
	graph              core.Graph
	schemaName         string
	subgraph           core.Graph
	subgraphCompatible bool
	featuresNames      []string
	featuresParameters map[string]any
	nodeFeatures       []feature.Normalized
	nodeTypeFeatures   []feature.Normalized
	edgeFeatures       []feature.Normalized
	opts               Options
}

// baseCacheArgs 返回各缓存层共享的键参数白名单。
// 冒烟测试与进度类标志刻意不在其中：只因非语义参数不同的重跑
// 必须命中同一条目。可由其余参数复现的大图对象同样排除。
func (rc *runContext) baseCacheArgs() map[string]any {
	args := map[string]any{
		"task_name":                  rc.task.Name(),
		"graph_name":                 rc.graph.Name(),
		"nodes_number":               rc.graph.NumberOfNodes(),
		"edges_number":               rc.graph.NumberOfDirectedEdges(),
		"models":                     modelIdentities(rc.models),
		"evaluation_schema":          rc.schemaName,
		"holdouts_kwargs":            rc.opts.SchemaParams.String(),
		"random_state":               rc.opts.RandomState,
		"validation_unbalance_rates": rc.opts.UnbalanceRates,
		"use_subgraph_as_support":    rc.opts.UseSubgraphAsSupport,
		"features_names":             rc.featuresNames,
		"features_parameters":        rc.featuresParameters,
		"precompute_constant_stochastic_features": rc.opts.PrecomputeConstantStochastic,
	}
	if rc.subgraph != nil {
		args["subgraph_of_interest"] = rc.subgraph.Name()
	}
	return args
}

// singleHoldout 执行一个 holdout 的完整评估：划分、holdout 范围特征重算、
// 关注子图过滤，最后对每个候选模型调用训练-评估单元并拼接结果。
func (rc *runContext) singleHoldout(
	ctx context.Context,
	holdoutNumber int,
	metadata report.Row,
) (report.Report, error) {
	args := rc.baseCacheArgs()
	args["holdout_number"] = holdoutNumber
	// Kfold 的折划分由总折数决定，总折数因此参与键。
	args["number_of_holdouts"] = rc.opts.NumberOfHoldouts
	hash, err := cache.Key(args)
	if err != nil {
		return nil, err
	}
	artifact := cache.ArtifactPath(hash, rc.task.Name(), rc.graph.Name(),
		fmt.Sprintf("holdout_%d", holdoutNumber))
	if rc.opts.Cache != nil {
		if cached, ok, err := rc.opts.Cache.Get(ctx, artifact); err != nil {
			return nil, err
		} else if ok {
			return cached, nil
		}
	}

	setupStart := time.Now()

	train, test, err := rc.task.Split(rc.graph, rc.schemaName, holdoutNumber,
		rc.opts.NumberOfHoldouts, rc.opts.RandomState, rc.opts.SchemaParams)
	if err != nil {
		return nil, err
	}
	train.EnableSpeedups(rc.graph.Speedups())

	// 被延迟的特征在训练图范围重算：种子按 holdout 推导，
	// 预计算强制开启，保证 holdout 内特征只算一次而非每模型一次。
	holdoutOpts := feature.Options{
		RandomState:                  rc.opts.RandomState * int64(holdoutNumber+1),
		AllowAutomatic:               true,
		SkipEvaluationBiased:         false,
		SmokeTest:                    rc.opts.SmokeTest,
		PrecomputeConstantStochastic: true,
	}
	traits := rc.task.Traits()

	start := time.Now()
	nodeFeatures, err := feature.NormalizeAll(train, traits, feature.KindNode,
		feature.Specs(rc.nodeFeatures), holdoutOpts)
	if err != nil {
		return nil, err
	}
	nodeFeatureSeconds := time.Since(start).Seconds()

	start = time.Now()
	nodeTypeFeatures, err := feature.NormalizeAll(train, traits, feature.KindNodeType,
		feature.Specs(rc.nodeTypeFeatures), holdoutOpts)
	if err != nil {
		return nil, err
	}
	nodeTypeFeatureSeconds := time.Since(start).Seconds()

	start = time.Now()
	edgeFeatures, err := feature.NormalizeAll(train, traits, feature.KindEdge,
		feature.Specs(rc.edgeFeatures), holdoutOpts)
	if err != nil {
		return nil, err
	}
	edgeFeatureSeconds := time.Since(start).Seconds()

	trainOfInterest, testOfInterest := train, test
	if rc.subgraph != nil {
		// 关注子图词表与父图不一致时，先把两个划分对齐到子图节点集，
		// 并按诱导的节点 ID 映射重排已计算的节点特征行。
		if !rc.subgraphCompatible {
			filteredTrain, err := train.FilterFromNodeNames(rc.subgraph.NodeNames())
			if err != nil {
				return nil, err
			}
			filteredTest, err := test.FilterFromNodeNames(rc.subgraph.NodeNames())
			if err != nil {
				return nil, err
			}
			mapping, err := filteredTrain.NodeIDMapping(rc.graph)
			if err != nil {
				return nil, err
			}
			nodeFeatures, err = remapRows(nodeFeatures, mapping)
			if err != nil {
				return nil, err
			}
			train, test = filteredTrain, filteredTest
		}
		trainOfInterest, err = train.Intersection(rc.subgraph)
		if err != nil {
			return nil, err
		}
		testOfInterest, err = test.Intersection(rc.subgraph)
		if err != nil {
			return nil, err
		}
		for _, partition := range []struct {
			graph core.Graph
			name  string
		}{
			{trainOfInterest, "train"},
			{testOfInterest, "test"},
		} {
			if !partition.graph.HasNodes() {
				return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeEmptyPartition,
					fmt.Sprintf("the %s graph obtained from the evaluation schema %q, once "+
						"filtered using the provided subgraph of interest, does not have "+
						"any more nodes", partition.name, rc.schemaName))
			}
			if traits.EdgeOriented && !partition.graph.HasEdges() {
				return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeEmptyPartition,
					fmt.Sprintf("the %s graph obtained from the evaluation schema %q, once "+
						"filtered using the provided subgraph of interest, does not have "+
						"any more edges which are essential when running a %s task",
						partition.name, rc.schemaName, rc.task.Name()))
			}
		}
	}

	trainOfInterest.EnableSpeedups(rc.graph.Speedups())
	testOfInterest.EnableSpeedups(rc.graph.Speedups())

	features, err := materializeFeatures(nodeFeatures, nodeTypeFeatures, edgeFeatures)
	if err != nil {
		return nil, err
	}

	holdoutMetadata := report.Row{}
	for column, value := range metadata {
		holdoutMetadata[column] = value
	}
	holdoutMetadata.Set("time_required_for_setting_up_holdout", time.Since(setupStart).Seconds())
	holdoutMetadata.Set("time_required_to_compute_node_features", nodeFeatureSeconds)
	holdoutMetadata.Set("time_required_to_compute_node_type_features", nodeTypeFeatureSeconds)
	holdoutMetadata.Set("time_required_to_compute_edge_features", edgeFeatureSeconds)

	var performance report.Report
	for _, prototype := range rc.models {
		model, err := cloneClassifier(prototype)
		if err != nil {
			return nil, err
		}
		rows, err := rc.trainAndEvaluate(ctx, model, trainOfInterest, testOfInterest,
			train, holdoutNumber, features, holdoutMetadata)
		if err != nil {
			return nil, err
		}
		performance = report.Concat(performance, rows)
	}

	if rc.opts.Cache != nil {
		if err := rc.opts.Cache.Set(ctx, artifact, performance); err != nil {
			return nil, err
		}
	}
	return performance, nil
}

// trainAndEvaluate 对一个 (模型, holdout) 组合执行拟合与评估，
// 产出带全部溯源列与嵌套参数列的结果行。
func (rc *runContext) trainAndEvaluate(
	ctx context.Context,
	model core.ClassifierModel,
	trainOfInterest, testOfInterest, train core.Graph,
	holdoutNumber int,
	features *core.FeatureSet,
	metadata report.Row,
) (report.Report, error) {
	args := rc.baseCacheArgs()
	args["holdout_number"] = holdoutNumber
	args["number_of_holdouts"] = rc.opts.NumberOfHoldouts
	args["model_name"] = model.ModelName()
	args["library_name"] = model.LibraryName()
	args["model_parameters"] = model.Parameters()
	hash, err := cache.Key(args)
	if err != nil {
		return nil, err
	}
	artifact := cache.ArtifactPath(hash, rc.task.Name(), rc.graph.Name(),
		fmt.Sprintf("holdout_%d", holdoutNumber), model.ModelName(), model.LibraryName())
	if rc.opts.Cache != nil {
		if cached, ok, err := rc.opts.Cache.Get(ctx, artifact); err != nil {
			return nil, err
		} else if ok {
			return cached, nil
		}
	}

	// 每个 holdout 的随机模型得到独立但可复现的种子。
	if model.IsStochastic() {
		model.SetRandomState(rc.opts.RandomState * int64(holdoutNumber+1))
	}

	support := train
	if rc.opts.UseSubgraphAsSupport {
		support = trainOfInterest
	}

	trainingStart := time.Now()
	if err := model.Fit(trainOfInterest, support, features); err != nil {
		return nil, core.NewDelegateError(core.ModuleEval,
			fmt.Sprintf("an error was raised while fitting the %s model implemented using "+
				"the %s library for the %s task", model.ModelName(), model.LibraryName(),
				rc.task.Name()), err)
	}
	trainingSeconds := time.Since(trainingStart).Seconds()

	evaluationStart := time.Now()
	performance, err := rc.task.Evaluate(model, EvaluationArgs{
		Graph:              rc.graph,
		Support:            support,
		Train:              trainOfInterest,
		Test:               testOfInterest,
		SubgraphOfInterest: rc.subgraph,
		Features:           features,
		RandomState:        rc.opts.RandomState * int64(holdoutNumber),
		UnbalanceRates:     rc.opts.UnbalanceRates,
	})
	if err != nil {
		// 评估例程内部的验证错误原样传播；其余失败附加模型、库与任务
		// 身份后传播，原始原因保留在错误链上。
		if core.GetDomainError(err) != nil {
			return nil, err
		}
		return nil, core.NewDelegateError(core.ModuleEval,
			fmt.Sprintf("an error was raised while calling the evaluation routine of the "+
				"%s model implemented using the %s library for the %s task",
				model.ModelName(), model.LibraryName(), rc.task.Name()), err)
	}
	evaluationSeconds := time.Since(evaluationStart).Seconds()

	for _, row := range performance {
		row.Set("time_required_for_training", trainingSeconds)
		row.Set("time_required_for_evaluation", evaluationSeconds)
		row.Set("task_name", rc.task.Name())
		row.Set("model_name", model.ModelName())
		row.Set("library_name", model.LibraryName())
		row.Set("graph_name", rc.graph.Name())
		row.Set("nodes_number", rc.graph.NumberOfNodes())
		row.Set("edges_number", rc.graph.NumberOfDirectedEdges())
		row.Set("evaluation_schema", rc.schemaName)
		row.Set("holdout_number", holdoutNumber)
		row.Set("holdouts_kwargs", rc.opts.SchemaParams.String())
		row.Set("use_subgraph_as_support", rc.opts.UseSubgraphAsSupport)
		row.Set("features_names", formatNames(rc.featuresNames))
		for column, value := range metadata {
			row[column] = value
		}
		for parameter, value := range model.Parameters() {
			row.Set(report.ModelParametersPrefix+parameter, value)
		}
		for parameter, value := range rc.featuresParameters {
			if err := report.CheckReserved(parameter); err != nil {
				return nil, err
			}
			row.Set(report.FeaturesParametersPrefix+parameter, value)
		}
	}

	if rc.opts.Cache != nil {
		if err := rc.opts.Cache.Set(ctx, artifact, performance); err != nil {
			return nil, err
		}
	}
	return performance, nil
}

// remapRows 按节点 ID 映射重排每个特征矩阵的行。
func remapRows(features []feature.Normalized, mapping []int) ([]feature.Normalized, error) {
	remapped := make([]feature.Normalized, len(features))
	for i, normalized := range features {
		if normalized.Matrix == nil {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeUnsupportedFeatureType,
				"a deferred feature survived the holdout-scope recomputation, it cannot be "+
					"remapped onto the subgraph of interest")
		}
		_, cols := normalized.Matrix.Dims()
		dense := mat.NewDense(len(mapping), cols, nil)
		for row, parentRow := range mapping {
			dense.SetRow(row, normalized.Matrix.RawRowView(parentRow))
		}
		remapped[i] = feature.Normalized{Matrix: dense}
	}
	return remapped, nil
}

// materializeFeatures 把三类归一化结果收敛为矩阵特征集。
// holdout 范围重算之后不应再有延迟项。
func materializeFeatures(node, nodeType, edge []feature.Normalized) (*core.FeatureSet, error) {
	features := &core.FeatureSet{}
	for _, class := range []struct {
		kind       feature.Kind
		normalized []feature.Normalized
		target     *[]*mat.Dense
	}{
		{feature.KindNode, node, &features.NodeFeatures},
		{feature.KindNodeType, nodeType, &features.NodeTypeFeatures},
		{feature.KindEdge, edge, &features.EdgeFeatures},
	} {
		matrices, ok := feature.Matrices(class.normalized)
		if !ok {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeUnsupportedFeatureType,
				fmt.Sprintf("a deferred %s feature survived the holdout-scope recomputation",
					class.kind))
		}
		*class.target = matrices
	}
	return features, nil
}
