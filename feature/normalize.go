package feature

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// Options 控制一次归一化的行为。
type Options struct {
	// RandomState 注入到随机嵌入模型中的种子。
	RandomState int64
	// AllowAutomatic 是否允许把 Ref 变体解析为注册表中的模型。
	// 评估/预测语境下字符串特征无法安全绑定到具体图划分，应关闭。
	AllowAutomatic bool
	// SkipEvaluationBiased 是否跳过（延迟）会对当前 holdout 评估产生
	// 偏置的特征：这类特征只应在训练图上计算，不应在全图上计算。
	SkipEvaluationBiased bool
	// SmokeTest 是否把模型降级为冒烟测试配置后再拟合。
	SmokeTest bool
	// PrecomputeConstantStochastic 是否把随机特征一次性预计算。
	// 置 false 时随机特征被延迟，使每次 holdout 的随机状态不同，
	// 实验结果因此捕获方法随机性带来的方差；置 true 时只计算一次。
	PrecomputeConstantStochastic bool
}

// cardinality 返回 kind 对应的图基数与描述。
func cardinality(g core.Graph, kind Kind) int {
	switch kind {
	case KindNode:
		return g.NumberOfNodes()
	case KindNodeType:
		return g.NumberOfNodeTypes()
	default:
		return g.NumberOfDirectedEdges()
	}
}

// alignedNames 返回 kind 对应的规范行名序。边特征不支持行名对齐。
func alignedNames(g core.Graph, kind Kind) []string {
	switch kind {
	case KindNode:
		return g.NodeNames()
	case KindNodeType:
		return g.NodeTypeNames()
	default:
		return nil
	}
}

// isEvaluationBiased 判断嵌入模型在当前任务下是否构成评估偏置：
// 当且仅当特征消费的信号恰好是任务评估的信号。
func isEvaluationBiased(m core.EmbeddingModel, traits core.TaskTraits) bool {
	return traits.InvolvesEdgeTypes && m.IsUsingEdgeTypes() ||
		traits.InvolvesNodeTypes && m.IsUsingNodeTypes() ||
		traits.InvolvesEdgeWeights && m.IsUsingEdgeWeights() ||
		traits.InvolvesTopology && m.IsTopological()
}

// Normalize 把一条特征说明归一化为零或多个结果（一个模型可产出多个通道）。
//
// 处理顺序：
//  1. Ref 解析为注册表中的嵌入模型（AllowAutomatic 关闭时拒绝）
//  2. 嵌入模型判断延迟条件：偏置特征或未预计算的随机特征原样交还
//  3. 其余模型注入随机状态、按需降级为冒烟测试配置，然后拟合
//  4. 校验矩阵行数等于 kind 对应的图基数；带行名矩阵按规范名序重排
func Normalize(
	g core.Graph,
	traits core.TaskTraits,
	kind Kind,
	spec Spec,
	opts Options,
) ([]Normalized, error) {
	switch s := spec.(type) {
	case Ref:
		if !opts.AllowAutomatic {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeConfiguration,
				fmt.Sprintf("the %s feature %q was requested by name, but automatic features "+
					"are not allowed in this context: this may be an evaluation or a prediction, "+
					"and it is unclear whether the feature should be computed on the train graph, "+
					"the test graph or the complete graph", kind, s.Name))
		}
		model, err := registry.NewEmbedder(s.Name, s.Library)
		if err != nil {
			return nil, err
		}
		return normalizeEmbedder(g, traits, kind, model, opts)

	case Embedder:
		return normalizeEmbedder(g, traits, kind, s.Model, opts)

	case Matrix:
		if err := validateRows(g, kind, s.Values); err != nil {
			return nil, err
		}
		// 裸矩阵无从校验行序，只能相信调用方已经按图 ID 对齐。
		return []Normalized{{Matrix: s.Values}}, nil

	case LabeledMatrix:
		if err := validateRows(g, kind, s.Values); err != nil {
			return nil, err
		}
		aligned, err := realign(g, kind, s)
		if err != nil {
			return nil, err
		}
		return []Normalized{{Matrix: aligned}}, nil
	}

	return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnsupportedFeatureType,
		fmt.Sprintf("the provided %s feature is of type %T, only plain matrices, labelled "+
			"matrices, embedding model instances and registered model names are supported",
			kind, spec))
}

func normalizeEmbedder(
	g core.Graph,
	traits core.TaskTraits,
	kind Kind,
	model core.EmbeddingModel,
	opts Options,
) ([]Normalized, error) {
	deferred := opts.SkipEvaluationBiased && isEvaluationBiased(model, traits) ||
		!opts.PrecomputeConstantStochastic && model.IsStochastic()
	if deferred {
		// 原样交还模型实例，调用方在 holdout 范围用新的随机状态重算。
		return []Normalized{{Deferred: model}}, nil
	}

	if model.IsStochastic() {
		model.SetRandomState(opts.RandomState)
	}
	if opts.SmokeTest {
		model = model.IntoSmokeTest()
	}

	result, err := model.FitTransform(g)
	if err != nil {
		return nil, core.NewDelegateError(core.ModuleFeature,
			fmt.Sprintf("an error was raised while fitting the %s model from the %s library "+
				"to compute %s features", model.ModelName(), model.LibraryName(), kind), err)
	}

	var channels []*mat.Dense
	switch kind {
	case KindNode:
		channels = result.NodeEmbeddings
	case KindNodeType:
		channels = result.NodeTypeEmbeddings
	default:
		channels = result.EdgeEmbeddings
	}
	if len(channels) == 0 {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnsupportedFeatureType,
			fmt.Sprintf("the %s model from the %s library did not produce any %s embedding channel",
				model.ModelName(), model.LibraryName(), kind))
	}

	normalized := make([]Normalized, 0, len(channels))
	for _, channel := range channels {
		if err := validateRows(g, kind, channel); err != nil {
			return nil, err
		}
		normalized = append(normalized, Normalized{Matrix: channel})
	}
	return normalized, nil
}

func validateRows(g core.Graph, kind Kind, m *mat.Dense) error {
	if m == nil {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnsupportedFeatureType,
			fmt.Sprintf("a nil %s feature matrix was provided", kind))
	}
	rows, _ := m.Dims()
	expected := cardinality(g, kind)
	if rows != expected {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
			fmt.Sprintf("the provided %s features have %d rows but the graph %q has %d %ss, "+
				"maybe these features refer to another version of the graph or to another "+
				"graph entirely", kind, rows, g.Name(), expected, kind))
	}
	return nil
}

// realign 按图的规范名序重排带行名矩阵，返回可直接使用的裸矩阵。
func realign(g core.Graph, kind Kind, lm LabeledMatrix) (*mat.Dense, error) {
	names := alignedNames(g, kind)
	if names == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnsupportedFeatureType,
			fmt.Sprintf("labelled matrices are not supported for %s features, "+
				"no canonical row naming exists to align against", kind))
	}
	rows, cols := lm.Values.Dims()
	if len(lm.Rows) != rows {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
			fmt.Sprintf("the labelled %s feature matrix has %d rows but %d row names were provided",
				kind, rows, len(lm.Rows)))
	}
	index := make(map[string]int, rows)
	for i, n := range lm.Rows {
		index[n] = i
	}
	aligned := mat.NewDense(len(names), cols, nil)
	for i, n := range names {
		row, ok := index[n]
		if !ok {
			return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeFeatureAlignment,
				fmt.Sprintf("the labelled %s feature matrix has no row for %q of graph %q",
					kind, n, g.Name()))
		}
		aligned.SetRow(i, lm.Values.RawRowView(row))
	}
	return aligned, nil
}

// NormalizeAll 归一化一组特征说明并展平为单一有序结果序列。
func NormalizeAll(
	g core.Graph,
	traits core.TaskTraits,
	kind Kind,
	specs []Spec,
	opts Options,
) ([]Normalized, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	flattened := make([]Normalized, 0, len(specs))
	for _, spec := range specs {
		normalized, err := Normalize(g, traits, kind, spec, opts)
		if err != nil {
			return nil, err
		}
		flattened = append(flattened, normalized...)
	}
	return flattened, nil
}
