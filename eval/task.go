// Package eval 是评估编排核心：模型迭代、单 holdout 评估、
// 训练-评估单元与顶层 Evaluate 的组合。
//
// 控制流：Evaluate → (每个 holdout) singleHoldout → (每个模型)
// trainAndEvaluate → 模型 fit / 任务评估例程。特征归一化与划分
// 作为纯子例程在各层被调用。
//
// 编排层单线程同步执行：holdout 按升序、模型按解析顺序依次处理。
// 唯一支持的粗粒度并行是外部进程分片（见 Options.NumberOfShards）。
// 不支持中途取消，不做重试：任何失败中止整个调用并向上传播。
package eval

import (
	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/report"
	"github.com/rushteam/grapheval/schema"
)

// Task 是一类评估任务的委托接口。
// 编排核心不关心任务的指标语义：它负责划分、特征、缓存与溯源列，
// 把"在一组划分上评估一个已拟合模型"整体委托给任务实现。
type Task interface {
	// Name 返回任务名（如 "Edge Prediction"）。
	Name() string
	// Traits 返回任务消费的图信号，供特征归一化器做偏置判断。
	Traits() core.TaskTraits
	// AvailableSchemas 返回该任务支持的评估模式名。
	AvailableSchemas() []string

	// Split 按任务语义划分图：边导向任务划分边集，
	// 节点标签任务划分带标签节点。
	Split(g core.Graph, schemaName string, holdoutNumber, numberOfHoldouts int,
		randomState int64, params schema.Params) (train, test core.Graph, err error)

	// Evaluate 在给定划分上评估一个已拟合的模型，
	// 返回每个 (评估模式, 不平衡率) 组合一行的指标行。
	Evaluate(model core.ClassifierModel, args EvaluationArgs) (report.Report, error)
}

// EvaluationArgs 汇集任务评估例程需要的全部上下文。
type EvaluationArgs struct {
	// Graph 是完整的父图，负采样时作为避让集。
	Graph core.Graph
	// Support 是拓扑支撑图：关注训练图或未过滤训练图，
	// 取决于 UseSubgraphAsSupport。
	Support core.Graph
	// Train 与 Test 是任务相关（经关注子图过滤后）的划分。
	Train core.Graph
	Test  core.Graph
	// SubgraphOfInterest 存在时作为负采样的采样图。
	SubgraphOfInterest core.Graph
	// Features 是已全部物化的归一化特征。
	Features *core.FeatureSet
	// RandomState 是评估内部随机操作（如负采样）的种子。
	RandomState int64
	// UnbalanceRates 是验证负样本的不平衡率序列。
	UnbalanceRates []float64
}
