package core

import "gonum.org/v1/gonum/mat"

// Model 是所有模型（嵌入模型与分类模型）共享的最小能力集。
//
// 生命周期约定：
//   - 模型由注册表按名构建或由调用方直接构造
//   - 评估过程中每个 (模型, holdout) 组合消费一个 Clone()，
//     原始实例从不被共享地 fit
//   - fit 原地修改模型状态，结果行产出后实例即被丢弃
type Model interface {
	// ModelName 返回模型名（如 "Logistic Regression"）。
	ModelName() string
	// LibraryName 返回实现该模型的底层库名（如 "gonum"）。
	LibraryName() string
	// TaskName 返回模型所属任务名（如 "Edge Prediction"）。
	TaskName() string

	// Parameters 返回模型超参数，写入报表的 model_parameters 列组。
	Parameters() map[string]any
	// SmokeTestParameters 返回冒烟测试参数预设：一套大幅降低计算开销的配置，
	// 用于快速正确性验证而非性能测量。
	SmokeTestParameters() map[string]any

	// IsStochastic 返回模型是否是随机的（是否有随机状态）。
	IsStochastic() bool
	// SetRandomState 注入随机种子；对确定性模型是空操作。
	SetRandomState(randomState int64)

	// Clone 返回一个参数相同、未拟合的独立副本。
	Clone() Model
}

// EmbeddingResult 是嵌入模型 fit 的产出。
// 一个模型可以产出多个通道（例如同时产出节点与节点类型嵌入），
// 每个通道是一个按对应 ID 对齐的数值矩阵。
type EmbeddingResult struct {
	NodeEmbeddings     []*mat.Dense
	NodeTypeEmbeddings []*mat.Dense
	EdgeEmbeddings     []*mat.Dense
}

// EmbeddingModel 是可拟合的嵌入模型能力集。
// 能力标志（IsTopological 等）供特征归一化器判断该特征
// 是否会泄漏当前任务正在评估的信号，从而决定是否延迟计算。
type EmbeddingModel interface {
	Model

	// FitTransform 在给定图上拟合并返回嵌入结果。
	FitTransform(g Graph) (*EmbeddingResult, error)

	// IsTopological 返回嵌入是否编码图的拓扑结构。
	IsTopological() bool
	// IsUsingEdgeTypes 返回嵌入是否消费边类型。
	IsUsingEdgeTypes() bool
	// IsUsingNodeTypes 返回嵌入是否消费节点类型。
	IsUsingNodeTypes() bool
	// IsUsingEdgeWeights 返回嵌入是否消费边权重。
	IsUsingEdgeWeights() bool

	// IntoSmokeTest 返回应用冒烟测试预设后的新实例。
	IntoSmokeTest() EmbeddingModel
}

// FeatureSet 是归一化后传递给分类模型的特征集合。
// 每类特征是一个有序矩阵列表，行数分别等于节点数、节点类型数、有向边数。
type FeatureSet struct {
	NodeFeatures     []*mat.Dense
	NodeTypeFeatures []*mat.Dense
	EdgeFeatures     []*mat.Dense
}

// ClassifierModel 是分类模型能力集。
//
// support 参数是拓扑支撑图：拓扑类模型在 fit/predict 时使用的结构
// 可能是训练图的超集（见 use_subgraph_as_support 语义），与携带标签的
// 训练图本身是两个概念。
type ClassifierModel interface {
	Model

	Fit(g Graph, support Graph, features *FeatureSet) error
	// Predict 返回每个样本的预测标签。
	Predict(g Graph, support Graph, features *FeatureSet) ([]float64, error)
	// PredictProba 返回 样本数 x 类别数 的预测概率矩阵。
	PredictProba(g Graph, support Graph, features *FeatureSet) (*mat.Dense, error)

	// IsBinaryPredictionTask 返回该模型是否拟合于二分类任务。
	IsBinaryPredictionTask() bool

	// IntoSmokeTest 返回应用冒烟测试预设后的新实例。
	IntoSmokeTest() ClassifierModel
}

// TaskTraits 描述一个任务消费哪些图信号。
// 特征归一化器据此判断偏置：当特征消费的信号恰好是任务评估的信号时
// （例如拓扑特征用于拓扑任务、节点类型特征用于节点标签任务），
// 该特征在全图范围计算会泄漏测试集信息，必须延迟到 holdout 范围。
type TaskTraits struct {
	InvolvesTopology    bool
	InvolvesEdgeTypes   bool
	InvolvesNodeTypes   bool
	InvolvesEdgeWeights bool
	// EdgeOriented 标记边导向任务；关注子图仅对这类任务有意义。
	EdgeOriented bool
}
