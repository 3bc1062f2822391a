package core

// Speedups 描述图结构的加速开关。
// 这些开关只是性能提示，不影响任何计算结果；
// 评估过程中会从父图传播到每个训练/测试划分上。
type Speedups struct {
	VectorSources               bool
	VectorDestinations          bool
	VectorCumulativeNodeDegrees bool
	VectorReciprocalSqrtDegrees bool
}

// Graph 是评估管线消费的图协作者接口。
//
// 约定：
//   - 图按惯例不可变：所有划分/过滤/采样操作返回新图，不修改接收者
//     （EnableSpeedups 是唯一例外，它只改变性能提示位）
//   - 节点 ID 是 [0, NumberOfNodes) 的稠密整数，特征矩阵按节点 ID 对齐
//   - 所有随机操作显式接收随机种子，相同输入产出相同结果
type Graph interface {
	Name() string

	NumberOfNodes() int
	NumberOfDirectedEdges() int
	NumberOfNodeTypes() int
	HasNodes() bool
	HasEdges() bool
	HasNodeTypes() bool
	HasEdgeTypes() bool

	// NodeNames 返回按节点 ID 排列的规范节点名序列。
	NodeNames() []string
	// NodeTypeNames 返回按类型 ID 排列的节点类型名序列。
	NodeTypeNames() []string
	// NodeTypeIDs 返回每个节点的类型 ID；无类型的节点为 -1。
	NodeTypeIDs() []int
	// EdgeNodeIDs 返回全部有向边的 (源, 目标) 节点 ID 对。
	EdgeNodeIDs() [][2]int

	// Contains 判断 other 的节点与边是否全部包含于接收者。
	Contains(other Graph) bool
	// HasCompatibleNodeVocabulary 判断 other 是否与接收者共享完全一致的节点词表。
	HasCompatibleNodeVocabulary(other Graph) bool

	// RandomHoldout 按 trainSize 比例随机划分边集。
	RandomHoldout(trainSize float64, randomState int64) (train, test Graph, err error)
	// ConnectedHoldout 随机划分边集，同时保证训练图保持父图的连通性。
	ConnectedHoldout(trainSize float64, randomState int64) (train, test Graph, err error)
	// EdgePredictionKfold 返回第 kIndex 折的边划分，k 为总折数。
	EdgePredictionKfold(k, kIndex int, randomState int64) (train, test Graph, err error)

	// NodeLabelHoldout 按 trainSize 比例划分带标签节点，两侧共享完整拓扑，
	// 各自仅保留自己划分内节点的标签。
	NodeLabelHoldout(trainSize float64, randomState int64) (train, test Graph, err error)
	// NodeLabelKfold 返回第 kIndex 折的节点标签划分。
	NodeLabelKfold(k, kIndex int, randomState int64) (train, test Graph, err error)

	// FilterFromNodeNames 返回仅保留给定名称节点的诱导子图，节点 ID 重新编号。
	FilterFromNodeNames(names []string) (Graph, error)
	// Intersection 返回与 other 共有的边构成的图，保留接收者的节点词表。
	Intersection(other Graph) (Graph, error)
	// Union 返回两图边集之并，要求节点词表兼容。
	Union(other Graph) (Graph, error)
	// SampleNegativeGraph 采样 n 条既不在接收者也不在 avoid 中的负边。
	SampleNegativeGraph(n int, randomState int64, avoid Graph) (Graph, error)
	// NodeIDMapping 返回接收者每个节点 ID 在 parent 中对应的节点 ID。
	NodeIDMapping(parent Graph) ([]int, error)

	Speedups() Speedups
	EnableSpeedups(Speedups)
}
