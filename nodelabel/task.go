// Package nodelabel 实现节点标签预测任务：从节点特征预测节点类型。
//
// 划分作用于带标签节点而非边集：训练/测试两侧共享完整拓扑，
// 各自只保留自己划分内节点的标签。该任务不是边导向任务，
// 不支持关注子图。不平衡率对节点标签没有意义，评估时忽略。
package nodelabel

import (
	"fmt"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/eval"
	"github.com/rushteam/grapheval/metrics"
	"github.com/rushteam/grapheval/report"
	"github.com/rushteam/grapheval/schema"
)

// TaskName 是节点标签预测任务的任务名。
const TaskName = "Node Label Prediction"

// Task 实现节点标签预测的评估例程。
type Task struct{}

func New() *Task { return &Task{} }

func (*Task) Name() string { return TaskName }

func (*Task) Traits() core.TaskTraits {
	return core.TaskTraits{
		InvolvesNodeTypes: true,
	}
}

func (*Task) AvailableSchemas() []string {
	return []string{schema.MonteCarlo, schema.Kfold}
}

// Split 划分带标签节点。
func (*Task) Split(
	g core.Graph,
	schemaName string,
	holdoutNumber, numberOfHoldouts int,
	randomState int64,
	params schema.Params,
) (core.Graph, core.Graph, error) {
	return schema.SplitNodeLabels(g, schemaName, holdoutNumber, numberOfHoldouts, randomState, params)
}

// Evaluate 在训练/测试标签划分上评估一个已拟合的节点分类模型。
// 每个评估模式产出一行多分类指标，只在带标签节点上计算。
func (t *Task) Evaluate(model core.ClassifierModel, args eval.EvaluationArgs) (report.Report, error) {
	trainLabeled := labeledCount(args.Train)
	testLabeled := labeledCount(args.Test)
	if trainLabeled == 0 || testLabeled == 0 {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeEmptyPartition,
			fmt.Sprintf("the label holdout of graph %q left %d labelled nodes in the train "+
				"partition and %d in the test partition, both must be non-empty",
				args.Graph.Name(), trainLabeled, testLabeled))
	}
	trainSize := float64(trainLabeled) / float64(trainLabeled+testLabeled)

	var performance report.Report
	for _, mode := range []struct {
		name      string
		partition core.Graph
	}{
		{"train", args.Train},
		{"test", args.Test},
	} {
		predictions, err := model.Predict(mode.partition, args.Support, args.Features)
		if err != nil {
			return nil, err
		}

		var groundTruth, predicted []int
		for node, typeID := range mode.partition.NodeTypeIDs() {
			if typeID < 0 {
				continue
			}
			groundTruth = append(groundTruth, typeID)
			predicted = append(predicted, int(predictions[node]))
		}

		row := report.Row{}
		row.Set("evaluation_mode", mode.name)
		row.Set("train_size", trainSize)
		for metric, value := range metrics.Multiclass(groundTruth, predicted, args.Graph.NumberOfNodeTypes()) {
			row.Set(metric, value)
		}
		performance = append(performance, row)
	}
	return performance, nil
}

func labeledCount(g core.Graph) int {
	count := 0
	for _, typeID := range g.NodeTypeIDs() {
		if typeID >= 0 {
			count++
		}
	}
	return count
}

var _ eval.Task = (*Task)(nil)
