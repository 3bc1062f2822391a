// Package edgeprediction 实现边预测任务：给定图的一个边划分，
// 评估分类模型区分真实边与负采样边的能力。
//
// 负样本按不平衡率从采样图（存在关注子图时为子图，否则为完整父图）
// 采样，采样数为 ceil(边数 × 不平衡率)，避让集始终是完整父图；
// 负图再按正样本的训练比例划分为负训练/负测试集。
// 每个 (评估模式, 不平衡率) 组合产出一行指标，
// 概率指标在拼接后的正负概率序列上以 0.5 为判定阈值计算。
package edgeprediction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/eval"
	"github.com/rushteam/grapheval/metrics"
	"github.com/rushteam/grapheval/report"
	"github.com/rushteam/grapheval/schema"
)

// TaskName 是边预测任务的任务名。
const TaskName = "Edge Prediction"

// Task 实现边预测的评估例程。
type Task struct{}

func New() *Task { return &Task{} }

func (*Task) Name() string { return TaskName }

func (*Task) Traits() core.TaskTraits {
	return core.TaskTraits{
		InvolvesTopology: true,
		EdgeOriented:     true,
	}
}

func (*Task) AvailableSchemas() []string {
	return schema.Available()
}

// Split 按评估模式划分边集。
func (*Task) Split(
	g core.Graph,
	schemaName string,
	holdoutNumber, numberOfHoldouts int,
	randomState int64,
	params schema.Params,
) (core.Graph, core.Graph, error) {
	return schema.Split(g, schemaName, holdoutNumber, numberOfHoldouts, randomState, params)
}

// Evaluate 在训练/测试划分上评估一个已拟合的边预测模型。
func (t *Task) Evaluate(model core.ClassifierModel, args eval.EvaluationArgs) (report.Report, error) {
	trainProbabilities, err := positiveProbabilities(model, args.Train, args.Support, args.Features)
	if err != nil {
		return nil, err
	}
	testProbabilities, err := positiveProbabilities(model, args.Test, args.Support, args.Features)
	if err != nil {
		return nil, err
	}

	sampler := args.Graph
	if args.SubgraphOfInterest != nil {
		sampler = args.SubgraphOfInterest
	}

	trainEdges := args.Train.NumberOfDirectedEdges()
	testEdges := args.Test.NumberOfDirectedEdges()
	trainSize := float64(trainEdges) / float64(trainEdges+testEdges)

	var performance report.Report
	for _, unbalanceRate := range args.UnbalanceRates {
		samples := int(math.Ceil(float64(sampler.NumberOfDirectedEdges()) * unbalanceRate))
		negative, err := sampler.SampleNegativeGraph(samples, args.RandomState, args.Graph)
		if err != nil {
			return nil, err
		}
		if !negative.HasEdges() {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeEmptyPartition,
				fmt.Sprintf("the negative graph sampled at unbalance rate %g from graph %q "+
					"does not have any edges", unbalanceRate, sampler.Name()))
		}

		nonExistentTrain, nonExistentTest, err := negative.RandomHoldout(trainSize, args.RandomState)
		if err != nil {
			return nil, err
		}
		for _, partition := range []struct {
			graph core.Graph
			name  string
		}{
			{nonExistentTrain, "train"},
			{nonExistentTest, "test"},
		} {
			if !partition.graph.HasEdges() {
				return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeEmptyPartition,
					fmt.Sprintf("the negative %s graph obtained at unbalance rate %g does "+
						"not have any edges", partition.name, unbalanceRate))
			}
		}

		modes := []struct {
			name        string
			existent    []float64
			nonExistent core.Graph
		}{
			{"train", trainProbabilities, nonExistentTrain},
			{"test", testProbabilities, nonExistentTest},
		}
		for _, mode := range modes {
			nonExistentProbabilities, err := positiveProbabilities(
				model, mode.nonExistent, args.Support, args.Features)
			if err != nil {
				return nil, err
			}

			probabilities := append(append([]float64{}, mode.existent...), nonExistentProbabilities...)
			labels := make([]bool, len(probabilities))
			predictions := make([]bool, len(probabilities))
			for i, p := range probabilities {
				labels[i] = i < len(mode.existent)
				predictions[i] = p > 0.5
			}

			row := report.Row{}
			row.Set("evaluation_mode", mode.name)
			row.Set("validation_unbalance_rate", unbalanceRate)
			row.Set("train_size", trainSize)
			for metric, value := range metrics.Binary(labels, predictions) {
				row.Set(metric, value)
			}
			for metric, value := range metrics.BinaryProbabilities(labels, probabilities) {
				row.Set(metric, value)
			}
			performance = append(performance, row)
		}
	}
	return performance, nil
}

// positiveProbabilities 返回模型对图中每条边为真的预测概率。
// 二分类概率矩阵取正类列。
func positiveProbabilities(
	model core.ClassifierModel,
	g, support core.Graph,
	features *core.FeatureSet,
) ([]float64, error) {
	probabilities, err := model.PredictProba(g, support, features)
	if err != nil {
		return nil, err
	}
	return positiveColumn(probabilities), nil
}

func positiveColumn(probabilities *mat.Dense) []float64 {
	rows, cols := probabilities.Dims()
	column := 0
	if cols > 1 {
		column = 1
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = probabilities.At(i, column)
	}
	return out
}

var _ eval.Task = (*Task)(nil)
