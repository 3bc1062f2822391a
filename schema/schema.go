// Package schema 将评估模式名与参数转换为确定性的训练/测试图划分。
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rushteam/grapheval/core"
)

// 支持的评估模式名。
const (
	// ConnectedMonteCarlo 随机边留出，同时保证训练图保持连通性。
	ConnectedMonteCarlo = "Connected Monte Carlo"
	// MonteCarlo 无约束随机边留出。
	MonteCarlo = "Monte Carlo"
	// Kfold 确定性 k 折交叉验证，holdout 序号即折号。
	Kfold = "Kfold"
)

// Available 返回全部支持的评估模式名。
func Available() []string {
	return []string{ConnectedMonteCarlo, MonteCarlo, Kfold}
}

// Params 是转发给具体划分方法的参数。
type Params struct {
	// TrainSize 是 Monte Carlo 变体的训练集比例；Kfold 忽略此字段。
	TrainSize float64 `yaml:"train_size"`
}

// String 返回参数的固定字符串形式，写入报表的 holdouts_kwargs 列。
func (p Params) String() string {
	raw, _ := json.Marshal(map[string]any{"train_size": p.TrainSize})
	return string(raw)
}

// UnknownError 构建列出全部支持模式名的 UNKNOWN_SCHEMA 错误。
func UnknownError(name string, supported []string) error {
	return core.NewDomainError(core.ModuleSchema, core.ErrorCodeUnknownSchema,
		fmt.Sprintf("the requested evaluation schema %q is not available, "+
			"the available evaluation schemas are: %s",
			name, strings.Join(supported, ", ")))
}

// Split 按评估模式划分边集，返回 (train, test)。
//
// 种子推导规则：
//   - Monte Carlo 变体：randomState + holdoutNumber，保证各 holdout 划分
//     互不相同但可复现，无需显式传递独立随机流
//   - Kfold：randomState 不偏移，折成员关系本身已提供划分间差异
func Split(
	g core.Graph,
	name string,
	holdoutNumber int,
	numberOfHoldouts int,
	randomState int64,
	params Params,
) (train, test core.Graph, err error) {
	switch name {
	case ConnectedMonteCarlo:
		return g.ConnectedHoldout(params.TrainSize, randomState+int64(holdoutNumber))
	case MonteCarlo:
		return g.RandomHoldout(params.TrainSize, randomState+int64(holdoutNumber))
	case Kfold:
		return g.EdgePredictionKfold(numberOfHoldouts, holdoutNumber, randomState)
	}
	return nil, nil, UnknownError(name, Available())
}

// SplitNodeLabels 与 Split 对应，但划分带标签节点而非边集，
// 供节点标签预测类任务使用；种子推导规则一致。
func SplitNodeLabels(
	g core.Graph,
	name string,
	holdoutNumber int,
	numberOfHoldouts int,
	randomState int64,
	params Params,
) (train, test core.Graph, err error) {
	switch name {
	case MonteCarlo:
		return g.NodeLabelHoldout(params.TrainSize, randomState+int64(holdoutNumber))
	case Kfold:
		return g.NodeLabelKfold(numberOfHoldouts, holdoutNumber, randomState)
	}
	return nil, nil, UnknownError(name, []string{MonteCarlo, Kfold})
}
