// Package report 定义评估产出的表格报表。
//
// 一行对应一个 (模型, holdout, 评估模式, 不平衡率) 组合，载有指标列、
// 溯源列与嵌套参数列组。数值列统一为 float64，保证序列化往返无损。
package report

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/rushteam/grapheval/core"
)

// Row 是一行报表。嵌套参数列组以前缀表达：
// 模型超参数在 "model_parameters." 下，特征超参数在 "features_parameters." 下。
type Row map[string]any

// Report 是行的有序集合。
type Report []Row

// 保留溯源列名。特征超参数与这些列冲突会破坏报表，归入
// features_parameters 前必须经 CheckReserved 校验。
var reservedColumns = []string{
	"task_name",
	"model_name",
	"library_name",
	"graph_name",
	"nodes_number",
	"edges_number",
	"evaluation_schema",
	"evaluation_mode",
	"holdout_number",
	"holdouts_kwargs",
	"use_subgraph_as_support",
	"train_size",
	"validation_unbalance_rate",
	"features_names",
	"time_required_for_training",
	"time_required_for_evaluation",
}

// ModelParametersPrefix 与 FeaturesParametersPrefix 是嵌套参数列组前缀。
const (
	ModelParametersPrefix    = "model_parameters."
	FeaturesParametersPrefix = "features_parameters."
)

// ReservedColumns 返回保留列名（排序副本）。
func ReservedColumns() []string {
	out := append([]string(nil), reservedColumns...)
	sort.Strings(out)
	return out
}

// CheckReserved 校验参数名是否与保留列名冲突。
// 静默覆盖会破坏报表，冲突是硬错误。
func CheckReserved(parameter string) error {
	for _, reserved := range reservedColumns {
		if parameter == reserved {
			return core.NewDomainError(core.ModuleReport, core.ErrorCodeParameterCollision,
				fmt.Sprintf("the parameter %q used by one of the feature models collides with a "+
					"reserved report column, please rename the parameter in your model", parameter))
		}
	}
	return nil
}

// Set 写入一列；数值统一归一化为 float64。
func (r Row) Set(column string, value any) {
	r[column] = normalizeValue(value)
}

// normalizeValue 把所有数值类型折叠到 float64，字符串与布尔原样保留，
// 其余类型降级为字符串。序列化往返后报表必须逐位相等。
func normalizeValue(value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case bool, string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Concat 顺序拼接多个报表。
func Concat(reports ...Report) Report {
	var total int
	for _, r := range reports {
		total += len(r)
	}
	out := make(Report, 0, total)
	for _, r := range reports {
		out = append(out, r...)
	}
	return out
}

// Columns 返回报表全部列名之并（排序），用于表格布局。
func (r Report) Columns() []string {
	seen := make(map[string]struct{})
	for _, row := range r {
		for column := range row {
			seen[column] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// Equal 判断两个报表是否完全一致（行序与全部列值）。
func (r Report) Equal(other Report) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if !reflect.DeepEqual(r[i], other[i]) {
			return false
		}
	}
	return true
}
