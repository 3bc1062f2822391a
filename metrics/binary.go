// Package metrics 提供评估报表使用的分类指标。
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Binary 返回二分类阈值指标：accuracy、balanced_accuracy、
// f1_score、precision_score、recall_score。
// predictions 与 groundTruth 等长，均为 0/1 标签。
func Binary(groundTruth, predictions []bool) map[string]float64 {
	var tp, tn, fp, fn float64
	for i, truth := range groundTruth {
		switch {
		case truth && predictions[i]:
			tp++
		case truth && !predictions[i]:
			fn++
		case !truth && predictions[i]:
			fp++
		default:
			tn++
		}
	}
	total := tp + tn + fp + fn

	accuracy := 0.0
	if total > 0 {
		accuracy = (tp + tn) / total
	}
	recall := safeDiv(tp, tp+fn)
	specificity := safeDiv(tn, tn+fp)
	precision := safeDiv(tp, tp+fp)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return map[string]float64{
		"accuracy_score":          accuracy,
		"balanced_accuracy_score": (recall + specificity) / 2,
		"f1_score":                f1,
		"precision_score":         precision,
		"recall_score":            recall,
	}
}

// BinaryProbabilities 返回二分类概率指标：auroc 与 auprc。
func BinaryProbabilities(groundTruth []bool, probabilities []float64) map[string]float64 {
	return map[string]float64{
		"auroc": AUROC(groundTruth, probabilities),
		"auprc": AUPRC(groundTruth, probabilities),
	}
}

// AUROC 计算 ROC 曲线下面积。
func AUROC(groundTruth []bool, probabilities []float64) float64 {
	y, classes := sortedByScore(groundTruth, probabilities)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// AUPRC 计算 precision-recall 曲线下面积（阈值自高向低扫描，梯形积分）。
func AUPRC(groundTruth []bool, probabilities []float64) float64 {
	order := make([]int, len(probabilities))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return probabilities[order[i]] > probabilities[order[j]]
	})

	var positives float64
	for _, truth := range groundTruth {
		if truth {
			positives++
		}
	}
	if positives == 0 {
		return 0
	}

	var (
		tp, fp     float64
		recalls    = []float64{0}
		precisions = []float64{1}
	)
	for _, i := range order {
		if groundTruth[i] {
			tp++
		} else {
			fp++
		}
		recalls = append(recalls, tp/positives)
		precisions = append(precisions, tp/(tp+fp))
	}
	return integrate.Trapezoidal(recalls, precisions)
}

// Multiclass 返回多分类阈值指标：accuracy、balanced_accuracy 与
// 宏平均的 f1/precision/recall。classes 为类别数，标签取值 [0, classes)。
func Multiclass(groundTruth, predictions []int, classes int) map[string]float64 {
	var correct float64
	tp := make([]float64, classes)
	fp := make([]float64, classes)
	fn := make([]float64, classes)
	support := make([]float64, classes)
	for i, truth := range groundTruth {
		support[truth]++
		if predictions[i] == truth {
			correct++
			tp[truth]++
		} else {
			fn[truth]++
			fp[predictions[i]]++
		}
	}

	var (
		macroF1, macroPrecision, macroRecall float64
		balancedAccuracy                     float64
		present                              float64
	)
	for c := 0; c < classes; c++ {
		precision := safeDiv(tp[c], tp[c]+fp[c])
		recall := safeDiv(tp[c], tp[c]+fn[c])
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		macroF1 += f1
		macroPrecision += precision
		macroRecall += recall
		if support[c] > 0 {
			balancedAccuracy += recall
			present++
		}
	}

	accuracy := 0.0
	if len(groundTruth) > 0 {
		accuracy = correct / float64(len(groundTruth))
	}
	if present > 0 {
		balancedAccuracy /= present
	}
	return map[string]float64{
		"accuracy_score":          accuracy,
		"balanced_accuracy_score": balancedAccuracy,
		"f1_score":                macroF1 / float64(classes),
		"precision_score":         macroPrecision / float64(classes),
		"recall_score":            macroRecall / float64(classes),
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// sortedByScore 按分数升序排列标签，满足 stat.ROC 的输入约定。
func sortedByScore(groundTruth []bool, probabilities []float64) ([]float64, []bool) {
	order := make([]int, len(probabilities))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return probabilities[order[i]] < probabilities[order[j]]
	})
	y := make([]float64, len(order))
	classes := make([]bool, len(order))
	for pos, i := range order {
		y[pos] = probabilities[i]
		classes[pos] = groundTruth[i]
	}
	return y, classes
}
