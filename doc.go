// Package grapheval 是一个图机器学习模型的留出法评估工具包（Graph Evaluation Kit）。
//
// 设计要点：
// - Task-first: 每类预测任务（边预测 / 节点标签预测）实现 eval.Task，评估循环对任务无感知
// - Cache-first: 每一层评估结果（整体 / 单折 / 单模型）按显式键白名单做内容寻址缓存，可断点续算
// - 防泄漏: 特征先在全图上做常量预计算，随后在每一折的训练子图上重新归一化，评估偏置特征被推迟到折内
package grapheval

import (
	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/eval"
)

// 轻量 facade：便于用户直接 import "grapheval" 使用核心抽象。
type Graph = core.Graph
type Model = core.Model
type ClassifierModel = core.ClassifierModel
type EmbeddingModel = core.EmbeddingModel
type Task = eval.Task
type Options = eval.Options
type Candidate = eval.Candidate

var Evaluate = eval.Evaluate
