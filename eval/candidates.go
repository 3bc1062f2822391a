package eval

import (
	"fmt"

	"github.com/rushteam/grapheval/core"
	"github.com/rushteam/grapheval/registry"
)

// Candidate 是一个候选模型：直接给定实例，或给名字由注册表解析。
// Library 在模型名存在于多个库时用于消歧。
type Candidate struct {
	Model   core.ClassifierModel
	Name    string
	Library string
}

// NamedCandidates 把平行的名字与库名序列配对为候选序列。
// libraries 可以为空（全部不指定库）；否则长度必须与 names 一致。
func NamedCandidates(names, libraries []string) ([]Candidate, error) {
	if len(libraries) != 0 && len(libraries) != len(names) {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			fmt.Sprintf("the number of the provided models %d is different from "+
				"the number of provided libraries %d", len(names), len(libraries)))
	}
	candidates := make([]Candidate, len(names))
	for i, name := range names {
		candidates[i] = Candidate{Name: name}
		if len(libraries) != 0 {
			candidates[i].Library = libraries[i]
		}
	}
	return candidates, nil
}

// resolveCandidates 校验并实例化候选模型序列。
//
//   - 空序列是配置错误
//   - 名字经注册表按 (任务, 名字, 库) 解析，未注册即失败
//   - 每个实例都必须声明属于当前任务，否则类型不匹配
//   - 冒烟测试模式下模型重建为冒烟测试预设，丢弃自定义参数
//
// 返回的序列是共享原型：每次消费必须经 cloneClassifier 取独立副本。
func resolveCandidates(task Task, candidates []Candidate, smokeTest bool) ([]core.ClassifierModel, error) {
	if len(candidates) == 0 {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeConfiguration,
			"an empty list of models was provided")
	}

	resolved := make([]core.ClassifierModel, 0, len(candidates))
	for _, candidate := range candidates {
		model := candidate.Model
		if model == nil {
			built, err := registry.NewClassifier(task.Name(), candidate.Name, candidate.Library)
			if err != nil {
				return nil, err
			}
			model = built
		}
		if model.TaskName() != task.Name() {
			return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeTypeMismatch,
				fmt.Sprintf("the provided classifier model %q from the %s library is an "+
					"implementation for the %q task, but an implementation for the %q task "+
					"was expected", model.ModelName(), model.LibraryName(),
					model.TaskName(), task.Name()))
		}
		if smokeTest {
			model = model.IntoSmokeTest()
		}
		resolved = append(resolved, model)
	}
	return resolved, nil
}

// cloneClassifier 取一个独立的未拟合副本。
// 共享原型从不被 fit，每个 (模型, holdout) 组合消费一个克隆。
func cloneClassifier(model core.ClassifierModel) (core.ClassifierModel, error) {
	clone, ok := model.Clone().(core.ClassifierModel)
	if !ok {
		return nil, core.NewDomainError(core.ModuleEval, core.ErrorCodeTypeMismatch,
			fmt.Sprintf("the clone of the %q model from the %s library does not implement "+
				"the classifier capability set", model.ModelName(), model.LibraryName()))
	}
	return clone, nil
}
