// Package registry 维护进程级的模型注册表。
//
// 各模型包在 init 中调用 RegisterEmbedder / RegisterClassifier 完成注册，
// 例如：func init() { registry.RegisterEmbedder("Degree SPINE", "gonum", newDegree) }
// 注册表在首次使用前构建完毕，运行期只读。
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/grapheval/core"
)

type embedderKey struct {
	name    string
	library string
}

type classifierKey struct {
	task    string
	name    string
	library string
}

var (
	mu          sync.RWMutex
	embedders   = make(map[embedderKey]func() core.EmbeddingModel)
	classifiers = make(map[classifierKey]func() core.ClassifierModel)
)

// RegisterEmbedder 注册一种嵌入模型的构建逻辑。
func RegisterEmbedder(name, library string, builder func() core.EmbeddingModel) {
	if name == "" || library == "" || builder == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	embedders[embedderKey{name: name, library: library}] = builder
}

// RegisterClassifier 注册一种分类模型的构建逻辑，按任务名隔离。
func RegisterClassifier(task, name, library string, builder func() core.ClassifierModel) {
	if task == "" || name == "" || library == "" || builder == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	classifiers[classifierKey{task: task, name: name, library: library}] = builder
}

// SupportedEmbedders 返回当前已注册的嵌入模型名列表（排序），用于错误提示。
func SupportedEmbedders() []string {
	mu.RLock()
	defer mu.RUnlock()
	seen := make(map[string]struct{}, len(embedders))
	for k := range embedders {
		seen[k.name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SupportedClassifiers 返回给定任务下已注册的分类模型名列表（排序）。
func SupportedClassifiers(task string) []string {
	mu.RLock()
	defer mu.RUnlock()
	seen := make(map[string]struct{})
	for k := range classifiers {
		if k.task == task {
			seen[k.name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewEmbedder 按名构建嵌入模型。
// library 为空时要求该名称在全部库中唯一，否则返回 CONFIGURATION 错误
// 并列出候选库名；名称未注册时返回 UNKNOWN_MODEL 错误。
func NewEmbedder(name, library string) (core.EmbeddingModel, error) {
	mu.RLock()
	defer mu.RUnlock()
	if library != "" {
		builder, ok := embedders[embedderKey{name: name, library: library}]
		if !ok {
			return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeUnknownModel,
				fmt.Sprintf("the embedding model %q is not registered in library %q, "+
					"the registered embedding models are: %s",
					name, library, strings.Join(supportedEmbeddersLocked(), ", ")))
		}
		return builder(), nil
	}
	var (
		found     func() core.EmbeddingModel
		libraries []string
	)
	for k, builder := range embedders {
		if k.name == name {
			found = builder
			libraries = append(libraries, k.library)
		}
	}
	if found == nil {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeUnknownModel,
			fmt.Sprintf("the embedding model %q is not registered, "+
				"the registered embedding models are: %s",
				name, strings.Join(supportedEmbeddersLocked(), ", ")))
	}
	if len(libraries) > 1 {
		sort.Strings(libraries)
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeConfiguration,
			fmt.Sprintf("the embedding model %q is registered in multiple libraries (%s), "+
				"a library name is required to disambiguate",
				name, strings.Join(libraries, ", ")))
	}
	return found(), nil
}

// NewClassifier 按 (任务, 名称) 构建分类模型，歧义与缺失语义同 NewEmbedder。
func NewClassifier(task, name, library string) (core.ClassifierModel, error) {
	mu.RLock()
	defer mu.RUnlock()
	if library != "" {
		builder, ok := classifiers[classifierKey{task: task, name: name, library: library}]
		if !ok {
			return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeUnknownModel,
				fmt.Sprintf("the classifier model %q is not registered in library %q for task %q, "+
					"the registered models are: %s",
					name, library, task, strings.Join(supportedClassifiersLocked(task), ", ")))
		}
		return builder(), nil
	}
	var (
		found     func() core.ClassifierModel
		libraries []string
	)
	for k, builder := range classifiers {
		if k.task == task && k.name == name {
			found = builder
			libraries = append(libraries, k.library)
		}
	}
	if found == nil {
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeUnknownModel,
			fmt.Sprintf("the classifier model %q is not registered for task %q, "+
				"the registered models are: %s",
				name, task, strings.Join(supportedClassifiersLocked(task), ", ")))
	}
	if len(libraries) > 1 {
		sort.Strings(libraries)
		return nil, core.NewDomainError(core.ModuleRegistry, core.ErrorCodeConfiguration,
			fmt.Sprintf("the classifier model %q is registered in multiple libraries (%s) for task %q, "+
				"a library name is required to disambiguate",
				name, strings.Join(libraries, ", "), task))
	}
	return found(), nil
}

func supportedEmbeddersLocked() []string {
	seen := make(map[string]struct{}, len(embedders))
	for k := range embedders {
		seen[k.name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func supportedClassifiersLocked(task string) []string {
	seen := make(map[string]struct{})
	for k := range classifiers {
		if k.task == task {
			seen[k.name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
