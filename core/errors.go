package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 委托层失败（模型 fit/evaluate 内部抛出的错误）通过 Cause 保留原始错误链
//
// 使用场景：
//   - 校验错误：CONFIGURATION, UNKNOWN_SCHEMA, UNKNOWN_MODEL, TYPE_MISMATCH
//   - 特征错误：FEATURE_ALIGNMENT, UNSUPPORTED_FEATURE_TYPE
//   - 划分错误：EMPTY_PARTITION, CONTAINMENT
//   - 报表错误：PARAMETER_COLLISION
//   - 委托失败：DELEGATE_FAILURE（始终附带 Cause）
type DomainError struct {
	Code    string // 错误代码（如 "CONFIGURATION", "UNKNOWN_SCHEMA"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "schema", "eval"）
	Cause   error  // 原始错误（仅委托失败时非空）
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap 返回原始错误，支持 errors.Is / errors.As 链式检查。
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// NewDelegateError 创建委托失败错误，保留原始错误链。
// 委托失败从不被吞掉：附加模型/库/任务上下文后始终向上传播。
func NewDelegateError(module, message string, cause error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeDelegateFailure,
		Message: message,
		Cause:   cause,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// 错误代码常量
const (
	ErrorCodeConfiguration          = "CONFIGURATION"            // 调用方参数组合无效
	ErrorCodeUnknownSchema          = "UNKNOWN_SCHEMA"           // 评估模式名称未注册
	ErrorCodeUnknownModel           = "UNKNOWN_MODEL"            // 模型名称未注册
	ErrorCodeFeatureAlignment       = "FEATURE_ALIGNMENT"        // 特征行数与图基数不匹配
	ErrorCodeUnsupportedFeatureType = "UNSUPPORTED_FEATURE_TYPE" // 特征类型不受支持
	ErrorCodeEmptyPartition         = "EMPTY_PARTITION"          // 过滤后划分失去全部节点/边
	ErrorCodeContainment            = "CONTAINMENT"              // 关注子图不包含于父图
	ErrorCodeParameterCollision     = "PARAMETER_COLLISION"      // 特征参数与保留列名冲突
	ErrorCodeTypeMismatch           = "TYPE_MISMATCH"            // 模型未实现任务要求的能力集
	ErrorCodeDelegateFailure        = "DELEGATE_FAILURE"         // 委托的 fit/evaluate 内部失败
	ErrorCodeNotFound               = "NOT_FOUND"                // 缓存条目不存在
)

// 模块名称常量
const (
	ModuleFeature  = "feature"  // 特征归一化模块
	ModuleSchema   = "schema"   // 评估划分模块
	ModuleRegistry = "registry" // 模型注册表模块
	ModuleEval     = "eval"     // 评估编排模块
	ModuleCache    = "cache"    // 缓存模块
	ModuleGraph    = "graph"    // 图模块
	ModuleReport   = "report"   // 报表模块
	ModuleConfig   = "config"   // 配置模块
)

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsConfiguration 检查错误是否为 CONFIGURATION
func IsConfiguration(err error) bool { return hasCode(err, ErrorCodeConfiguration) }

// IsUnknownSchema 检查错误是否为 UNKNOWN_SCHEMA
func IsUnknownSchema(err error) bool { return hasCode(err, ErrorCodeUnknownSchema) }

// IsUnknownModel 检查错误是否为 UNKNOWN_MODEL
func IsUnknownModel(err error) bool { return hasCode(err, ErrorCodeUnknownModel) }

// IsFeatureAlignment 检查错误是否为 FEATURE_ALIGNMENT
func IsFeatureAlignment(err error) bool { return hasCode(err, ErrorCodeFeatureAlignment) }

// IsUnsupportedFeatureType 检查错误是否为 UNSUPPORTED_FEATURE_TYPE
func IsUnsupportedFeatureType(err error) bool { return hasCode(err, ErrorCodeUnsupportedFeatureType) }

// IsEmptyPartition 检查错误是否为 EMPTY_PARTITION
func IsEmptyPartition(err error) bool { return hasCode(err, ErrorCodeEmptyPartition) }

// IsContainment 检查错误是否为 CONTAINMENT
func IsContainment(err error) bool { return hasCode(err, ErrorCodeContainment) }

// IsParameterCollision 检查错误是否为 PARAMETER_COLLISION
func IsParameterCollision(err error) bool { return hasCode(err, ErrorCodeParameterCollision) }

// IsTypeMismatch 检查错误是否为 TYPE_MISMATCH
func IsTypeMismatch(err error) bool { return hasCode(err, ErrorCodeTypeMismatch) }

// IsDelegateFailure 检查错误是否为 DELEGATE_FAILURE
func IsDelegateFailure(err error) bool { return hasCode(err, ErrorCodeDelegateFailure) }

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }
