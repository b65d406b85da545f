package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Embedding 错误：UNAVAILABLE
//   - Cache 错误：GENERATION_TIMEOUT
//   - 输入校验：INVALID_INPUT
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_INPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "cache", "embedding"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound          = "NOT_FOUND"           // 资源不存在
	ErrorCodeNotSupported      = "NOT_SUPPORTED"       // 操作不支持
	ErrorCodeUnavailable       = "UNAVAILABLE"         // 外部服务不可用
	ErrorCodeInvalidInput      = "INVALID_INPUT"       // 输入无效
	ErrorCodeGenerationTimeout = "GENERATION_TIMEOUT"  // 等待在途生成超时，可重试
	ErrorCodeInternalError     = "INTERNAL_ERROR"      // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleCache     = "cache"     // 结果缓存模块
	ModuleEmbedding = "embedding" // 向量服务模块
	ModuleEngine    = "engine"    // 编排模块
	ModuleFeedback  = "feedback"  // 反馈模块
	ModuleExplain   = "explain"   // 解释模块
	ModuleProfile   = "profile"   // 画像模块
	ModuleCatalog   = "catalog"   // 项目目录模块
	ModuleVector    = "vector"    // 向量检索模块
)

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT。
func IsInvalidInput(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidInput
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE。
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsGenerationTimeout 检查错误是否为等待在途生成超时。
func IsGenerationTimeout(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeGenerationTimeout
	}
	return false
}
