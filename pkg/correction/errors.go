package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 预定义错误
var (
	// ErrEmptyText 空文本
	ErrEmptyText = errors.New("empty text provided")

	// ErrChunkTooLarge 单个词超过上下文窗口，无法在词边界内切分
	ErrChunkTooLarge = errors.New("text cannot be split within context window")

	// ErrOutputRejected 后端输出未通过校验
	ErrOutputRejected = errors.New("backend output rejected by guard")
)

// 错误代码常量
const (
	ErrCodeBackend    = "BACKEND_ERROR"
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeTimeout    = "TIMEOUT_ERROR"
	ErrCodeRateLimit  = "RATE_LIMIT_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
)

// BackendError 校正调用失败
type BackendError struct {
	Code      string // 错误代码
	BackendID string // 出错的后端
	Message   string // 错误消息
	Retryable bool   // 是否可重试
	Cause     error  // 原因
}

// Error 实现 error 接口
func (e *BackendError) Error() string {
	if e.BackendID != "" {
		return fmt.Sprintf("[%s] backend %s: %s", e.Code, e.BackendID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// IsRetryable 是否可重试
func (e *BackendError) IsRetryable() bool {
	return e.Retryable
}

// NewBackendError 创建后端错误
func NewBackendError(code, backendID, message string, cause error) *BackendError {
	return &BackendError{
		Code:      code,
		BackendID: backendID,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryableError(cause),
	}
}

// WrapProviderError 把 provider 返回的错误归一化为 BackendError
func WrapProviderError(err error, backendID string) *BackendError {
	if err == nil {
		return nil
	}

	var be *BackendError
	if errors.As(err, &be) {
		return be
	}

	code := ErrCodeBackend
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	case isRetryableError(err):
		code = ErrCodeNetwork
	}

	return &BackendError{
		Code:      code,
		BackendID: backendID,
		Message:   err.Error(),
		Cause:     err,
		Retryable: isRetryableError(err),
	}
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"temporary failure",
		"rate limit",
		"429",
		"503",
		"504",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"i/o timeout",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
