package document

import (
	"errors"
	"fmt"
)

// 预定义错误
var (
	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrForeignHandle 结构句柄不属于当前适配器
	ErrForeignHandle = errors.New("structure handle was not produced by this adapter")
)

// AdapterError 解析或渲染阶段的结构性失败，始终致命
type AdapterError struct {
	Path  string // 文档路径
	Stage string // "parse" 或 "render"
	Err   error
}

// Error 实现 error 接口
func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %s failed for %s: %v", e.Stage, e.Path, e.Err)
}

// Unwrap 返回原因错误
func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError 创建适配器错误
func NewAdapterError(stage, path string, err error) *AdapterError {
	return &AdapterError{Path: path, Stage: stage, Err: err}
}

// StructuralMismatchError 块数量不变式被破坏，始终致命
type StructuralMismatchError struct {
	Want int // 解析时记录的块数量
	Got  int // 当前块数量
}

// Error 实现 error 接口
func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("structural mismatch: expected %d blocks, got %d", e.Want, e.Got)
}

// IsFatal 判断错误是否必须终止整个运行
//
// 适配器错误和结构错误无法保证往返完整性，无论 fail_fast 与否都致命。
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var adapterErr *AdapterError
	var structErr *StructuralMismatchError
	return errors.As(err, &adapterErr) || errors.As(err, &structErr)
}
