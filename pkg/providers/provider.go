package providers

import (
	"context"
	"time"
)

// BaseConfig 提供商基础配置
type BaseConfig struct {
	// 服务端点
	Endpoint string `json:"endpoint,omitempty"`

	// API 密钥（本地服务通常不需要）
	APIKey string `json:"api_key,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    2 * time.Minute,
		MaxRetries: 3,
		Headers:    make(map[string]string),
	}
}

// Request 校正请求
type Request struct {
	// Text 已分块的单个文本单元
	Text string

	// Metadata 额外的请求元数据
	Metadata map[string]string
}

// Response 校正响应
type Response struct {
	// Text 校正后的文本
	Text string

	// TokensIn/TokensOut token 统计（后端支持时填写）
	TokensIn  int
	TokensOut int

	// Model 实际使用的模型
	Model string

	// Metadata 额外的响应元数据
	Metadata map[string]string
}

// Provider 校正提供商接口
//
// 所有提供商暴露完全一致的契约，失败或降级细节封装在实现内部。
type Provider interface {
	// Correct 校正一个文本单元
	Correct(ctx context.Context, req *Request) (*Response, error)

	// GetName 获取提供商名称
	GetName() string

	// ContextWindow 单次调用能处理的最大 token 跨度
	ContextWindow() int

	// HealthCheck 健康检查
	HealthCheck(ctx context.Context) error
}
