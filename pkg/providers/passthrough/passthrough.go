package passthrough

import (
	"context"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
)

// Provider 透传提供商（原样返回输入，不做任何校正）
//
// 用于禁用模式和往返一致性测试。
type Provider struct{}

// New 创建透传提供商
func New() *Provider {
	return &Provider{}
}

// Correct 直接返回原文
func (p *Provider) Correct(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return &providers.Response{
		Text:  req.Text,
		Model: "passthrough",
		Metadata: map[string]string{
			"type": "identity",
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "passthrough"
}

// ContextWindow 透传没有实际窗口限制
func (p *Provider) ContextWindow() int {
	return 1 << 20
}

// HealthCheck 透传提供商总是健康的
func (p *Provider) HealthCheck(ctx context.Context) error {
	return nil
}
