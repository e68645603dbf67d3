package correction

import (
	"context"
	"strings"
	"time"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
)

// Backend 校正后端统一契约
//
// text 必须是已经分块、不超过后端上下文窗口的单个单元。实现必须保持
// 语义内容不变：人名和俚语除非属于明确的语法修复，否则不得改动。
// 编排器永远不会根据后端的具体类型分支。
type Backend interface {
	// Correct 校正单个文本单元
	Correct(ctx context.Context, text string) (*Result, error)

	// Name 返回后端标识
	Name() string

	// ContextWindow 返回后端单次调用的最大 token 跨度
	ContextWindow() int
}

// Result 每次后端调用产生一个校正结果
type Result struct {
	Text      string
	Changed   bool
	BackendID string
	Latency   time.Duration
}

// backendAdapter 把传输层 provider 包装为 Backend
type backendAdapter struct {
	provider providers.Provider
	window   int
}

// NewBackend 基于 provider 创建后端
//
// window <= 0 时使用 provider 声明的上下文窗口。
func NewBackend(p providers.Provider, window int) Backend {
	if window <= 0 {
		window = p.ContextWindow()
	}
	return &backendAdapter{provider: p, window: window}
}

// Correct 执行校正调用并补全结果元信息
func (b *backendAdapter) Correct(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()
	resp, err := b.provider.Correct(ctx, &providers.Request{Text: text})
	latency := time.Since(start)
	if err != nil {
		return nil, WrapProviderError(err, b.provider.GetName())
	}

	return &Result{
		Text:      resp.Text,
		Changed:   resp.Text != text,
		BackendID: b.provider.GetName(),
		Latency:   latency,
	}, nil
}

// Name 返回后端标识
func (b *backendAdapter) Name() string {
	return b.provider.GetName()
}

// ContextWindow 返回上下文窗口大小
func (b *backendAdapter) ContextWindow() int {
	return b.window
}
