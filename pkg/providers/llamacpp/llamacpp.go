package llamacpp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
)

// systemPrompt 指令式提示词，显式要求保留人名和俚语
const systemPrompt = "You are a copy editor. Fix grammar, spelling, and punctuation " +
	"while keeping character names, slang, and factual content unchanged. " +
	"Respond with the corrected text only."

// Config 本地量化模型配置
//
// 默认解码参数来自 GRMR-V3 模型卡：低温度、收紧的 top-p/top-k，
// 固定停止序列，保证确定性输出。
type Config struct {
	providers.BaseConfig

	// Model 模型标识（llama.cpp server 通常忽略，按加载的 GGUF 走）
	Model string `json:"model"`

	// ContextWindow 固定上下文窗口，GGUF 量化模型为 4096 token
	ContextWindow int `json:"context_window"`

	// MaxNewTokens 单次生成上限
	MaxNewTokens int `json:"max_new_tokens"`

	// 解码参数
	Temperature float32  `json:"temperature"`
	TopP        float32  `json:"top_p"`
	Stop        []string `json:"stop"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:    providers.DefaultConfig(),
		Model:         "grmr-v3-q4b",
		ContextWindow: 4096,
		MaxNewTokens:  256,
		Temperature:   0.1,
		TopP:          0.15,
		Stop:          []string{"###", "\n\n\n"},
	}
}

// Provider 本地量化模型提供商
//
// 通过 llama.cpp server 的 OpenAI 兼容接口调用，模型实例由服务端
// 常驻加载，进程内不持有模型状态。
type Provider struct {
	config Config
	client *openai.Client
	logger *zap.Logger
}

// New 创建本地量化模型提供商
func New(config Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Endpoint == "" {
		config.Endpoint = "http://localhost:8080/v1"
	}
	if config.ContextWindow <= 0 {
		config.ContextWindow = 4096
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.Endpoint
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}
}

// Correct 执行校正
func (p *Provider) Correct(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	// 输入超窗只告警不失败，服务端会自行截断
	estimated := estimateTokens(systemPrompt+req.Text) + p.config.MaxNewTokens
	if estimated > p.config.ContextWindow {
		p.logger.Warn("input may exceed model context window, output may be truncated",
			zap.Int("estimated_tokens", estimated),
			zap.Int("context_window", p.config.ContextWindow))
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
		MaxTokens:   p.config.MaxNewTokens,
		Stop:        p.config.Stop,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llamacpp completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llamacpp returned no choices")
	}

	return &providers.Response{
		Text:      strings.TrimSpace(resp.Choices[0].Message.Content),
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		Model:     resp.Model,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "localmodel"
}

// ContextWindow 返回固定上下文窗口
func (p *Provider) ContextWindow() int {
	return p.config.ContextWindow
}

// estimateTokens 粗略估算 token 数，约 4 个字符一个 token
func estimateTokens(text string) int {
	return (len([]rune(text)) + 3) / 4
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.config.Model,
		MaxTokens: 5,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
	})
	return err
}
