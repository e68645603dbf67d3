package seq2seq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/retry"
)

// Config 序列到序列模型配置
//
// 束搜索加重复惩罚和 no-repeat-ngram 约束，避免生成端复读跑飞。
// 上下文窗口只有 512 token，需要比量化模型更激进的分块。
type Config struct {
	providers.BaseConfig

	// Model 模型标识
	Model string `json:"model"`

	// ContextWindow 上下文窗口，seq2seq 校正模型为 512 token
	ContextWindow int `json:"context_window"`

	// 生成参数
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float32 `json:"repetition_penalty"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size"`
	MaxLength         int     `json:"max_length"`

	// RetryConfig 重试配置
	RetryConfig retry.Config `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:        providers.DefaultConfig(),
		Model:             "flan-t5-large-grammar-synthesis",
		ContextWindow:     512,
		NumBeams:          2,
		RepetitionPenalty: 1.2,
		NoRepeatNgramSize: 4,
		MaxLength:         512,
		RetryConfig:       retry.DefaultConfig(),
	}
}

// Provider 序列到序列校正提供商
type Provider struct {
	config      Config
	retryClient *retry.HTTPClient
}

// New 创建 seq2seq 提供商
func New(config Config) *Provider {
	if config.Endpoint == "" {
		config.Endpoint = "http://localhost:8081"
	}
	if config.ContextWindow <= 0 {
		config.ContextWindow = 512
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	retrier := retry.NewRetrier(config.RetryConfig)

	return &Provider{
		config:      config,
		retryClient: retrier.WrapHTTPClient(httpClient),
	}
}

// Correct 执行校正
func (p *Provider) Correct(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	generateReq := GenerateRequest{
		Inputs: req.Text,
		Parameters: Parameters{
			NumBeams:          p.config.NumBeams,
			RepetitionPenalty: p.config.RepetitionPenalty,
			NoRepeatNgramSize: p.config.NoRepeatNgramSize,
			MaxLength:         p.config.MaxLength,
			DoSample:          false,
		},
	}

	resp, err := p.generate(ctx, generateReq)
	if err != nil {
		return nil, err
	}

	return &providers.Response{
		Text:      strings.TrimSpace(resp.GeneratedText),
		TokensIn:  resp.InputTokens,
		TokensOut: resp.OutputTokens,
		Model:     p.config.Model,
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "transformer"
}

// ContextWindow 返回上下文窗口
func (p *Provider) ContextWindow() int {
	return p.config.ContextWindow
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.generate(ctx, GenerateRequest{
		Inputs:     "Hello",
		Parameters: Parameters{NumBeams: 1, MaxLength: 8},
	})
	return err
}

// generate 调用生成接口
func (p *Provider) generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.config.Endpoint, "/")+"/correct", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.retryClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)

		var apiErr APIError
		if json.Unmarshal(errBody, &apiErr) == nil && apiErr.ErrorMsg != "" {
			return nil, &apiErr
		}
		return nil, fmt.Errorf("seq2seq API error: %s", resp.Status)
	}

	var generateResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generateResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &generateResp, nil
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

// Parameters 生成参数
type Parameters struct {
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float32 `json:"repetition_penalty,omitempty"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size,omitempty"`
	MaxLength         int     `json:"max_length,omitempty"`
	DoSample          bool    `json:"do_sample"`
}

// GenerateResponse 生成响应
type GenerateResponse struct {
	GeneratedText string `json:"generated_text"`
	InputTokens   int    `json:"input_tokens"`
	OutputTokens  int    `json:"output_tokens"`
}

// APIError API 错误
type APIError struct {
	ErrorMsg string `json:"error"`
}

func (e *APIError) Error() string {
	return e.ErrorMsg
}
