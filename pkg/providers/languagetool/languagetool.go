package languagetool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/retry"
	"go.uber.org/zap"
)

// Config LanguageTool 配置
type Config struct {
	providers.BaseConfig

	// Language 校正语言
	Language string `json:"language"`

	// LocalEndpoint 本地进程端点，首选
	LocalEndpoint string `json:"local_endpoint"`

	// RemoteEndpoint 远程公共 API 端点，次选
	RemoteEndpoint string `json:"remote_endpoint"`

	// RetryConfig 重试配置
	RetryConfig retry.Config `json:"retry_config"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:     providers.DefaultConfig(),
		Language:       "en-US",
		LocalEndpoint:  "http://localhost:8010",
		RemoteEndpoint: "https://api.languagetool.org",
		RetryConfig:    retry.DefaultConfig(),
	}
}

// attempt 降级链中的一次提供者尝试
type attempt struct {
	name     string
	endpoint string
}

// Provider 规则校对引擎提供商
//
// 初始化为有序降级链：本地进程 → 远程 API → 禁用透传。链是显式的
// 尝试列表，首个成功者短路；某一级失败后在本次运行内不再回头。
// 禁用模式总是原样返回输入。
type Provider struct {
	config      Config
	chain       []attempt
	active      int
	retryClient *retry.HTTPClient
	logger      *zap.Logger
}

// New 创建 LanguageTool 提供商
func New(config Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	var chain []attempt
	if config.LocalEndpoint != "" {
		chain = append(chain, attempt{name: "local", endpoint: config.LocalEndpoint})
	}
	if config.RemoteEndpoint != "" {
		chain = append(chain, attempt{name: "remote", endpoint: config.RemoteEndpoint})
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	retrier := retry.NewRetrier(config.RetryConfig)

	return &Provider{
		config:      config,
		chain:       chain,
		retryClient: retrier.WrapHTTPClient(httpClient),
		logger:      logger,
	}
}

// Correct 执行规则校正
//
// 链上所有提供者都不可达时降级为透传，返回未修改的输入而不是错误。
func (p *Provider) Correct(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	for p.active < len(p.chain) {
		att := p.chain[p.active]

		matches, err := p.check(ctx, att.endpoint, req.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("languagetool provider unreachable, falling back",
				zap.String("provider", att.name),
				zap.String("endpoint", att.endpoint),
				zap.Error(err))
			p.active++
			continue
		}

		corrected := applySafeMatches(req.Text, matches)
		if !markdownParityOK(req.Text, corrected) {
			p.logger.Warn("correction broke markdown symbol parity, reverting block",
				zap.String("provider", att.name))
			corrected = req.Text
		}

		return &providers.Response{
			Text:  corrected,
			Model: "languagetool-" + att.name,
			Metadata: map[string]string{
				"provider": att.name,
			},
		}, nil
	}

	// 禁用透传
	return &providers.Response{
		Text:  req.Text,
		Model: "languagetool-disabled",
		Metadata: map[string]string{
			"provider": "disabled",
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "rulebased"
}

// ContextWindow 规则引擎按字符工作，给一个宽松的等效窗口
func (p *Provider) ContextWindow() int {
	return 10000
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	if p.active >= len(p.chain) {
		// 禁用模式总是健康的
		return nil
	}
	_, err := p.check(ctx, p.chain[p.active].endpoint, "Hello")
	return err
}

// ActiveProvider 返回当前生效的链节点名称，链耗尽时为 "disabled"
func (p *Provider) ActiveProvider() string {
	if p.active >= len(p.chain) {
		return "disabled"
	}
	return p.chain[p.active].name
}

// check 调用 /v2/check 接口
func (p *Provider) check(ctx context.Context, endpoint, text string) ([]Match, error) {
	form := url.Values{}
	form.Set("language", p.config.Language)
	form.Set("text", text)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(endpoint, "/")+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.retryClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("languagetool API error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var checkResp CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return checkResp.Matches, nil
}

// CheckResponse /v2/check 响应
type CheckResponse struct {
	Matches []Match `json:"matches"`
}

// Match 一条校对建议
type Match struct {
	Message      string        `json:"message"`
	Offset       int           `json:"offset"`
	Length       int           `json:"length"`
	Replacements []Replacement `json:"replacements"`
	Rule         Rule          `json:"rule"`
}

// Replacement 替换建议
type Replacement struct {
	Value string `json:"value"`
}

// Rule 触发的规则
type Rule struct {
	ID string `json:"id"`
}
