package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-corrector-agent/internal/config"
	"github.com/nerdneilsfield/go-corrector-agent/internal/normalizer"
	"github.com/nerdneilsfield/go-corrector-agent/internal/pipeline"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/correction"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/languagetool"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/llamacpp"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/passthrough"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/seq2seq"
)

// newRegistry 按配置构造全部提供商并注册
//
// 提供商实例在一次运行内是长生命周期单例，注册表随运行创建、
// 随运行丢弃，没有全局状态。
func newRegistry(cfg *config.Config, log *zap.Logger) (*providers.Registry, error) {
	reg := providers.NewRegistry()

	for _, name := range []string{
		config.BackendRuleBased,
		config.BackendLocalModel,
		config.BackendTransformer,
		config.BackendPassthrough,
	} {
		p, err := buildProvider(name, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(name, p); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// buildProvider 用配置实例化单个提供商
func buildProvider(name string, cfg *config.Config, log *zap.Logger) (providers.Provider, error) {
	bc := cfg.BackendFor(name)

	switch name {
	case config.BackendRuleBased:
		pc := languagetool.DefaultConfig()
		if bc.Endpoint != "" {
			pc.LocalEndpoint = bc.Endpoint
		}
		if bc.RemoteEndpoint != "" {
			pc.RemoteEndpoint = bc.RemoteEndpoint
		}
		if bc.Language != "" {
			pc.Language = bc.Language
		}
		if bc.RequestTimeout > 0 {
			pc.Timeout = time.Duration(bc.RequestTimeout) * time.Second
		}
		// 默认值由配置层提供，显式的 0 表示关闭重试
		pc.RetryConfig.MaxRetries = bc.MaxRetries
		return languagetool.New(pc, log), nil

	case config.BackendLocalModel:
		pc := llamacpp.DefaultConfig()
		if bc.Endpoint != "" {
			pc.Endpoint = bc.Endpoint
		}
		if bc.Model != "" {
			pc.Model = bc.Model
		}
		if bc.ContextWindow > 0 {
			pc.ContextWindow = bc.ContextWindow
		}
		if bc.MaxNewTokens > 0 {
			pc.MaxNewTokens = bc.MaxNewTokens
		}
		if bc.Temperature > 0 {
			pc.Temperature = float32(bc.Temperature)
		}
		if bc.TopP > 0 {
			pc.TopP = float32(bc.TopP)
		}
		if len(bc.Stop) > 0 {
			pc.Stop = bc.Stop
		}
		if bc.RequestTimeout > 0 {
			pc.Timeout = time.Duration(bc.RequestTimeout) * time.Second
		}
		return llamacpp.New(pc, log), nil

	case config.BackendTransformer:
		pc := seq2seq.DefaultConfig()
		if bc.Endpoint != "" {
			pc.Endpoint = bc.Endpoint
		}
		if bc.Model != "" {
			pc.Model = bc.Model
		}
		if bc.ContextWindow > 0 {
			pc.ContextWindow = bc.ContextWindow
		}
		if bc.NumBeams > 0 {
			pc.NumBeams = bc.NumBeams
		}
		if bc.RepetitionPenalty > 0 {
			pc.RepetitionPenalty = float32(bc.RepetitionPenalty)
		}
		if bc.NoRepeatNgramSize > 0 {
			pc.NoRepeatNgramSize = bc.NoRepeatNgramSize
		}
		if bc.RequestTimeout > 0 {
			pc.Timeout = time.Duration(bc.RequestTimeout) * time.Second
		}
		pc.RetryConfig.MaxRetries = bc.MaxRetries
		return seq2seq.New(pc), nil

	case config.BackendPassthrough:
		return passthrough.New(), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

// buildFilters 按模式组装过滤器链，规范化过滤器总在最后
//
// replace: 只用选定后端
// hybrid: 选定后端在前，规则引擎收尾清理
// supplement: 规则引擎先跑，选定后端补充
func buildFilters(cfg *config.Config, reg *providers.Registry, log *zap.Logger, sink pipeline.Sink) ([]pipeline.Filter, error) {
	var names []string
	switch cfg.Mode {
	case config.ModeReplace:
		names = []string{cfg.Backend}
	case config.ModeHybrid:
		names = []string{cfg.Backend, config.BackendRuleBased}
	case config.ModeSupplement:
		names = []string{config.BackendRuleBased, cfg.Backend}
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	// 选定后端本身就是规则引擎时去重
	if len(names) == 2 && names[0] == names[1] {
		names = names[:1]
	}

	guard := &correction.OutputGuard{
		MinSimilarity: cfg.MinSimilarity,
		MaxGrowth:     cfg.MaxGrowth,
	}

	var filters []pipeline.Filter
	for _, name := range names {
		p, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		backend := correction.NewBackend(p, cfg.BackendFor(name).ContextWindow)
		filters = append(filters, pipeline.NewBackendFilter(backend, guard, cfg.FailFast, log, sink))
	}

	filters = append(filters, normalizer.New(normalizer.Options{
		Currency: cfg.Normalize.Currency,
		Percent:  cfg.Normalize.Percent,
		Dates:    cfg.Normalize.Dates,
		Ordinals: cfg.Normalize.Ordinals,
	}, log))

	return filters, nil
}
