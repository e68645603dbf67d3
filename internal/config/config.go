package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// 后端标识常量
const (
	BackendRuleBased   = "rulebased"
	BackendLocalModel  = "localmodel"
	BackendTransformer = "transformer"
	BackendPassthrough = "passthrough"
)

// 后端组合模式常量
const (
	ModeReplace    = "replace"    // 只用选定后端
	ModeHybrid     = "hybrid"     // 选定后端在前，规则引擎清理在后
	ModeSupplement = "supplement" // 规则引擎在前，选定后端补充在后
)

// BackendConfig 单个校正后端的配置
type BackendConfig struct {
	Endpoint          string   `mapstructure:"endpoint"`
	RemoteEndpoint    string   `mapstructure:"remote_endpoint"` // 仅规则引擎：远程降级端点
	APIKey            string   `mapstructure:"api_key"`
	Model             string   `mapstructure:"model"`
	Language          string   `mapstructure:"language"`
	ContextWindow     int      `mapstructure:"context_window"`
	MaxNewTokens      int      `mapstructure:"max_new_tokens"`
	Temperature       float64  `mapstructure:"temperature"`
	TopP              float64  `mapstructure:"top_p"`
	Stop              []string `mapstructure:"stop"`
	NumBeams          int      `mapstructure:"num_beams"`
	RepetitionPenalty float64  `mapstructure:"repetition_penalty"`
	NoRepeatNgramSize int      `mapstructure:"no_repeat_ngram_size"`
	RequestTimeout    int      `mapstructure:"request_timeout"` // 秒
	MaxRetries        int      `mapstructure:"max_retries"`
}

// NormalizeConfig TTS 规范化配置
type NormalizeConfig struct {
	Currency bool `mapstructure:"currency"`
	Percent  bool `mapstructure:"percent"`
	Dates    bool `mapstructure:"dates"`
	Ordinals bool `mapstructure:"ordinals"`
}

// Config 保存校正器的所有配置
//
// 每次运行构造一次，按引用传给编排器和每个阶段，没有全局状态。
type Config struct {
	Backend  string `mapstructure:"backend"`   // rulebased | localmodel | transformer
	Mode     string `mapstructure:"mode"`      // replace | hybrid | supplement
	FailFast bool   `mapstructure:"fail_fast"` // 首错即止，不产出输出文件

	OutputDir string `mapstructure:"output_dir"` // 为空时输出写在输入文件旁

	// 守卫阈值
	MinSimilarity float64 `mapstructure:"min_similarity"`
	MaxGrowth     float64 `mapstructure:"max_growth"`

	Normalize NormalizeConfig          `mapstructure:"normalize"`
	Backends  map[string]BackendConfig `mapstructure:"backends"`

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

// setDefaults 写入默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendRuleBased)
	v.SetDefault("mode", ModeReplace)
	v.SetDefault("fail_fast", false)
	v.SetDefault("min_similarity", 0.5)
	v.SetDefault("max_growth", 2.0)

	v.SetDefault("normalize.currency", true)
	v.SetDefault("normalize.percent", true)
	v.SetDefault("normalize.dates", true)
	v.SetDefault("normalize.ordinals", true)

	v.SetDefault("backends.rulebased.endpoint", "http://localhost:8010")
	v.SetDefault("backends.rulebased.remote_endpoint", "https://api.languagetool.org")
	v.SetDefault("backends.rulebased.language", "en-US")
	v.SetDefault("backends.rulebased.request_timeout", 30)
	v.SetDefault("backends.rulebased.max_retries", 3)

	v.SetDefault("backends.localmodel.endpoint", "http://localhost:8080/v1")
	v.SetDefault("backends.localmodel.model", "grmr-v3-q4b")
	v.SetDefault("backends.localmodel.context_window", 4096)
	v.SetDefault("backends.localmodel.max_new_tokens", 256)
	v.SetDefault("backends.localmodel.temperature", 0.1)
	v.SetDefault("backends.localmodel.top_p", 0.15)
	v.SetDefault("backends.localmodel.request_timeout", 300)

	v.SetDefault("backends.transformer.endpoint", "http://localhost:8081")
	v.SetDefault("backends.transformer.model", "flan-t5-large-grammar-synthesis")
	v.SetDefault("backends.transformer.context_window", 512)
	v.SetDefault("backends.transformer.num_beams", 2)
	v.SetDefault("backends.transformer.repetition_penalty", 1.2)
	v.SetDefault("backends.transformer.no_repeat_ngram_size", 4)
	v.SetDefault("backends.transformer.request_timeout", 300)
	v.SetDefault("backends.transformer.max_retries", 3)
}

// LoadConfig 从文件加载配置
//
// configPath 为空时按 ./corrector.yaml → ~/.config/corrector/corrector.yaml
// 的顺序查找；都不存在时使用默认值。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CORRECTOR")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("corrector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "corrector"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置组合
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRuleBased, BackendLocalModel, BackendTransformer, BackendPassthrough:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Mode {
	case ModeReplace, ModeHybrid, ModeSupplement:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}

	for name, bc := range c.Backends {
		if bc.MaxRetries < 0 {
			return fmt.Errorf("backend %s: max_retries must not be negative", name)
		}
	}

	return nil
}

// BackendFor 取指定后端的配置，不存在时返回零值
func (c *Config) BackendFor(name string) BackendConfig {
	if c.Backends == nil {
		return BackendConfig{}
	}
	return c.Backends[name]
}
