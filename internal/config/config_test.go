package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 切到空目录，避免读到工作区的 corrector.yaml
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, BackendRuleBased, cfg.Backend)
	assert.Equal(t, ModeReplace, cfg.Mode)
	assert.False(t, cfg.FailFast)
	assert.Equal(t, 0.5, cfg.MinSimilarity)
	assert.Equal(t, 2.0, cfg.MaxGrowth)
	assert.True(t, cfg.Normalize.Currency)

	lt := cfg.BackendFor(BackendRuleBased)
	assert.Equal(t, "http://localhost:8010", lt.Endpoint)
	assert.Equal(t, "https://api.languagetool.org", lt.RemoteEndpoint)
	assert.Equal(t, "en-US", lt.Language)
	assert.Equal(t, 3, lt.MaxRetries)

	llama := cfg.BackendFor(BackendLocalModel)
	assert.Equal(t, 4096, llama.ContextWindow)
	assert.Equal(t, 0.1, llama.Temperature)

	t5 := cfg.BackendFor(BackendTransformer)
	assert.Equal(t, 512, t5.ContextWindow)
	assert.Equal(t, 2, t5.NumBeams)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrector.yaml")
	content := `
backend: localmodel
mode: hybrid
fail_fast: true
output_dir: /tmp/out
backends:
  localmodel:
    endpoint: http://gpu-box:8080/v1
    model: custom-gguf
  rulebased:
    max_retries: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, BackendLocalModel, cfg.Backend)
	assert.Equal(t, ModeHybrid, cfg.Mode)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, "http://gpu-box:8080/v1", cfg.BackendFor(BackendLocalModel).Endpoint)
	assert.Equal(t, "custom-gguf", cfg.BackendFor(BackendLocalModel).Model)
	// 显式写 0 关闭重试，默认值不覆盖
	assert.Equal(t, 0, cfg.BackendFor(BackendRuleBased).MaxRetries)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/corrector.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid replace", Config{Backend: BackendRuleBased, Mode: ModeReplace}, false},
		{"valid supplement", Config{Backend: BackendTransformer, Mode: ModeSupplement}, false},
		{"bad backend", Config{Backend: "gpt5", Mode: ModeReplace}, true},
		{"bad mode", Config{Backend: BackendRuleBased, Mode: "mixed"}, true},
		{"negative retries", Config{Backend: BackendRuleBased, Mode: ModeReplace,
			Backends: map[string]BackendConfig{BackendRuleBased: {MaxRetries: -1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
