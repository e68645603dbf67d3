package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
)

// chatRequest OpenAI 兼容接口的请求体
type chatRequest struct {
	Model       string   `json:"model"`
	Temperature float32  `json:"temperature"`
	TopP        float32  `json:"top_p"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, reply string, captured *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "grmr-v3-q4b",
			"choices": [{"message": {"role": "assistant", "content": ` + jsonString(reply) + `}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 8}
		}`))
	}))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestProvider(endpoint string) *Provider {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint + "/v1"
	cfg.Timeout = 5 * time.Second
	return New(cfg, nil)
}

func TestCorrectSendsDeterministicDecoding(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, "She runs to the store.", &captured)
	defer srv.Close()

	p := newTestProvider(srv.URL)
	resp, err := p.Correct(context.Background(), &providers.Request{Text: "She run to the store."})
	require.NoError(t, err)

	assert.Equal(t, "She runs to the store.", resp.Text)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 8, resp.TokensOut)

	// 确定性解码参数来自模型卡
	assert.InDelta(t, 0.1, captured.Temperature, 1e-6)
	assert.InDelta(t, 0.15, captured.TopP, 1e-6)
	assert.Equal(t, 256, captured.MaxTokens)
	assert.Equal(t, []string{"###", "\n\n\n"}, captured.Stop)
	assert.Equal(t, "grmr-v3-q4b", captured.Model)

	// system 提示要求保留人名和俚语
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, strings.ToLower(captured.Messages[0].Content), "names")
	assert.Equal(t, "She run to the store.", captured.Messages[1].Content)
}

func TestCorrectTrimsOutput(t *testing.T) {
	var captured chatRequest
	srv := chatServer(t, "\n  Corrected text.  \n", &captured)
	defer srv.Close()

	p := newTestProvider(srv.URL)
	resp, err := p.Correct(context.Background(), &providers.Request{Text: "some text"})
	require.NoError(t, err)
	assert.Equal(t, "Corrected text.", resp.Text)
}

func TestCorrectNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "grmr-v3-q4b", "choices": []}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.Correct(context.Background(), &providers.Request{Text: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestCorrectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model not loaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.Correct(context.Background(), &providers.Request{Text: "text"})
	assert.Error(t, err)
}

func TestContextWindowFixed(t *testing.T) {
	p := newTestProvider("http://localhost:1")
	assert.Equal(t, 4096, p.ContextWindow())
}
