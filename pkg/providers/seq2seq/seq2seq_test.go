package seq2seq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/providers/retry"
)

func newTestProvider(endpoint string) *Provider {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Timeout = 5 * time.Second
	cfg.RetryConfig = retry.Config{MaxRetries: 0, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}
	return New(cfg)
}

func TestCorrectSendsBeamSearchParameters(t *testing.T) {
	var captured GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/correct", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{
			GeneratedText: "She runs to the store.",
			InputTokens:   7,
			OutputTokens:  7,
		})
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	resp, err := p.Correct(context.Background(), &providers.Request{Text: "She run to the store."})
	require.NoError(t, err)

	assert.Equal(t, "She runs to the store.", resp.Text)
	assert.Equal(t, "flan-t5-large-grammar-synthesis", resp.Model)
	assert.Equal(t, 7, resp.TokensIn)

	// 束搜索 + 重复抑制参数防止生成端复读
	assert.Equal(t, "She run to the store.", captured.Inputs)
	assert.Equal(t, 2, captured.Parameters.NumBeams)
	assert.InDelta(t, 1.2, captured.Parameters.RepetitionPenalty, 1e-6)
	assert.Equal(t, 4, captured.Parameters.NoRepeatNgramSize)
	assert.Equal(t, 512, captured.Parameters.MaxLength)
	assert.False(t, captured.Parameters.DoSample)
}

func TestCorrectAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "input too long"}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.Correct(context.Background(), &providers.Request{Text: "text"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Error(), "input too long")
}

func TestCorrectRetriesTransientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{GeneratedText: "ok"})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Endpoint = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.RetryConfig = retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}
	p := New(cfg)

	resp, err := p.Correct(context.Background(), &providers.Request{Text: "text"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 2, calls)
}

func TestContextWindowSmall(t *testing.T) {
	p := newTestProvider("http://localhost:1")
	assert.Equal(t, 512, p.ContextWindow())
}
