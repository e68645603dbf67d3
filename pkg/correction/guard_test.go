package correction

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardAcceptsMinorEdits(t *testing.T) {
	g := DefaultGuard()
	assert.NoError(t, g.Validate("She run to the store.", "She runs to the store."))
	assert.NoError(t, g.Validate("unchanged text", "unchanged text"))
}

func TestGuardRejectsEmptyOutput(t *testing.T) {
	g := DefaultGuard()
	err := g.Validate("some input", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputRejected)

	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, ErrCodeValidation, berr.Code)
	assert.False(t, berr.IsRetryable())

	// 空输入不校验
	assert.NoError(t, g.Validate("", ""))
	assert.NoError(t, g.Validate("   ", "whatever"))
}

func TestGuardRejectsRunawayRepetition(t *testing.T) {
	g := DefaultGuard()
	original := "A normal sentence."
	runaway := strings.Repeat("A normal sentence. ", 10)

	err := g.Validate(original, runaway)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputRejected)
}

func TestGuardRejectsDivergedOutput(t *testing.T) {
	g := DefaultGuard()
	err := g.Validate(
		"The weather today is sunny and warm.",
		"Kangaroos outnumber people in parts of it.",
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutputRejected)
}

func TestGuardDisabledThresholds(t *testing.T) {
	g := &OutputGuard{}
	// 阈值为零时长度和相似度检查关闭，只拦空输出
	assert.NoError(t, g.Validate("abc", strings.Repeat("xyz", 100)))
	assert.Error(t, g.Validate("abc", ""))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("same", "same"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Less(t, similarity("abcdefgh", "zzzzzzzz"), 0.2)
	assert.Greater(t, similarity("She run fast.", "She runs fast."), 0.9)
}

func TestWrapProviderErrorPassthrough(t *testing.T) {
	orig := NewBackendError(ErrCodeRateLimit, "stub", "too many requests", errors.New("rate limit exceeded"))
	wrapped := WrapProviderError(orig, "other")

	var berr *BackendError
	require.ErrorAs(t, wrapped, &berr)
	assert.Equal(t, ErrCodeRateLimit, berr.Code)
	assert.Equal(t, "stub", berr.BackendID)
}

func TestWrapProviderErrorClassifiesNetwork(t *testing.T) {
	wrapped := WrapProviderError(errors.New("dial tcp: connection refused"), "stub")

	var berr *BackendError
	require.ErrorAs(t, wrapped, &berr)
	assert.Equal(t, "stub", berr.BackendID)
	assert.True(t, berr.IsRetryable())
}
