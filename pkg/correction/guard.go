package correction

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// OutputGuard 后端输出校验
//
// 模型型后端偶发输出跑飞：整段复读、截断成空串、或者把内容替换成
// 无关文本。守卫用编辑距离相似度和长度膨胀两个信号拦截这类输出，
// 拦截结果是不可重试的 BackendError，由调用方决定保留原文还是中止。
type OutputGuard struct {
	// MinSimilarity 校正前后的最低相似度（0~1）
	MinSimilarity float64

	// MaxGrowth 输出长度相对输入的最大倍数
	MaxGrowth float64
}

// DefaultGuard 返回默认守卫配置
func DefaultGuard() *OutputGuard {
	return &OutputGuard{
		MinSimilarity: 0.5,
		MaxGrowth:     2.0,
	}
}

// Validate 校验后端输出，违规时返回 ErrOutputRejected 包装
func (g *OutputGuard) Validate(original, corrected string) error {
	orig := strings.TrimSpace(original)
	corr := strings.TrimSpace(corrected)

	if orig == "" {
		return nil
	}
	if corr == "" {
		return &BackendError{
			Code:      ErrCodeValidation,
			Message:   "corrected text is empty",
			Cause:     ErrOutputRejected,
			Retryable: false,
		}
	}

	origLen := utf8.RuneCountInString(orig)
	corrLen := utf8.RuneCountInString(corr)
	if g.MaxGrowth > 0 && float64(corrLen) > float64(origLen)*g.MaxGrowth {
		return &BackendError{
			Code:      ErrCodeValidation,
			Message:   "corrected text grew beyond growth limit, likely runaway repetition",
			Cause:     ErrOutputRejected,
			Retryable: false,
		}
	}

	if g.MinSimilarity > 0 && similarity(orig, corr) < g.MinSimilarity {
		return &BackendError{
			Code:      ErrCodeValidation,
			Message:   "corrected text diverged too far from input",
			Cause:     ErrOutputRejected,
			Retryable: false,
		}
	}

	return nil
}

// similarity 基于编辑距离的相似度，1 表示完全相同
func similarity(a, b string) float64 {
	dist := fuzzy.LevenshteinDistance(a, b)
	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(dist)/float64(maxLen)
}
