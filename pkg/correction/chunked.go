package correction

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ChunkedCorrector 把超窗文本块分块送入后端并重组
//
// 每个子块独立校正，原顺序拼接还原为一个块。子块失败时按策略
// 跳过（保留原文）或让整个块失败，由运行的 fail_fast 决定。
type ChunkedCorrector struct {
	backend  Backend
	chunker  *Chunker
	guard    *OutputGuard
	logger   *zap.Logger
	failFast bool
}

// BlockResult 单个块的校正结果
type BlockResult struct {
	Text         string
	Changed      bool
	Chunks       int
	FailedChunks int
	Latency      time.Duration
}

// NewChunkedCorrector 创建分块校正器
//
// 分块预算取后端上下文窗口的四分之三，剩余额度留给提示词和生成。
func NewChunkedCorrector(backend Backend, guard *OutputGuard, failFast bool, logger *zap.Logger) *ChunkedCorrector {
	if logger == nil {
		logger = zap.NewNop()
	}
	budget := backend.ContextWindow() * 3 / 4
	return &ChunkedCorrector{
		backend:  backend,
		chunker:  NewChunker(budget),
		guard:    guard,
		logger:   logger,
		failFast: failFast,
	}
}

// CorrectBlock 校正一个文本块
//
// 取消只在子块边界生效，不会打断正在进行的后端调用。
func (cc *ChunkedCorrector) CorrectBlock(ctx context.Context, text string) (*BlockResult, error) {
	chunks := cc.chunker.Split(text)
	if len(chunks) == 0 {
		return &BlockResult{Text: text}, nil
	}

	result := &BlockResult{Chunks: len(chunks)}
	texts := make([]string, len(chunks))

	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// 单个词就超出预算时无法在词边界内切分，不送后端
		var res *Result
		var err error
		if EstimateTokens(ch.Text) > cc.chunker.MaxTokens() {
			err = ErrChunkTooLarge
		} else {
			res, err = cc.backend.Correct(ctx, ch.Text)
		}
		if err == nil && cc.guard != nil {
			if gerr := cc.guard.Validate(ch.Text, res.Text); gerr != nil {
				err = gerr
			}
		}

		if err != nil {
			if cc.failFast {
				return nil, err
			}
			cc.logger.Warn("chunk correction failed, keeping original text",
				zap.String("backend", cc.backend.Name()),
				zap.Int("chunk", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			texts[i] = ch.Text
			result.FailedChunks++
			continue
		}

		texts[i] = res.Text
		result.Latency += res.Latency
	}

	result.Text = Join(chunks, texts)
	result.Changed = result.Text != text
	return result, nil
}

// Backend 返回底层后端
func (cc *ChunkedCorrector) Backend() Backend {
	return cc.backend
}
