package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-corrector-agent/internal/stats"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/correction"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// Filter 流水线过滤器，对文档做一次整体变换
//
// Apply 只允许修改块的 Content，块数量和顺序必须保持不变。
type Filter interface {
	Name() string
	Apply(ctx context.Context, doc *document.Document) (*stats.FilterStats, error)
}

// blockFilter 把校正后端包装成逐块应用的过滤器
type blockFilter struct {
	name      string
	corrector *correction.ChunkedCorrector
	logger    *zap.Logger
	sink      Sink
}

// NewBackendFilter 用校正后端构造一个块级过滤器
//
// failFast=false 时子块失败只保留原文并记入统计，运行继续；
// failFast=true 时第一个错误向上传播终止运行。
func NewBackendFilter(backend correction.Backend, guard *correction.OutputGuard, failFast bool, logger *zap.Logger, sink Sink) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &blockFilter{
		name:      backend.Name(),
		corrector: correction.NewChunkedCorrector(backend, guard, failFast, logger),
		logger:    logger,
		sink:      sink,
	}
}

// Name 返回过滤器名称，等于后端名称
func (f *blockFilter) Name() string {
	return f.name
}

// Apply 对文档中每个可校正块应用后端
func (f *blockFilter) Apply(ctx context.Context, doc *document.Document) (*stats.FilterStats, error) {
	fs := stats.NewFilterStats(f.name)
	defer fs.Finish()

	correctable := doc.CorrectableBlocks()
	for done, block := range correctable {
		if err := ctx.Err(); err != nil {
			return fs, err
		}

		fs.Blocks++
		res, err := f.corrector.CorrectBlock(ctx, block.Content)
		if err != nil {
			// failFast=false 时子块错误已在校正器内吸收，
			// 走到这里的要么是取消要么是 failFast 的首错
			fs.RecordError(block.Index, err)
			return fs, err
		}

		fs.Chunks += res.Chunks
		if res.FailedChunks > 0 {
			fs.RecordError(block.Index,
				fmt.Errorf("%d/%d chunks failed, original text kept", res.FailedChunks, res.Chunks))
		}
		if res.Changed {
			block.Content = res.Text
			fs.Changed++
		}

		if f.sink != nil {
			f.sink(Event{
				Kind:       EventBlockCompleted,
				Filter:     f.name,
				BlockIndex: block.Index,
				BlocksDone: done + 1,
				BlockTotal: len(correctable),
			})
		}
	}

	return fs, nil
}
