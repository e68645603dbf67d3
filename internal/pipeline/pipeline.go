package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-corrector-agent/internal/stats"
	"github.com/nerdneilsfield/go-corrector-agent/pkg/document"
)

// Status 运行状态
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// ErrAlreadyExecuted 一个 Run 只允许执行一次
var ErrAlreadyExecuted = errors.New("pipeline run already executed")

// Run 一次文档校正运行
//
// 独占持有解析出的文档，渲染后即丢弃，不得跨运行复用。
// 取消是协作式的，只在过滤器和块/子块边界检查。
type Run struct {
	adapter  document.Adapter
	filters  []Filter
	failFast bool
	logger   *zap.Logger
	sink     Sink

	status Status
	stats  *stats.RunStats
}

// NewRun 创建流水线运行
func NewRun(adapter document.Adapter, filters []Filter, failFast bool, logger *zap.Logger, sink Sink) *Run {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Run{
		adapter:  adapter,
		filters:  filters,
		failFast: failFast,
		logger:   logger,
		sink:     sink,
		status:   StatusInitialized,
	}
}

// Status 返回当前运行状态
func (r *Run) Status() Status {
	return r.status
}

// Stats 返回运行统计，Execute 之前为 nil
func (r *Run) Stats() *stats.RunStats {
	return r.stats
}

// Execute 执行完整的校正流程：解析 → 过滤器链 → 渲染
//
// failFast=true 时首个错误终止运行且不产出输出文件；
// failFast=false 时过滤器级错误回滚该过滤器的全部改动并继续，
// 输出文件总会产出。结构性错误无论策略如何都是致命的。
func (r *Run) Execute(ctx context.Context, inputPath string) (*stats.RunStats, error) {
	if r.status != StatusInitialized {
		return r.stats, ErrAlreadyExecuted
	}
	r.status = StatusRunning

	rs := stats.NewRunStats(inputPath, string(r.adapter.Format()))
	r.stats = rs

	doc, err := r.adapter.Parse(ctx, inputPath)
	if err != nil {
		return rs, r.fail(rs, fmt.Errorf("parse failed: %w", err))
	}
	rs.Blocks = doc.BlockCount()

	r.logger.Info("document parsed",
		zap.String("path", inputPath),
		zap.String("format", string(r.adapter.Format())),
		zap.Int("blocks", doc.BlockCount()),
		zap.Int("correctable", len(doc.CorrectableBlocks())))

	for _, filter := range r.filters {
		if err := ctx.Err(); err != nil {
			return rs, r.fail(rs, err)
		}

		snapshot := doc.Snapshot()
		fs, err := filter.Apply(ctx, doc)
		if fs != nil {
			rs.Append(fs)
		}

		if err != nil {
			if isCancellation(err) || document.IsFatal(err) || r.failFast {
				return rs, r.fail(rs, fmt.Errorf("filter %s: %w", filter.Name(), err))
			}
			// 非致命错误：回滚该过滤器的改动，继续后续过滤器
			r.logger.Warn("filter failed, restoring pre-filter content",
				zap.String("filter", filter.Name()),
				zap.Error(err))
			doc.Restore(snapshot)
			continue
		}

		// 每个过滤器之后都校验块数量不变式
		if err := doc.CheckStructure(); err != nil {
			return rs, r.fail(rs, fmt.Errorf("filter %s: %w", filter.Name(), err))
		}

		r.emit(Event{Kind: EventFilterCompleted, Filter: filter.Name()})
		r.logger.Info("filter completed",
			zap.String("filter", filter.Name()),
			zap.Int("changed", fs.Changed),
			zap.Int("failed", fs.Failed),
			zap.Duration("duration", fs.Duration))
	}

	outPath, err := r.adapter.Render(ctx, doc)
	if err != nil {
		return rs, r.fail(rs, fmt.Errorf("render failed: %w", err))
	}

	rs.OutputPath = outPath
	rs.Finish()
	r.status = StatusCompleted
	r.emit(Event{Kind: EventRunCompleted, Status: StatusCompleted})

	r.logger.Info("run completed",
		zap.String("output", outPath),
		zap.Int("changed", rs.TotalChanged()),
		zap.Int("failed", rs.TotalFailed()),
		zap.Duration("duration", rs.Duration()))

	return rs, nil
}

// fail 终结运行，区分取消和失败
func (r *Run) fail(rs *stats.RunStats, err error) error {
	rs.Finish()
	if isCancellation(err) {
		r.status = StatusCancelled
	} else {
		r.status = StatusFailed
	}
	r.emit(Event{Kind: EventRunCompleted, Status: r.status})
	r.logger.Error("run aborted", zap.String("status", string(r.status)), zap.Error(err))
	return err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
