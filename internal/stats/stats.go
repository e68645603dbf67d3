package stats

import (
	"sort"
	"time"
)

// BlockError 单个块的失败记录
type BlockError struct {
	BlockIndex int
	Err        string
}

// FilterStats 单个过滤器的统计
type FilterStats struct {
	Filter   string
	Blocks   int           // 处理的块数
	Changed  int           // 内容发生变化的块数
	Failed   int           // 失败（保留原文）的块数
	Chunks   int           // 送入后端的子块数
	Duration time.Duration // 执行耗时
	Errors   []BlockError  // 失败明细

	start time.Time
}

// NewFilterStats 创建过滤器统计并开始计时
func NewFilterStats(filter string) *FilterStats {
	return &FilterStats{Filter: filter, start: time.Now()}
}

// Finish 记录过滤器执行耗时
func (fs *FilterStats) Finish() {
	fs.Duration = time.Since(fs.start)
}

// RecordError 记录一个块失败
func (fs *FilterStats) RecordError(blockIndex int, err error) {
	fs.Failed++
	fs.Errors = append(fs.Errors, BlockError{BlockIndex: blockIndex, Err: err.Error()})
}

// RunStats 一次流水线运行的统计
type RunStats struct {
	InputPath  string
	OutputPath string
	Format     string
	Blocks     int
	StartTime  time.Time
	EndTime    time.Time
	Filters    []*FilterStats
}

// NewRunStats 创建运行统计
func NewRunStats(inputPath, format string) *RunStats {
	return &RunStats{
		InputPath: inputPath,
		Format:    format,
		StartTime: time.Now(),
	}
}

// Append 追加一个过滤器统计
func (rs *RunStats) Append(fs *FilterStats) {
	rs.Filters = append(rs.Filters, fs)
}

// Finish 记录结束时间
func (rs *RunStats) Finish() {
	rs.EndTime = time.Now()
}

// Duration 运行总耗时
func (rs *RunStats) Duration() time.Duration {
	end := rs.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(rs.StartTime)
}

// TotalChanged 所有过滤器改动的块数之和
func (rs *RunStats) TotalChanged() int {
	n := 0
	for _, fs := range rs.Filters {
		n += fs.Changed
	}
	return n
}

// TotalFailed 所有过滤器失败的块数之和
func (rs *RunStats) TotalFailed() int {
	n := 0
	for _, fs := range rs.Filters {
		n += fs.Failed
	}
	return n
}

// SkippedBlocks 返回所有保留原文的块索引，去重后升序
func (rs *RunStats) SkippedBlocks() []int {
	seen := make(map[int]bool)
	var indexes []int
	for _, fs := range rs.Filters {
		for _, be := range fs.Errors {
			if !seen[be.BlockIndex] {
				seen[be.BlockIndex] = true
				indexes = append(indexes, be.BlockIndex)
			}
		}
	}
	sort.Ints(indexes)
	return indexes
}
