package pipeline

// EventKind 进度事件类型
type EventKind string

const (
	// EventBlockCompleted 一个文本块处理完成
	EventBlockCompleted EventKind = "block_completed"
	// EventFilterCompleted 一个过滤器处理完成
	EventFilterCompleted EventKind = "filter_completed"
	// EventRunCompleted 整个运行结束（成功或失败）
	EventRunCompleted EventKind = "run_completed"
)

// Event 同步进度事件，在块/过滤器边界发出
//
// 回调在流水线自己的 goroutine 里同步执行，耗时操作请自行异步化。
type Event struct {
	Kind       EventKind
	Filter     string
	BlockIndex int
	BlocksDone int
	BlockTotal int
	Status     Status
}

// Sink 进度事件接收器，nil 表示不关心进度
type Sink func(Event)

func (r *Run) emit(ev Event) {
	if r.sink != nil {
		r.sink(ev)
	}
}
