package cli

import (
	"github.com/pterm/pterm"

	"github.com/nerdneilsfield/go-corrector-agent/internal/pipeline"
)

// progressRenderer 把流水线事件渲染成 pterm 进度条
//
// 事件在流水线 goroutine 里同步送达，这里只做轻量的进度条更新。
type progressRenderer struct {
	bar *pterm.ProgressbarPrinter
}

func newProgressRenderer() *progressRenderer {
	return &progressRenderer{}
}

// Sink 返回可挂到流水线上的事件接收器
func (pr *progressRenderer) Sink() pipeline.Sink {
	return func(ev pipeline.Event) {
		switch ev.Kind {
		case pipeline.EventBlockCompleted:
			if ev.BlocksDone == 1 {
				pr.stop()
				bar, err := pterm.DefaultProgressbar.
					WithTotal(ev.BlockTotal).
					WithTitle(ev.Filter).
					Start()
				if err == nil {
					pr.bar = bar
				}
			}
			if pr.bar != nil {
				pr.bar.Increment()
			}

		case pipeline.EventFilterCompleted, pipeline.EventRunCompleted:
			pr.stop()
		}
	}
}

func (pr *progressRenderer) stop() {
	if pr.bar != nil {
		_, _ = pr.bar.Stop()
		pr.bar = nil
	}
}
