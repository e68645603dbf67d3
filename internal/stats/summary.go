package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderSummary 把运行统计渲染为汇总表
func RenderSummary(w io.Writer, rs *RunStats) {
	title := color.New(color.FgCyan, color.Bold)
	_, _ = title.Fprintln(w, "Correction Summary")
	_, _ = title.Fprintln(w, strings.Repeat("=", 50))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Filter", "Blocks", "Changed", "Failed", "Duration"})
	for _, fs := range rs.Filters {
		t.AppendRow(table.Row{
			fs.Filter,
			fs.Blocks,
			fs.Changed,
			fs.Failed,
			fs.Duration.Round(time.Millisecond).String(),
		})
	}
	t.AppendFooter(table.Row{
		"total",
		rs.Blocks,
		rs.TotalChanged(),
		rs.TotalFailed(),
		rs.Duration().Round(time.Millisecond).String(),
	})
	t.Render()

	if skipped := rs.SkippedBlocks(); len(skipped) > 0 {
		warn := color.New(color.FgYellow)
		_, _ = warn.Fprintf(w, "blocks kept unmodified after failures: %v\n", skipped)
	}

	if rs.OutputPath != "" {
		ok := color.New(color.FgGreen)
		_, _ = ok.Fprintf(w, "output written to: %s\n", rs.OutputPath)
	}
	fmt.Fprintln(w)
}
