package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/querysession"

	"github.com/fatih/color"
	"github.com/rivo/uniseg"
)

// terminalRenderer prints session output. Calls arrive from the session loop
// and from the command loop, so writes are serialized.
type terminalRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalRenderer(out io.Writer) *terminalRenderer {
	return &terminalRenderer{out: out}
}

func (r *terminalRenderer) println(c *color.Color, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := fmt.Sprintf(format, args...)
	if c != nil {
		line = c.Sprint(line)
	}
	fmt.Fprintln(r.out, line)
}

func (r *terminalRenderer) Render(generation uint64, report *entity.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, color.New(color.Bold).Sprintf("#%d %s", generation, report.Title))
	fmt.Fprint(r.out, formatTable(report.Columns, report.Rows))
}

func (r *terminalRenderer) Notice(generation uint64, notice querysession.Notice) {
	c := color.New(color.FgCyan)
	switch notice.Kind {
	case querysession.NoticeCancelled, querysession.NoticeNoData:
		c = color.New(color.FgYellow)
	case querysession.NoticeFailed:
		c = color.New(color.FgRed)
	}
	r.println(c, "#%d %s", generation, notice.Message)
}

func (r *terminalRenderer) Progress(generation uint64, state querysession.ProgressState) {
	if !state.Known {
		r.println(color.New(color.Faint), "#%d processing...", generation)
		return
	}
	r.println(color.New(color.Faint), "#%d %d/%d (%d%%)", generation, state.Current, state.Total, state.Percentage)
}

// formatTable left-aligns every column to its widest cell, measured in
// terminal cells so localized hero names line up.
func formatTable(columns []string, rows [][]string) string {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = uniseg.StringWidth(col)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := uniseg.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-uniseg.StringWidth(cell)+2))
			}
		}
		b.WriteString("\n")
	}

	writeRow(columns)
	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
