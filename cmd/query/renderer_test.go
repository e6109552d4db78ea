package main

import (
	"bytes"
	"testing"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/querysession"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	got := formatTable([]string{"Hero", "GPM"}, [][]string{{"Anti-Mage", "612.5"}, {"Axe", "480.0"}})

	want := "Hero       GPM\n" +
		"---------  -----\n" +
		"Anti-Mage  612.5\n" +
		"Axe        480.0\n"
	assert.Equal(t, want, got)
}

func TestTerminalRenderer(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	r := newTerminalRenderer(&buf)

	r.Notice(1, querysession.Notice{Kind: querysession.NoticeProcessing, Message: "Processing..."})
	r.Progress(1, querysession.ProgressState{})
	r.Progress(1, querysession.ProgressState{Current: 5, Total: 20, Percentage: 25, Known: true})
	r.Render(1, &entity.Report{Title: "t", Columns: []string{"A"}, Rows: [][]string{{"x"}}})

	assert.Equal(t, "#1 Processing...\n#1 processing...\n#1 5/20 (25%)\n#1 t\nA\n-\nx\n", buf.String())
}
