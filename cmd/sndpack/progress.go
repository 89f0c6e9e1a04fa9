package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	todoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3F3F46"))
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A1A1AA"))
)

// packProgress redraws one status line per added entry.
type packProgress struct {
	out   io.Writer
	total int
	width int
}

func newPackProgress(out io.Writer, total int) *packProgress {
	return &packProgress{out: out, total: total, width: 24}
}

func (p *packProgress) entry(done int, name string) {
	if p.total == 0 {
		return
	}
	filled := p.width * done / p.total
	bar := doneStyle.Render(strings.Repeat("=", filled)) + todoStyle.Render(strings.Repeat("-", p.width-filled))
	fmt.Fprintf(p.out, "\r\x1b[K [%s] %d/%d %s", bar, done, p.total, nameStyle.Render(name))
	if done == p.total {
		fmt.Fprintln(p.out)
	}
}
