package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/aditya-xq/PicToWebP/pkg/convert"
)

var (
	progressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")). // Red
			Bold(true)
)

// Console renders a single updating progress line, the CLI front end of the
// pipeline. Notify is synchronous; terminal writes are fast enough that no
// buffering is needed here.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewConsole creates a console notifier writing to w.
func NewConsole(w io.Writer, colorEnabled bool) *Console {
	return &Console{w: w, color: colorEnabled}
}

// Notify implements Notifier.
func (c *Console) Notify(e convert.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("[%d/%d] converted, saved %s",
		e.Completed+e.Failed, e.Total, humanize.Bytes(uint64(max(e.Stats.BytesSaved(), 0))))
	if e.Failed > 0 {
		suffix := fmt.Sprintf(" (%d failed)", e.Failed)
		if c.color {
			suffix = failureStyle.Render(suffix)
		}
		line += suffix
	}
	if c.color {
		line = progressStyle.Render(line)
	}

	fmt.Fprintf(c.w, "\r%s", line)
	if e.Done() {
		fmt.Fprintln(c.w)
	}
}
