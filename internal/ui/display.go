// Package ui renders a live view of one synapse-repl session: the
// immediate suggestion line for a request, then a spinner while an
// asynchronous Phase-2 `update` frame may still be in flight, mirroring
// the two-phase response shape of the socket protocol (spec.md §4.11).
package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

const (
	ansiReset   = "\033[0m"
	ansiDim     = "\033[2m"
	ansiCyan    = "\033[36m"
	ansiBlue    = "\033[34m"
	ansiMagenta = "\033[35m"
	ansiGreen   = "\033[32m"
	ansiRed     = "\033[31m"
)

var tagColor = map[string]string{
	"suggestion":      ansiCyan,
	"update":          ansiMagenta,
	"suggestion_list": ansiBlue,
	"complete_result": ansiGreen,
	"error":           ansiRed,
	"pong":            ansiDim,
	"ack":             ansiDim,
}

// boxOpeningTags are the immediate-response tags that may still be followed
// by an asynchronous `update` frame for the same request.
var boxOpeningTags = map[string]bool{
	"suggestion": true,
}

var spinRunes = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Display reads raw TSV response lines from frames and renders them with a
// spinner that bridges the gap between a request's immediate response and
// its possible Phase-2 update.
type Display struct {
	frames <-chan string

	mu      sync.Mutex
	status  string
	inTask  bool
	started time.Time
	spinIdx int
}

// New creates a Display reading from frames.
func New(frames <-chan string) *Display {
	return &Display{frames: frames}
}

// Run prints frames as they arrive and animates the waiting spinner between
// a suggestion's immediate response and its possible Phase-2 update.
func (d *Display) Run(ctx context.Context) {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Print("\r\033[K")
			return

		case line, ok := <-d.frames:
			if !ok {
				return
			}
			if d.inTask {
				fmt.Print("\r\033[K")
				d.endTask()
			}
			tag := firstField(line)
			fmt.Println(renderFrame(line))
			if boxOpeningTags[tag] {
				d.startTask("awaiting phase-2 enrichment...")
			}

		case <-ticker.C:
			d.mu.Lock()
			inTask := d.inTask
			status := d.status
			d.mu.Unlock()
			if !inTask {
				continue
			}
			frame := spinRunes[d.spinIdx%len(spinRunes)]
			d.spinIdx++
			fmt.Printf("\r\033[K%s%s%s %s", ansiDim, string(frame), ansiReset, status)
		}
	}
}

func (d *Display) startTask(status string) {
	d.mu.Lock()
	d.inTask = true
	d.status = status
	d.started = time.Now()
	d.mu.Unlock()
}

func (d *Display) endTask() {
	d.mu.Lock()
	d.inTask = false
	d.mu.Unlock()
}

// renderFrame colors a raw TSV response line by its tag and clips long
// fields so one frame never wraps an 80-column terminal.
func renderFrame(line string) string {
	fields := strings.Split(line, "\t")
	if len(fields) == 0 {
		return line
	}
	tag := fields[0]
	color := tagColor[tag]
	if color == "" {
		color = ansiDim
	}

	rest := fields[1:]
	for i, f := range rest {
		rest[i] = clipCols(f, 60)
	}
	if len(rest) == 0 {
		return fmt.Sprintf("%s[%s]%s", color, tag, ansiReset)
	}
	return fmt.Sprintf("%s[%s]%s %s", color, tag, ansiReset, strings.Join(rest, "  "))
}

func firstField(line string) string {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}

// clipCols truncates s to at most cols visual columns (CJK/full-width runes
// count as 2), appending an ellipsis when trimmed.
func clipCols(s string, cols int) string {
	if runewidth.StringWidth(s) <= cols {
		return s
	}
	return runewidth.Truncate(s, cols, "…")
}
