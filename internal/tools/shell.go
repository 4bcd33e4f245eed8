package tools

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

const defaultShellTimeout = 30 * time.Second

// RunShell executes cmd in a bash shell with a default 30s timeout.
// Returns stdout, stderr, and any execution error.
func RunShell(ctx context.Context, cmd string) (stdout, stderr string, err error) {
	return RunShellIn(ctx, "", cmd, defaultShellTimeout)
}

// RunShellIn executes cmd in a bash shell with cwd set to dir (empty means
// inherit) and timeout bounding total execution time. Used by generator
// execution and command discovery, where the caller already knows the
// deadline it wants (spec.md §4.3's min(generator timeout, global ceiling)).
func RunShellIn(ctx context.Context, dir, cmd string, timeout time.Duration) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, "bash", "-c", cmd)
	c.Dir = dir

	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf

	err = c.Run()
	return outBuf.String(), errBuf.String(), err
}
