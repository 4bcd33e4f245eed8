package llm

import (
	"context"
	"testing"
	"time"
)

func TestCallLimiterEnforcesMinInterval(t *testing.T) {
	l := newCallLimiter()
	ctx := context.Background()

	if err := l.wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	second := time.Now()
	if err := l.wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(second); elapsed < minCallInterval/2 {
		t.Fatalf("expected the second call to be throttled toward %v, only waited %v", minCallInterval, elapsed)
	}
}

func TestCallLimiterBackoffFailsFast(t *testing.T) {
	l := newCallLimiter()
	l.activateBackoff()

	if err := l.wait(context.Background()); err != ErrBackoffActive {
		t.Fatalf("expected ErrBackoffActive, got %v", err)
	}
}

func TestExtractCommandsStripsMarkup(t *testing.T) {
	response := "```\n1. git status\n2) git diff --staged\n- `git add -A`\n* git commit -m \"wip\"\n```"
	got := ExtractCommands(response)
	want := []string{"git status", "git diff --staged", "git add -A", `git commit -m "wip"`}
	if len(got) != len(want) {
		t.Fatalf("got %d commands, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractCommandsEmptyResponse(t *testing.T) {
	if got := ExtractCommands("```\n\n```"); len(got) != 0 {
		t.Fatalf("expected no commands, got %v", got)
	}
}
