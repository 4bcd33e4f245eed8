package ui

import (
	"strings"
	"testing"
)

func TestRenderFrameColorsByTag(t *testing.T) {
	got := renderFrame("suggestion\tgit checkout\tspec\t\tcommand")
	if !strings.Contains(got, ansiCyan) {
		t.Errorf("expected suggestion frame colored cyan, got %q", got)
	}
	if !strings.Contains(got, "git checkout") {
		t.Errorf("expected suggestion text present, got %q", got)
	}
}

func TestRenderFrameUpdateUsesMagenta(t *testing.T) {
	got := renderFrame("update\tmain\tllm\t\tcommand")
	if !strings.Contains(got, ansiMagenta) {
		t.Errorf("expected update frame colored magenta, got %q", got)
	}
}

func TestRenderFrameErrorUsesRed(t *testing.T) {
	got := renderFrame("error\tsomething went wrong")
	if !strings.Contains(got, ansiRed) {
		t.Errorf("expected error frame colored red, got %q", got)
	}
}

func TestRenderFrameUnknownTagFallsBackToDim(t *testing.T) {
	got := renderFrame("mystery\tfoo")
	if !strings.Contains(got, ansiDim) {
		t.Errorf("expected unknown tag to fall back to dim, got %q", got)
	}
}

func TestRenderFrameWithNoFieldsShowsBareTag(t *testing.T) {
	got := renderFrame("pong")
	if !strings.Contains(got, "[pong]") {
		t.Errorf("expected bare tag rendering, got %q", got)
	}
}

func TestFirstFieldExtractsTag(t *testing.T) {
	if got := firstField("suggestion\tfoo\tbar"); got != "suggestion" {
		t.Errorf("got %q, want suggestion", got)
	}
	if got := firstField("pong"); got != "pong" {
		t.Errorf("got %q, want pong", got)
	}
}

func TestClipColsUnchangedWhenWithinLimit(t *testing.T) {
	s := "hello"
	if got := clipCols(s, 10); got != s {
		t.Errorf("clipCols(%q, 10) = %q, want unchanged", s, got)
	}
}

func TestClipColsTruncatesAtRuneBoundaryForCJK(t *testing.T) {
	s := "重新执行命令文件描述符流程" // well over 8 visual columns
	got := clipCols(s, 8)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("clipCols CJK: expected trailing …, got %q", got)
	}
}

func TestClipColsAppendsEllipsisOnlyWhenTrimmed(t *testing.T) {
	short := "ok"
	if got := clipCols(short, 10); strings.Contains(got, "…") {
		t.Errorf("clipCols: unexpected … in unchanged result %q", got)
	}
	long := strings.Repeat("a", 80)
	if got := clipCols(long, 10); !strings.HasSuffix(got, "…") {
		t.Errorf("clipCols: expected … suffix for truncated result, got %q", got)
	}
}

func TestBoxOpeningTagsOnlyCoversSuggestion(t *testing.T) {
	if !boxOpeningTags["suggestion"] {
		t.Error("expected suggestion to open a waiting box for its possible Phase-2 update")
	}
	if boxOpeningTags["suggestion_list"] || boxOpeningTags["complete_result"] {
		t.Error("list/complete responses have no Phase-2 follow-up and should not open a box")
	}
}
