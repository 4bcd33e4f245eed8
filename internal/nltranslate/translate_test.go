package nltranslate

import (
	"context"
	"strings"
	"testing"
)

func TestTranslateFiltersBlocklistAndFlagsDestructive(t *testing.T) {
	chat := func(ctx context.Context, system, user string) (string, error) {
		return "1. rm -rf /tmp/build\n2. `git status`\n3. npm install", nil
	}
	tr := New(chat, []string{"npm *"})

	cands, err := tr.Translate(context.Background(), "clean up", EnvInfo{Shell: "zsh", OS: "linux"}, nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected npm install filtered out, got %+v", cands)
	}
	if cands[0].Command != "rm -rf /tmp/build" || !cands[0].Destructive {
		t.Fatalf("expected first candidate destructive rm, got %+v", cands[0])
	}
	if cands[1].Command != "git status" || cands[1].Destructive {
		t.Fatalf("expected second candidate non-destructive git status, got %+v", cands[1])
	}
}

func TestTranslateTruncatesToMaxSuggestions(t *testing.T) {
	chat := func(ctx context.Context, system, user string) (string, error) {
		return "ls -la\npwd\nwhoami\necho hi", nil
	}
	tr := New(chat, nil)
	cands, err := tr.Translate(context.Background(), "look around", EnvInfo{}, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected truncation to 2, got %+v", cands)
	}
}

func TestBuildPromptIncludesCappedContext(t *testing.T) {
	entries := make([]string, 0, maxCwdEntries+10)
	for i := 0; i < maxCwdEntries+10; i++ {
		entries = append(entries, "file")
	}
	env := EnvInfo{Shell: "zsh", OS: "darwin", Cwd: "/work", ProjectType: "go", GitBranch: "main", CwdEntries: entries}
	prompt := buildPrompt("deploy", env, RecognizedFlags{"git": {"status", "commit"}}, 3)

	if !strings.Contains(prompt, "request: deploy") {
		t.Fatalf("expected request line in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "git branch: main") {
		t.Fatalf("expected git branch line, got %q", prompt)
	}
	if strings.Count(prompt, "file") != maxCwdEntries {
		t.Fatalf("expected cwd entries capped at %d, got %d", maxCwdEntries, strings.Count(prompt, "file"))
	}
}

func TestWildcardBlocklistMatchesGlobPattern(t *testing.T) {
	re := compileBlocklist([]string{"docker rm *"})
	if !re.MatchString("docker rm -f container1") {
		t.Fatalf("expected wildcard pattern to match")
	}
	if re.MatchString("docker ps") {
		t.Fatalf("expected unrelated command not to match")
	}
}
