package compsysexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

func gitSpec() specmodel.CommandSpec {
	return specmodel.CommandSpec{
		Name: "git",
		Options: []specmodel.OptionSpec{
			{Short: "-v", Long: "--verbose", Description: "be verbose"},
		},
		Subcommands: []specmodel.SubcommandSpec{
			{
				Name:        "checkout",
				Description: "switch branches",
				Options: []specmodel.OptionSpec{
					{Long: "--track", Description: "set up tracking", TakesArg: true},
				},
				Args: []specmodel.ArgSpec{
					{Name: "branch", Description: "branch name", Generator: &specmodel.GeneratorSpec{Command: "git branch --format='%(refname:short)'"}},
				},
			},
			{Name: "commit", Description: "record changes"},
		},
	}
}

func TestExportIncludesSourceMarkerAndCompdef(t *testing.T) {
	out := Export(gitSpec(), "discovered")
	lines := strings.Split(out, "\n")
	if lines[0] != "# Source: discovered" {
		t.Fatalf("expected source marker first line, got %q", lines[0])
	}
	if !strings.Contains(out, "#compdef git") {
		t.Fatal("expected compdef marker")
	}
}

func TestExportRendersPairedOption(t *testing.T) {
	out := Export(gitSpec(), "discovered")
	if !strings.Contains(out, "'(-v --verbose)'{-v,--verbose}'[be verbose]'") {
		t.Fatalf("expected paired option rendering, got:\n%s", out)
	}
}

func TestExportRendersSubcommandsAndDispatch(t *testing.T) {
	out := Export(gitSpec(), "discovered")
	if !strings.Contains(out, "'checkout:switch branches'") {
		t.Fatal("expected checkout entry in commands array")
	}
	if !strings.Contains(out, "checkout) _git_checkout ;;") {
		t.Fatalf("expected dispatch to subfunction, got:\n%s", out)
	}
	if !strings.Contains(out, "_git_checkout() {") {
		t.Fatal("expected nested subcommand function")
	}
}

func TestExportRendersGeneratorAction(t *testing.T) {
	out := Export(gitSpec(), "discovered")
	if !strings.Contains(out, `compadd -a vals`) {
		t.Fatalf("expected generator compadd block, got:\n%s", out)
	}
}

func TestEscapeSingleQuotedHandlesBracketsAndQuotes(t *testing.T) {
	got := escapeSingleQuoted(`it's a [test]`)
	want := `it'\''s a \[test\]`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEscapeDoubleQuotedHandlesSpecialChars(t *testing.T) {
	got := escapeDoubleQuoted(`a "b" $c ` + "`d`" + `\e`)
	if !strings.Contains(got, `\"b\"`) || !strings.Contains(got, `\$c`) || !strings.Contains(got, "\\`d\\`") {
		t.Fatalf("got %q", got)
	}
}

func TestWriteFileAndRemoveStale(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(dir, gitSpec(), "discovered"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(dir, "_git")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected exported file to exist: %v", err)
	}

	if err := RemoveStale(dir, "discovered", map[string]bool{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected stale file to be removed")
	}
}

func TestRemoveStaleKeepsHandWrittenFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "_custom")
	if err := os.WriteFile(path, []byte("#compdef custom\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	if err := RemoveStale(dir, "discovered", map[string]bool{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("expected hand-written file without source marker to survive")
	}
}
