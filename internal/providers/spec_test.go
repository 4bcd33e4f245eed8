package providers

import (
	"context"
	"strings"
	"testing"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/specmodel"
)

type fakeLookup map[string]specmodel.CommandSpec

func (f fakeLookup) Lookup(command, cwd string) (specmodel.CommandSpec, bool) {
	s, ok := f[command]
	return s, ok
}

func TestSpecProviderSubcommands(t *testing.T) {
	store := fakeLookup{"git": {
		Name: "git",
		Subcommands: []specmodel.SubcommandSpec{
			{Name: "checkout", Aliases: []string{"co"}},
			{Name: "cherry-pick"},
			{Name: "commit"},
		},
	}}
	p := NewSpecProvider(store)
	req := ProviderRequest{Context: compctx.CompletionContext{
		Command:  "git",
		Position: compctx.PositionSubcommand,
		Partial:  "ch",
		Prefix:   "git ",
	}}
	out := p.Suggest(context.Background(), req, 10)
	if len(out) != 2 {
		t.Fatalf("expected checkout+cherry-pick, got %+v", out)
	}
	for _, s := range out {
		if !strings.HasPrefix(s.Text, req.Context.Prefix) {
			t.Fatalf("suggestion %q does not start with prefix %q", s.Text, req.Context.Prefix)
		}
	}
	if out[0].Text != "git checkout" && out[1].Text != "git checkout" {
		t.Fatalf("expected \"git checkout\" among suggestions, got %+v", out)
	}
}

func TestSpecProviderOptionsExcludePresent(t *testing.T) {
	store := fakeLookup{"git": {
		Name: "git",
		Subcommands: []specmodel.SubcommandSpec{
			{Name: "commit", Options: []specmodel.OptionSpec{
				{Short: "-m", Long: "--message", TakesArg: true},
				{Short: "-a", Long: "--all"},
			}},
		},
	}}
	p := NewSpecProvider(store)
	req := ProviderRequest{Context: compctx.CompletionContext{
		Command:        "git",
		SubcommandPath: []string{"commit"},
		Position:       compctx.PositionOptionFlag,
		Partial:        "-",
		PresentOptions: []string{"-m"},
	}}
	out := p.Suggest(context.Background(), req, 10)
	for _, s := range out {
		if s.Text == "-m" {
			t.Fatalf("already-present option -m should be excluded: %+v", out)
		}
	}
}

func TestSpecProviderOptionsAndArgumentsPrependPrefix(t *testing.T) {
	store := fakeLookup{"git": {
		Name: "git",
		Subcommands: []specmodel.SubcommandSpec{
			{Name: "commit", Options: []specmodel.OptionSpec{
				{Short: "-m", Long: "--message", TakesArg: true},
			}},
			{Name: "checkout", Args: []specmodel.ArgSpec{
				{Suggestions: []string{"main", "develop"}},
			}},
		},
	}}
	p := NewSpecProvider(store)

	optReq := ProviderRequest{Context: compctx.CompletionContext{
		Command:        "git",
		SubcommandPath: []string{"commit"},
		Position:       compctx.PositionOptionFlag,
		Partial:        "--m",
		Prefix:         "git commit ",
	}}
	optOut := p.Suggest(context.Background(), optReq, 10)
	if len(optOut) != 1 || optOut[0].Text != "git commit --message" {
		t.Fatalf("expected \"git commit --message\", got %+v", optOut)
	}

	argReq := ProviderRequest{Context: compctx.CompletionContext{
		Command:        "git",
		SubcommandPath: []string{"checkout"},
		Position:       compctx.PositionArgument,
		Partial:        "ma",
		Prefix:         "git checkout ",
	}}
	argOut := p.Suggest(context.Background(), argReq, 10)
	if len(argOut) != 1 || argOut[0].Text != "git checkout main" {
		t.Fatalf("expected \"git checkout main\", got %+v", argOut)
	}
}

func TestSpecProviderUnknownCommandYieldsNothing(t *testing.T) {
	p := NewSpecProvider(fakeLookup{})
	req := ProviderRequest{Context: compctx.CompletionContext{Command: "nope", Position: compctx.PositionSubcommand}}
	if out := p.Suggest(context.Background(), req, 10); len(out) != 0 {
		t.Fatalf("expected no suggestions for unresolved command, got %+v", out)
	}
}
