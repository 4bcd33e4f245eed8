// Package providers implements the suggestion sources that feed the ranker:
// history, filesystem, spec tree, PATH executables, workflow bigrams, and
// LLM-generated argument values. Each provider is a pure function of its
// request plus its own bounded cache.
package providers

import (
	"context"

	"github.com/synapse-sh/synapse/internal/compctx"
)

// Source tags which provider produced a ProviderSuggestion.
type Source string

const (
	SourceHistory    Source = "history"
	SourceSpec       Source = "spec"
	SourceFilesystem Source = "filesystem"
	SourceEnvironment Source = "environment"
	SourceWorkflow   Source = "workflow"
	SourceLLM        Source = "llm"
)

// Kind describes what a suggestion represents, independent of which
// provider produced it.
type Kind string

const (
	KindCommand    Kind = "command"
	KindSubcommand Kind = "subcommand"
	KindOption     Kind = "option"
	KindArgument   Kind = "argument"
	KindFile       Kind = "file"
	KindHistory    Kind = "history"
)

// ProviderSuggestion is one candidate completion before ranking.
type ProviderSuggestion struct {
	Text        string
	Source      Source
	Score       float64
	Description string
	Kind        Kind
}

// ProviderRequest carries everything a provider needs to produce candidates.
// RecentCommands is normalized, most-recent-first.
type ProviderRequest struct {
	Context        compctx.CompletionContext
	Cwd            string
	RecentCommands []string
	LastExitCode   int
	FuzzyEnabled   bool
}

// Provider is implemented by every suggestion source.
type Provider interface {
	// Suggest returns up to max candidates for req. Implementations must
	// never block past their own internal budget and must never return an
	// error — a provider that fails returns an empty slice (spec: provider
	// errors never fail the request).
	Suggest(ctx context.Context, req ProviderRequest, max int) []ProviderSuggestion
}
