// Package ranker composes provider output into ranked suggestions using
// position-conditioned weights (spec.md §4.6).
package ranker

import (
	"math"
	"sort"
	"strings"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/providers"
)

// RankedSuggestion is a ProviderSuggestion after weight fusion and
// recency-bonus composition.
type RankedSuggestion struct {
	providers.ProviderSuggestion
	FinalScore float64
}

// weights holds the per-source contribution plus the recency bonus weight,
// always summing to 1 across its seven fields.
type weights struct {
	spec, fs, hist, env, flow, llm, recency float64
}

// weightTable is the position/expected-type-conditioned table from
// spec.md §4.6, declared as a package-level literal of tuned constants in
// the same style as a lookup table of fixed coefficients.
var weightTable = map[string]weights{
	"CommandName":               {spec: .25, fs: 0, hist: .20, env: .05, flow: .30, llm: 0, recency: .20},
	"Subcommand":                {spec: .55, fs: 0, hist: .20, env: 0, flow: 0, llm: 0, recency: .25},
	"OptionFlag":                {spec: .60, fs: 0, hist: .10, env: 0, flow: 0, llm: 0, recency: .30},
	"OptionValue/Generator":     {spec: .36, fs: .18, hist: .18, env: 0, flow: 0, llm: .09, recency: .18},
	"OptionValue/Any":           {spec: .26, fs: .13, hist: .13, env: 0, flow: 0, llm: .35, recency: .13},
	"OptionValue/other":         {spec: .40, fs: .20, hist: .20, env: 0, flow: 0, llm: 0, recency: .20},
	"Argument/FilePath":         {spec: .10, fs: .50, hist: .15, env: 0, flow: 0, llm: 0, recency: .25},
	"Argument/Directory":        {spec: .10, fs: .50, hist: .15, env: 0, flow: 0, llm: 0, recency: .25},
	"Argument/Generator":        {spec: .39, fs: 0, hist: .22, env: 0, flow: 0, llm: .13, recency: .26},
	"Argument/Any":              {spec: .21, fs: .07, hist: .18, env: 0, flow: 0, llm: .36, recency: .18},
	"Argument/other":            {spec: .35, fs: 0, hist: .30, env: 0, flow: 0, llm: 0, recency: .35},
	"PipeTarget":                {spec: 0, fs: 0, hist: .40, env: .25, flow: 0, llm: 0, recency: .35},
	"Redirect":                  {spec: 0, fs: .60, hist: .10, env: 0, flow: 0, llm: 0, recency: .30},
	"Unknown":                   {spec: .25, fs: 0, hist: .35, env: 0, flow: 0, llm: 0, recency: .40},
}

// weightKeyFor maps a CompletionContext's position/expected-type pair to
// the weightTable key, per the table in spec.md §4.6.
func weightKeyFor(ctx compctx.CompletionContext) string {
	switch ctx.Position {
	case compctx.PositionCommandName:
		return "CommandName"
	case compctx.PositionSubcommand:
		return "Subcommand"
	case compctx.PositionOptionFlag:
		return "OptionFlag"
	case compctx.PositionOptionValue:
		switch ctx.ExpectedType.Kind {
		case compctx.ExpectGenerator:
			return "OptionValue/Generator"
		case compctx.ExpectAny:
			return "OptionValue/Any"
		default:
			return "OptionValue/other"
		}
	case compctx.PositionArgument:
		switch ctx.ExpectedType.Kind {
		case compctx.ExpectFilePath:
			return "Argument/FilePath"
		case compctx.ExpectDirectory:
			return "Argument/Directory"
		case compctx.ExpectGenerator:
			return "Argument/Generator"
		case compctx.ExpectAny:
			return "Argument/Any"
		default:
			return "Argument/other"
		}
	case compctx.PositionPipeTarget:
		return "PipeTarget"
	case compctx.PositionRedirect:
		return "Redirect"
	default:
		return "Unknown"
	}
}

func (w weights) forSource(s providers.Source) float64 {
	switch s {
	case providers.SourceSpec:
		return w.spec
	case providers.SourceFilesystem:
		return w.fs
	case providers.SourceHistory:
		return w.hist
	case providers.SourceEnvironment:
		return w.env
	case providers.SourceWorkflow:
		return w.flow
	case providers.SourceLLM:
		return w.llm
	default:
		return 0
	}
}

// recencyBonus rewards a candidate whose text continues a recently-run
// command (spec.md §4.6).
func recencyBonus(text string, recents []string) float64 {
	for i, r := range recents {
		if r == "" {
			continue
		}
		if strings.HasPrefix(text, r) {
			return math.Exp(-0.3 * float64(i))
		}
	}
	firstToken := func(s string) string {
		if idx := strings.IndexByte(s, ' '); idx >= 0 {
			return s[:idx]
		}
		return s
	}
	textHead := firstToken(text)
	for i, r := range recents {
		if r == "" {
			continue
		}
		if firstToken(r) == textHead {
			return 0.5 * math.Exp(-0.3*float64(i))
		}
	}
	return 0
}

func finalScore(s providers.ProviderSuggestion, w weights, recents []string) float64 {
	return w.forSource(s.Source)*s.Score + w.recency*recencyBonus(s.Text, recents)
}

// Rank scores every suggestion and returns a stable-sorted, deduplicated
// (max score per text), length-truncated list.
func Rank(ctx compctx.CompletionContext, suggestions []providers.ProviderSuggestion, recents []string, max int) []RankedSuggestion {
	w := weightTable[weightKeyFor(ctx)]

	best := make(map[string]RankedSuggestion)
	order := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		score := finalScore(s, w, recents)
		if existing, ok := best[s.Text]; !ok {
			best[s.Text] = RankedSuggestion{ProviderSuggestion: s, FinalScore: score}
			order = append(order, s.Text)
		} else if score > existing.FinalScore {
			best[s.Text] = RankedSuggestion{ProviderSuggestion: s, FinalScore: score}
		}
	}

	out := make([]RankedSuggestion, 0, len(order))
	for _, text := range order {
		out = append(out, best[text])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Best returns the single highest-scoring suggestion, or false if
// suggestions is empty.
func Best(ctx compctx.CompletionContext, suggestions []providers.ProviderSuggestion, recents []string) (RankedSuggestion, bool) {
	ranked := Rank(ctx, suggestions, recents, 1)
	if len(ranked) == 0 {
		return RankedSuggestion{}, false
	}
	return ranked[0], true
}
