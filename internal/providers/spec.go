package providers

import (
	"context"
	"sort"
	"strings"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/specmodel"
)

// SpecProvider tree-walks the active command's resolved spec to produce
// subcommand, option, and positional suggestions (spec.md §4.5.3).
type SpecProvider struct {
	store compctx.SpecLookup
}

func NewSpecProvider(store compctx.SpecLookup) *SpecProvider {
	return &SpecProvider{store: store}
}

// Suggest implements Provider.
func (p *SpecProvider) Suggest(_ context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	ctx := req.Context
	if ctx.Command == "" {
		return nil
	}
	root, ok := p.store.Lookup(ctx.Command, req.Cwd)
	if !ok {
		return nil
	}

	subs, options, args := resolveNode(root, ctx.SubcommandPath)

	var out []ProviderSuggestion
	switch ctx.Position {
	case compctx.PositionSubcommand:
		out = subcommandSuggestions(subs, ctx.Partial, ctx.Prefix)
	case compctx.PositionOptionFlag:
		out = optionSuggestions(options, ctx.Partial, ctx.PresentOptions, ctx.Prefix)
	case compctx.PositionArgument, compctx.PositionOptionValue:
		out = argumentSuggestions(args, ctx)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// resolveNode walks root's subcommand tree along path, returning the
// subcommands/options/args visible at that node. An unresolvable path
// (stale spec, renamed subcommand) falls back to the root node.
func resolveNode(root specmodel.CommandSpec, path []string) ([]specmodel.SubcommandSpec, []specmodel.OptionSpec, []specmodel.ArgSpec) {
	subs, options, args := root.Subcommands, root.Options, root.Args
	for _, name := range path {
		found := false
		for _, s := range subs {
			if s.Name == name {
				subs, options, args = s.Subcommands, s.Options, s.Args
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return subs, options, args
}

func subcommandSuggestions(subs []specmodel.SubcommandSpec, partial, prefix string) []ProviderSuggestion {
	var out []ProviderSuggestion
	for _, s := range subs {
		if strings.HasPrefix(s.Name, partial) {
			out = append(out, ProviderSuggestion{
				Text:        prefix + s.Name,
				Source:      SourceSpec,
				Score:       0.7 + 0.3*specificity(partial, s.Name),
				Description: s.Description,
				Kind:        KindSubcommand,
			})
		}
		for _, a := range s.Aliases {
			if strings.HasPrefix(a, partial) {
				out = append(out, ProviderSuggestion{
					Text:        prefix + a,
					Source:      SourceSpec,
					Score:       0.65 + 0.3*specificity(partial, a),
					Description: s.Description,
					Kind:        KindSubcommand,
				})
			}
		}
	}
	return out
}

func optionSuggestions(options []specmodel.OptionSpec, partial string, present []string, prefix string) []ProviderSuggestion {
	alreadySet := make(map[string]bool, len(present))
	for _, p := range present {
		alreadySet[p] = true
	}

	var out []ProviderSuggestion
	for _, o := range options {
		if alreadySet[o.Long] || alreadySet[o.Short] {
			continue
		}
		if o.Long != "" && strings.HasPrefix(o.Long, partial) {
			out = append(out, ProviderSuggestion{
				Text: prefix + o.Long, Source: SourceSpec, Score: 0.5 + 0.3*specificity(partial, o.Long),
				Description: o.Description, Kind: KindOption,
			})
		}
		if o.Short != "" && strings.HasPrefix(o.Short, partial) {
			out = append(out, ProviderSuggestion{
				Text: prefix + o.Short, Source: SourceSpec, Score: 0.55,
				Description: o.Description, Kind: KindOption,
			})
		}
	}
	return out
}

// argumentSuggestions produces positional candidates from the argument's
// static suggestions list only. It does not run generators, and the suggest
// path adds no generator output elsewhere; generator values reach a client
// only through a run_generator request.
func argumentSuggestions(args []specmodel.ArgSpec, ctx compctx.CompletionContext) []ProviderSuggestion {
	idx := ctx.ArgIndex
	if ctx.Position == compctx.PositionOptionValue {
		idx = 0
	}
	if len(args) == 0 {
		return nil
	}
	arg := args[len(args)-1]
	if idx < len(args) {
		arg = args[idx]
	} else if !arg.Variadic {
		return nil
	}

	var out []ProviderSuggestion
	for _, s := range arg.Suggestions {
		if strings.HasPrefix(s, ctx.Partial) {
			out = append(out, ProviderSuggestion{
				Text: ctx.Prefix + s, Source: SourceSpec, Score: 0.5 + 0.3*specificity(ctx.Partial, s),
				Description: arg.Description, Kind: KindArgument,
			})
		}
	}
	return out
}

// specificity is a small bonus in [0, 1) rewarding a longer partial match
// relative to the candidate length, so "checko" ranks ahead of "ch" among
// otherwise-equal candidates.
func specificity(partial, candidate string) float64 {
	if len(candidate) == 0 {
		return 0
	}
	return float64(len(partial)) / float64(len(candidate)+1)
}
