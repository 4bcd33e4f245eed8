// Package compctx builds a CompletionContext from a raw edit buffer by
// walking the resolved command spec tree (spec.md §4.2).
package compctx

import (
	"strings"

	"github.com/synapse-sh/synapse/internal/specmodel"
	"github.com/synapse-sh/synapse/internal/tokenizer"
)

// SpecLookup is the narrow slice of specstore.Store the builder needs. Kept
// as a small interface here (rather than importing specstore directly) so
// compctx has no dependency on caching/generator-execution concerns.
type SpecLookup interface {
	Lookup(command, cwd string) (specmodel.CommandSpec, bool)
}

// Build parses buffer (already truncated to the cursor position by the
// caller) into a CompletionContext.
func Build(buffer, cwd string, store SpecLookup) CompletionContext {
	if buffer == "" {
		return Empty()
	}

	prefix, segment := tokenizer.SplitAtLastOperator(buffer)
	op, hasOp := tokenizer.LastOperatorBefore(buffer)

	if hasOp {
		switch op.Kind {
		case tokenizer.Pipe:
			return buildOperatorTarget(buffer, prefix, segment, PositionPipeTarget, ExpectedType{Kind: ExpectCommand})
		case tokenizer.Redirect:
			return buildOperatorTarget(buffer, prefix, segment, PositionRedirect, ExpectedType{Kind: ExpectFilePath})
		case tokenizer.And, tokenizer.Or, tokenizer.Semicolon:
			// Recurse on the segment as a fresh command; splice the
			// outer prefix back in so prefix ++ partial still equals a
			// prefix of the full buffer.
			inner := Build(segment, cwd, store)
			inner.Buffer = buffer
			inner.Prefix = prefix + inner.Prefix
			return inner
		}
	}

	return buildCommand(buffer, segment, cwd, store)
}

func buildOperatorTarget(buffer, prefix, segment string, pos Position, expected ExpectedType) CompletionContext {
	trailing := strings.HasSuffix(segment, " ") || strings.HasSuffix(segment, "\t")
	words := tokenizer.Tokenize(segment)
	partial := ""
	if !trailing && len(words) > 0 {
		partial = words[len(words)-1]
	}
	return CompletionContext{
		Buffer:        buffer,
		Position:      pos,
		ExpectedType:  expected,
		Partial:       partial,
		Prefix:        prefix + strings.TrimSuffix(segment, partial),
		TrailingSpace: trailing,
	}
}

// buildCommand handles a non-operator segment: the active command and
// everything after it.
func buildCommand(buffer, segment, cwd string, store SpecLookup) CompletionContext {
	trailing := strings.HasSuffix(segment, " ") || strings.HasSuffix(segment, "\t")
	words := tokenizer.Tokenize(segment)

	outerPrefix, _ := tokenizer.SplitAtLastOperator(buffer)

	if len(words) == 0 {
		return CompletionContext{
			Buffer: buffer, Position: PositionCommandName,
			ExpectedType: ExpectedType{Kind: ExpectCommand}, Prefix: outerPrefix, TrailingSpace: trailing,
		}
	}

	if len(words) == 1 && !trailing {
		return CompletionContext{
			Buffer: buffer, Position: PositionCommandName,
			ExpectedType: ExpectedType{Kind: ExpectCommand}, Partial: words[0], Prefix: outerPrefix,
		}
	}

	commandName := words[0]
	spec, found := store.Lookup(commandName, cwd)

	if found && spec.Recursive {
		// Skip leading flag-like tokens, recurse on the remainder with
		// the recursive prefix spliced onto Prefix.
		rest := segment
		// Find the byte offset right after the command word (and any
		// immediately following flags) to slice the remainder buffer.
		idx := indexAfterRecursivePrefix(segment, words)
		if idx >= 0 {
			rest = segment[idx:]
		}
		inner := buildCommand(rest, rest, cwd, store)
		inner.Buffer = buffer
		inner.Prefix = outerPrefix + segment[:len(segment)-len(rest)] + inner.Prefix
		return inner
	}

	ctx := CompletionContext{
		Buffer: buffer, Command: commandName, Prefix: outerPrefix, TrailingSpace: trailing,
	}

	if !found {
		ctx.Position, ctx.ExpectedType = finalPosition(nil, nil, words, 1, trailing, ctx.PresentOptions)
		if len(words) > 1 || trailing {
			ctx.Partial = lastPartial(words, trailing)
			ctx.Prefix = outerPrefix + segmentUpTo(segment, ctx.Partial, trailing)
		}
		return ctx
	}

	walkSpecTree(&ctx, spec, words, trailing, segment, outerPrefix)
	return ctx
}

// indexAfterRecursivePrefix returns the byte offset in segment right after
// the command word plus any immediately following flag-like tokens
// (heuristic: tokens starting with "-"), so the remainder can be completed
// as a fresh command (sudo, env, xargs, ...).
func indexAfterRecursivePrefix(segment string, words []string) int {
	pos := 0
	wi := 0
	for wi < len(words) {
		// Stop before consuming the wrapped command name itself: only
		// word 0 (the recursive command, e.g. "sudo") and any flags
		// immediately following it are part of the prefix.
		if wi > 0 && !strings.HasPrefix(words[wi], "-") {
			break
		}
		idx := strings.Index(segment[pos:], words[wi])
		if idx < 0 {
			return -1
		}
		pos += idx + len(words[wi])
		wi++
	}
	// Skip whitespace after the consumed tokens.
	for pos < len(segment) && (segment[pos] == ' ' || segment[pos] == '\t') {
		pos++
	}
	return pos
}

func lastPartial(words []string, trailing bool) string {
	if trailing || len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}

func segmentUpTo(segment, partial string, trailing bool) string {
	if trailing {
		return segment
	}
	if idx := strings.LastIndex(segment, partial); idx >= 0 {
		return segment[:idx]
	}
	return segment
}

// walkSpecTree walks the spec tree token by token following spec.md §4.2
// step 5, mutating ctx in place.
func walkSpecTree(ctx *CompletionContext, root specmodel.CommandSpec, words []string, trailing bool, segment, outerPrefix string) {
	type node struct {
		subs    []specmodel.SubcommandSpec
		options []specmodel.OptionSpec
		args    []specmodel.ArgSpec
	}
	cur := node{subs: root.Subcommands, options: root.Options, args: root.Args}
	var path []string

	argIndex := 0
	pendingOptionArg := "" // option name whose value we're about to consume
	pendingOptionGen := (*specmodel.GeneratorSpec)(nil)

	i := 1
	for i < len(words) {
		tok := words[i]
		isLast := i == len(words)-1

		if pendingOptionArg != "" {
			if isLast && !trailing {
				ctx.Partial = tok
				ctx.Position = PositionOptionValue
				ctx.OptionName = pendingOptionArg
				if pendingOptionGen != nil {
					ctx.ExpectedType = ExpectedType{Kind: ExpectGenerator, GeneratorCmd: pendingOptionGen.Command}
				} else {
					ctx.ExpectedType = ExpectedType{Kind: ExpectAny}
				}
				ctx.Prefix = outerPrefix + segmentUpTo(segment, tok, false)
				return
			}
			pendingOptionArg = ""
			pendingOptionGen = nil
			i++
			continue
		}

		if strings.HasPrefix(tok, "-") {
			if isLast && !trailing {
				ctx.Partial = tok
				ctx.Position = PositionOptionFlag
				ctx.ExpectedType = ExpectedType{Kind: ExpectAny}
				ctx.Prefix = outerPrefix + segmentUpTo(segment, tok, false)
				ctx.SubcommandPath = append([]string(nil), path...)
				return
			}
			ctx.PresentOptions = append(ctx.PresentOptions, tok)
			if opt := matchOption(cur.options, tok); opt != nil && opt.TakesArg {
				pendingOptionArg = optionKey(*opt)
				pendingOptionGen = opt.ArgGenerator
			}
			i++
			continue
		}

		if isLast && !trailing {
			// Either a subcommand being typed, or a positional.
			if sub := matchSubcommand(cur.subs, tok); sub != nil || subcommandPossible(cur.subs, tok) {
				ctx.Partial = tok
				ctx.Position = PositionSubcommand
				ctx.ExpectedType = ExpectedType{Kind: ExpectAny}
				ctx.Prefix = outerPrefix + segmentUpTo(segment, tok, false)
				ctx.SubcommandPath = append([]string(nil), path...)
				return
			}
			ctx.Partial = tok
			ctx.Position, ctx.ExpectedType = argumentPosition(cur.args, argIndex)
			ctx.ArgIndex = argIndex
			ctx.Prefix = outerPrefix + segmentUpTo(segment, tok, false)
			ctx.SubcommandPath = append([]string(nil), path...)
			return
		}

		if sub := matchSubcommand(cur.subs, tok); sub != nil {
			cur = node{subs: sub.Subcommands, options: sub.Options, args: sub.Args}
			path = append(path, sub.Name)
			argIndex = 0
			i++
			continue
		}

		argIndex++
		i++
	}

	// Ran off the end of words; position depends on trailing space /
	// emptiness.
	ctx.SubcommandPath = append([]string(nil), path...)
	ctx.ArgIndex = argIndex
	if len(cur.subs) > 0 && argIndex == 0 {
		ctx.Position = PositionSubcommand
		ctx.ExpectedType = ExpectedType{Kind: ExpectAny}
	} else {
		ctx.Position, ctx.ExpectedType = argumentPosition(cur.args, argIndex)
	}
	ctx.Prefix = outerPrefix + segment
	ctx.TrailingSpace = trailing
}

func optionKey(o specmodel.OptionSpec) string {
	if o.Long != "" {
		return o.Long
	}
	return o.Short
}

func matchOption(options []specmodel.OptionSpec, tok string) *specmodel.OptionSpec {
	for i := range options {
		if options[i].Long == tok || options[i].Short == tok {
			return &options[i]
		}
	}
	return nil
}

func matchSubcommand(subs []specmodel.SubcommandSpec, tok string) *specmodel.SubcommandSpec {
	for i := range subs {
		if subs[i].Name == tok {
			return &subs[i]
		}
		for _, a := range subs[i].Aliases {
			if a == tok {
				return &subs[i]
			}
		}
	}
	return nil
}

func subcommandPossible(subs []specmodel.SubcommandSpec, partial string) bool {
	for _, s := range subs {
		if strings.HasPrefix(s.Name, partial) {
			return true
		}
		for _, a := range s.Aliases {
			if strings.HasPrefix(a, partial) {
				return true
			}
		}
	}
	return false
}

// argumentPosition resolves (Position, ExpectedType) for positional
// argument slot idx, reusing the last ArgSpec for indices past its length
// (variadic reuse, spec.md §4.2/§8).
func argumentPosition(args []specmodel.ArgSpec, idx int) (Position, ExpectedType) {
	if len(args) == 0 {
		return PositionUnknown, ExpectedType{Kind: ExpectAny}
	}
	var arg specmodel.ArgSpec
	if idx < len(args) {
		arg = args[idx]
	} else {
		last := args[len(args)-1]
		if !last.Variadic {
			return PositionUnknown, ExpectedType{Kind: ExpectAny}
		}
		arg = last
	}
	return PositionArgument, expectedTypeFromArgSpec(arg)
}

// expectedTypeFromArgSpec prefers Generator, then Template, then
// Suggestions, else Any (spec.md §4.2).
func expectedTypeFromArgSpec(arg specmodel.ArgSpec) ExpectedType {
	if arg.Generator != nil {
		return ExpectedType{Kind: ExpectGenerator, GeneratorCmd: arg.Generator.Command}
	}
	switch arg.Template {
	case specmodel.TemplateFilePaths:
		return ExpectedType{Kind: ExpectFilePath}
	case specmodel.TemplateDirs:
		return ExpectedType{Kind: ExpectDirectory}
	case specmodel.TemplateEnvVars:
		return ExpectedType{Kind: ExpectEnvVar}
	case specmodel.TemplateHistory:
		return ExpectedType{Kind: ExpectAny}
	}
	if len(arg.Suggestions) > 0 {
		return ExpectedType{Kind: ExpectOneOf, OneOf: arg.Suggestions}
	}
	return ExpectedType{Kind: ExpectAny}
}

func finalPosition(subs []specmodel.SubcommandSpec, args []specmodel.ArgSpec, words []string, argIndex int, trailing bool, present []string) (Position, ExpectedType) {
	if len(words) > 0 {
		last := words[len(words)-1]
		if !trailing && strings.HasPrefix(last, "-") {
			return PositionOptionFlag, ExpectedType{Kind: ExpectAny}
		}
	}
	return PositionUnknown, ExpectedType{Kind: ExpectAny}
}
