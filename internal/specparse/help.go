// Package specparse contains best-effort extractors that turn --help text
// or zsh _arguments completion specs into the spec model (spec.md §4.4).
package specparse

import (
	"regexp"
	"strings"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

var sectionHeaderRe = regexp.MustCompile(`(?i)^(options|flags|commands|subcommands):\s*$`)

// optionLineRe matches a short flag, an optional long flag, an optional
// value placeholder, and a 2+-space gap before the description.
var optionLineRe = regexp.MustCompile(`^\s*(-[a-zA-Z0-9])?,?\s*(--[a-zA-Z0-9][a-zA-Z0-9-]*)?(?:[ =]([<\[][^\s]+[>\]]|[A-Z_]+))?\s{2,}(.+)$`)

// commandLineRe matches a two-space-gap "name, alias, …  description" line.
var commandLineRe = regexp.MustCompile(`^\s*([a-zA-Z0-9][a-zA-Z0-9_,\- ]*?)\s{2,}(.+)$`)

type section int

const (
	sectionNone section = iota
	sectionOptions
	sectionCommands
)

// ParseHelpBasic is a section-aware line scanner over `<name> --help` (or
// `-h`) output. It recognizes "Options"/"Flags" and
// "Commands"/"Subcommands" headers (case-insensitive, ending in a colon);
// everything else is ignored.
func ParseHelpBasic(name, text string) specmodel.CommandSpec {
	spec := specmodel.CommandSpec{Name: name, Source: specmodel.SourceDiscovered}

	cur := sectionNone
	var lastOption *specmodel.OptionSpec

	lines := strings.Split(text, "\n")
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			lastOption = nil
			continue
		}

		if m := sectionHeaderRe.FindStringSubmatch(trimmed); m != nil {
			switch strings.ToLower(m[1]) {
			case "options", "flags":
				cur = sectionOptions
			case "commands", "subcommands":
				cur = sectionCommands
			}
			lastOption = nil
			continue
		}

		switch cur {
		case sectionOptions:
			if opt, ok := parseOptionLine(line); ok {
				if opt.Long == "--help" || opt.Long == "--version" {
					lastOption = nil
					continue
				}
				spec.Options = append(spec.Options, opt)
				lastOption = &spec.Options[len(spec.Options)-1]
				continue
			}
			// Multi-line description continuation: deeper indent, no
			// leading dash, appended to the previous option.
			if lastOption != nil && strings.HasPrefix(line, "  ") && !strings.HasPrefix(trimmed, "-") {
				lastOption.Description = strings.TrimSpace(lastOption.Description + " " + trimmed)
			}
		case sectionCommands:
			if sub, ok := parseCommandLine(line); ok {
				spec.Subcommands = append(spec.Subcommands, sub)
			}
		}
	}
	return spec
}

func parseOptionLine(line string) (specmodel.OptionSpec, bool) {
	m := optionLineRe.FindStringSubmatch(line)
	if m == nil {
		return specmodel.OptionSpec{}, false
	}
	short, long, value, desc := m[1], m[2], m[3], m[4]
	if short == "" && long == "" {
		return specmodel.OptionSpec{}, false
	}
	return specmodel.OptionSpec{
		Short:       short,
		Long:        long,
		Description: strings.TrimSpace(desc),
		TakesArg:    value != "",
	}, true
}

func parseCommandLine(line string) (specmodel.SubcommandSpec, bool) {
	m := commandLineRe.FindStringSubmatch(line)
	if m == nil {
		return specmodel.SubcommandSpec{}, false
	}
	namesPart := strings.TrimSpace(m[1])
	desc := strings.TrimSpace(m[2])
	if namesPart == "" {
		return specmodel.SubcommandSpec{}, false
	}
	names := strings.Split(namesPart, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	sub := specmodel.SubcommandSpec{Name: names[0], Description: desc}
	if len(names) > 1 {
		sub.Aliases = names[1:]
	}
	return sub, true
}
