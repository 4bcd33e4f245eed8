package specparse

import (
	"regexp"
	"strings"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

// pairedOptionRe matches `'(-s --long)'{-s,--long=}'[description]'` style
// _arguments entries (and variants without the mutual-exclusion group).
var pairedOptionRe = regexp.MustCompile(`\{(-[a-zA-Z0-9]),(--[a-zA-Z0-9][a-zA-Z0-9-]*)(=)?\}'\[([^\]]*)\]`)

// loneLongOptionRe matches a standalone long option, optionally taking a
// value via "=".
var loneLongOptionRe = regexp.MustCompile(`'(--[a-zA-Z0-9][a-zA-Z0-9-]*)(=)?\[([^\]]*)\]`)

// loneShortOptionRe matches a standalone short option, optionally taking a
// value via "+".
var loneShortOptionRe = regexp.MustCompile(`'(-[a-zA-Z0-9])(\+)?\[([^\]]*)\]`)

// commandsArrayRe extracts `commands=(...)`-style subcommand arrays; each
// entry is 'name:description'.
var commandsArrayRe = regexp.MustCompile(`commands=\(([^)]*)\)`)
var commandEntryRe = regexp.MustCompile(`'([a-zA-Z0-9_\-]+):([^']*)'`)

// ParseZshCompletion extracts options and subcommands from a zsh
// `_arguments`-based completion function body (spec.md §4.4).
func ParseZshCompletion(name, content string) specmodel.CommandSpec {
	spec := specmodel.CommandSpec{Name: name, Source: specmodel.SourceDiscovered}

	seen := map[string]bool{}
	for _, m := range pairedOptionRe.FindAllStringSubmatch(content, -1) {
		key := m[1] + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		spec.Options = append(spec.Options, specmodel.OptionSpec{
			Short:       m[1],
			Long:        m[2],
			Description: strings.TrimSpace(m[4]),
			TakesArg:    m[3] == "=",
		})
	}
	for _, m := range loneLongOptionRe.FindAllStringSubmatch(content, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		spec.Options = append(spec.Options, specmodel.OptionSpec{
			Long:        m[1],
			Description: strings.TrimSpace(m[3]),
			TakesArg:    m[2] == "=",
		})
	}
	for _, m := range loneShortOptionRe.FindAllStringSubmatch(content, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		spec.Options = append(spec.Options, specmodel.OptionSpec{
			Short:       m[1],
			Description: strings.TrimSpace(m[3]),
			TakesArg:    m[2] == "+",
		})
	}

	if arr := commandsArrayRe.FindStringSubmatch(content); arr != nil {
		for _, cm := range commandEntryRe.FindAllStringSubmatch(arr[1], -1) {
			spec.Subcommands = append(spec.Subcommands, specmodel.SubcommandSpec{
				Name:        cm[1],
				Description: strings.TrimSpace(cm[2]),
			})
		}
	}
	return spec
}
