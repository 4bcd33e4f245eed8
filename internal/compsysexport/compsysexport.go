// Package compsysexport renders a CommandSpec as a zsh _arguments-compatible
// completion function (spec.md §6.3), the inverse of internal/specparse.
package compsysexport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

// sourceMarkerPrefix is the first-line marker written into every exported
// file so stale-removal can distinguish auto-generated entries from
// hand-written completion files (spec.md §6.2).
const sourceMarkerPrefix = "# Source: "

// escapeSingleQuoted escapes a string for use inside a single-quoted zsh
// description: ' -> '\'' , [ -> \[, ] -> \] (spec.md §6.3).
func escapeSingleQuoted(s string) string {
	s = strings.ReplaceAll(s, `'`, `'\''`)
	s = strings.ReplaceAll(s, `[`, `\[`)
	s = strings.ReplaceAll(s, `]`, `\]`)
	return s
}

// escapeDoubleQuoted escapes a string for embedding inside a double-quoted
// generator command substitution: \, ", $, ` are all escaped.
func escapeDoubleQuoted(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`$`, `\$`,
		"`", "\\`",
	)
	return replacer.Replace(s)
}

// Export renders spec as a full zsh completion file body, tagged with
// sourceTag on its first line for stale-removal (spec.md §6.2/§6.3).
func Export(spec specmodel.CommandSpec, sourceTag string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", sourceMarkerPrefix, sourceTag)
	fmt.Fprintf(&b, "#compdef %s\n\n", spec.Name)

	writeFunction(&b, spec.Name, spec.Name, spec.Options, spec.Args, spec.Subcommands)

	fmt.Fprintf(&b, "_%s \"$@\"\n", funcSuffix(spec.Name))
	return b.String()
}

// WriteFile exports spec and writes it to <dir>/_<command>.
func WriteFile(dir string, spec specmodel.CommandSpec, sourceTag string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("compsysexport: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, "_"+spec.Name)
	if err := os.WriteFile(path, []byte(Export(spec, sourceTag)), 0o644); err != nil {
		return fmt.Errorf("compsysexport: writing %s: %w", path, err)
	}
	return nil
}

// RemoveStale deletes previously auto-generated files under dir whose first
// line carries sourceMarkerPrefix+tag but whose command name is not in
// keep, distinguishing auto-generated entries from hand-written completion
// files the user may have placed in the same directory.
func RemoveStale(dir, tag string, keep map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("compsysexport: reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "_") {
			continue
		}
		command := strings.TrimPrefix(name, "_")
		if keep[command] {
			continue
		}
		path := filepath.Join(dir, name)
		firstLine, err := firstLineOf(path)
		if err != nil || firstLine != sourceMarkerPrefix+tag {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("compsysexport: removing stale %s: %w", path, err)
		}
	}
	return nil
}

func firstLineOf(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(string(data), '\n'); i >= 0 {
		return string(data[:i]), nil
	}
	return string(data), nil
}

// funcSuffix sanitizes a command name for use in a zsh function identifier.
func funcSuffix(name string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}

// writeFunction emits one zsh completion function (root or subcommand node)
// and recurses into its children, each as its own function.
func writeFunction(b *strings.Builder, rootName, path string, options []specmodel.OptionSpec, args []specmodel.ArgSpec, subs []specmodel.SubcommandSpec) {
	fnName := "_" + funcSuffix(path)
	fmt.Fprintf(b, "%s() {\n", fnName)
	fmt.Fprintf(b, "  local -a args\n")
	fmt.Fprintf(b, "  args=(\n")

	for _, o := range options {
		fmt.Fprintf(b, "    %s\n", optionLine(o))
	}

	argPos := 1
	for _, a := range args {
		fmt.Fprintf(b, "    %s\n", argLine(argPos, a))
		if !a.Variadic {
			argPos++
		}
	}

	if len(subs) > 0 {
		fmt.Fprintf(b, "    '1: :->subcommand'\n")
		fmt.Fprintf(b, "    '*::arg:->subargs'\n")
	}
	fmt.Fprintf(b, "  )\n")
	fmt.Fprintf(b, "  _arguments -s $args\n")

	if len(subs) > 0 {
		fmt.Fprintf(b, "\n  case $state in\n")
		fmt.Fprintf(b, "    subcommand)\n")
		fmt.Fprintf(b, "      local -a commands\n")
		fmt.Fprintf(b, "      commands=(\n")
		for _, s := range subs {
			fmt.Fprintf(b, "        '%s:%s'\n", s.Name, escapeSingleQuoted(s.Description))
		}
		fmt.Fprintf(b, "      )\n")
		fmt.Fprintf(b, "      _describe 'command' commands\n")
		fmt.Fprintf(b, "      ;;\n")
		fmt.Fprintf(b, "    subargs)\n")
		fmt.Fprintf(b, "      case $words[1] in\n")
		for _, s := range subs {
			fmt.Fprintf(b, "        %s) _%s ;;\n", s.Name, funcSuffix(path+"_"+s.Name))
		}
		fmt.Fprintf(b, "      esac\n")
		fmt.Fprintf(b, "      ;;\n")
		fmt.Fprintf(b, "  esac\n")
	}
	fmt.Fprintf(b, "}\n\n")

	for _, s := range subs {
		writeFunction(b, rootName, path+"_"+s.Name, s.Options, s.Args, s.Subcommands)
	}
}

// optionLine renders one _arguments option entry. Paired short/long options
// share a mutual-exclusion group; lone options stand alone.
func optionLine(o specmodel.OptionSpec) string {
	desc := escapeSingleQuoted(o.Description)
	valueSuffix := ""
	if o.TakesArg {
		valueSuffix = ": :" + argValueAction(o.ArgGenerator)
	}

	switch {
	case o.Short != "" && o.Long != "":
		eq := ""
		if o.TakesArg {
			eq = "="
		}
		return fmt.Sprintf("'(%s %s)'{%s,%s%s}'[%s]'%s", o.Short, o.Long, o.Short, o.Long, eq, desc, valueSuffix)
	case o.Long != "":
		eq := ""
		if o.TakesArg {
			eq = "="
		}
		return fmt.Sprintf("'%s%s[%s]'%s", o.Long, eq, desc, valueSuffix)
	default:
		plus := ""
		if o.TakesArg {
			plus = "+"
		}
		return fmt.Sprintf("'%s%s[%s]'%s", o.Short, plus, desc, valueSuffix)
	}
}

// argLine renders one positional-argument entry at position pos.
func argLine(pos int, a specmodel.ArgSpec) string {
	desc := escapeSingleQuoted(a.Description)
	prefix := strconv.Itoa(pos)
	if a.Variadic {
		prefix = "*"
	}
	return fmt.Sprintf("'%s:%s:%s'", prefix, desc, argSpecAction(a))
}

// argValueAction resolves the completion action for an option value: a
// generator command, or a plain unconstrained value.
func argValueAction(gen *specmodel.GeneratorSpec) string {
	if gen == nil {
		return "()"
	}
	return generatorAction(*gen)
}

// argSpecAction resolves a positional argument's action, preferring (in
// order) an explicit generator, a standard template, a static suggestion
// list, then an unconstrained value.
func argSpecAction(a specmodel.ArgSpec) string {
	if a.Generator != nil {
		return generatorAction(*a.Generator)
	}
	if a.Template != "" {
		return templateAction(a.Template)
	}
	if len(a.Suggestions) > 0 {
		quoted := make([]string, len(a.Suggestions))
		for i, s := range a.Suggestions {
			quoted[i] = escapeSingleQuoted(s)
		}
		return "(" + strings.Join(quoted, " ") + ")"
	}
	return "()"
}

// generatorAction emits a block that fills vals from `synapsectl
// run-generator`, passing the generator command as a double-quoted argument.
func generatorAction(gen specmodel.GeneratorSpec) string {
	g := gen.Normalized()
	return fmt.Sprintf(`{local -a vals; vals=(${(f)"$(synapsectl run-generator --command "%s")"}); compadd -a vals}`, escapeDoubleQuoted(g.Command))
}

// templateAction maps a declarative Template to its standard zsh action.
func templateAction(t specmodel.Template) string {
	switch t {
	case specmodel.TemplateFilePaths:
		return "_files"
	case specmodel.TemplateDirs:
		return "_files -/"
	case specmodel.TemplateEnvVars:
		return `_parameters -g "*(export)"`
	default:
		return "()"
	}
}
