// Package specmodel defines the declarative shapes used to describe a
// command's subcommands, options, and positional arguments.
package specmodel

// Source identifies where a CommandSpec was resolved from. Lookup priority
// is ProjectUser > ProjectAuto > Builtin > Discovered.
type Source string

const (
	SourceBuiltin     Source = "builtin"
	SourceProjectUser Source = "project_user"
	SourceProjectAuto Source = "project_auto"
	SourceDiscovered  Source = "discovered"
)

// Template names a canonical argument shape the filesystem/environment
// providers know how to fill in without a generator.
type Template string

const (
	TemplateFilePaths  Template = "file_paths"
	TemplateDirs       Template = "directories"
	TemplateEnvVars    Template = "env_vars"
	TemplateHistory    Template = "history"
)

// GeneratorSpec describes a shell command whose stdout enumerates candidate
// values for an option value or positional argument.
type GeneratorSpec struct {
	Command      string `json:"command" toml:"command"`
	SplitOn      string `json:"split_on,omitempty" toml:"split_on,omitempty"`
	StripPrefix  string `json:"strip_prefix,omitempty" toml:"strip_prefix,omitempty"`
	CacheTTLSecs int    `json:"cache_ttl_secs,omitempty" toml:"cache_ttl_secs,omitempty"`
	TimeoutMS    int    `json:"timeout_ms,omitempty" toml:"timeout_ms,omitempty"`
}

// Normalized returns a copy with defaults applied: split_on "\n",
// cache_ttl_secs 10, timeout_ms 500.
func (g GeneratorSpec) Normalized() GeneratorSpec {
	out := g
	if out.SplitOn == "" {
		out.SplitOn = "\n"
	}
	if out.CacheTTLSecs == 0 {
		out.CacheTTLSecs = 10
	}
	if out.TimeoutMS == 0 {
		out.TimeoutMS = 500
	}
	return out
}

// OptionSpec describes a single flag. At least one of Long/Short must be
// set. ArgGenerator is only meaningful when TakesArg is true.
type OptionSpec struct {
	Long         string         `json:"long,omitempty" toml:"long,omitempty"`
	Short        string         `json:"short,omitempty" toml:"short,omitempty"`
	Description  string         `json:"description,omitempty" toml:"description,omitempty"`
	TakesArg     bool           `json:"takes_arg" toml:"takes_arg"`
	ArgGenerator *GeneratorSpec `json:"arg_generator,omitempty" toml:"arg_generator,omitempty"`
}

// Valid reports whether the option shape satisfies its invariants.
func (o OptionSpec) Valid() bool {
	if o.Long == "" && o.Short == "" {
		return false
	}
	if !o.TakesArg && o.ArgGenerator != nil {
		return false
	}
	return true
}

// ArgSpec describes one positional argument slot.
type ArgSpec struct {
	Name        string         `json:"name" toml:"name"`
	Description string         `json:"description,omitempty" toml:"description,omitempty"`
	Required    bool           `json:"required,omitempty" toml:"required,omitempty"`
	Variadic    bool           `json:"variadic,omitempty" toml:"variadic,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty" toml:"suggestions,omitempty"`
	Generator   *GeneratorSpec `json:"generator,omitempty" toml:"generator,omitempty"`
	Template    Template       `json:"template,omitempty" toml:"template,omitempty"`
}

// SubcommandSpec is a node in a command's subcommand tree.
type SubcommandSpec struct {
	Name        string            `json:"name" toml:"name"`
	Aliases     []string          `json:"aliases,omitempty" toml:"aliases,omitempty"`
	Description string            `json:"description,omitempty" toml:"description,omitempty"`
	Subcommands []SubcommandSpec  `json:"subcommands,omitempty" toml:"subcommands,omitempty"`
	Options     []OptionSpec      `json:"options,omitempty" toml:"options,omitempty"`
	Args        []ArgSpec         `json:"args,omitempty" toml:"args,omitempty"`
}

// CommandSpec is the root of a command's declarative tree.
type CommandSpec struct {
	Name        string           `json:"name" toml:"name"`
	Aliases     []string         `json:"aliases,omitempty" toml:"aliases,omitempty"`
	Description string           `json:"description,omitempty" toml:"description,omitempty"`
	Subcommands []SubcommandSpec `json:"subcommands,omitempty" toml:"subcommands,omitempty"`
	Options     []OptionSpec     `json:"options,omitempty" toml:"options,omitempty"`
	Args        []ArgSpec        `json:"args,omitempty" toml:"args,omitempty"`
	Recursive   bool             `json:"recursive,omitempty" toml:"recursive,omitempty"`
	Source      Source           `json:"-" toml:"-"`
}

// Equal compares two CommandSpecs ignoring the runtime-only Source field,
// used by the discovered-spec TOML round-trip test.
func (c CommandSpec) Equal(other CommandSpec) bool {
	a, b := c, other
	a.Source, b.Source = "", ""
	return specEqual(a, b)
}

func specEqual(a, b CommandSpec) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Recursive != b.Recursive {
		return false
	}
	if !stringSliceEqual(a.Aliases, b.Aliases) {
		return false
	}
	if len(a.Subcommands) != len(b.Subcommands) || len(a.Options) != len(b.Options) || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Subcommands {
		if !subEqual(a.Subcommands[i], b.Subcommands[i]) {
			return false
		}
	}
	for i := range a.Options {
		if a.Options[i] != b.Options[i] {
			if !optEqual(a.Options[i], b.Options[i]) {
				return false
			}
		}
	}
	for i := range a.Args {
		if !argEqual(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

func subEqual(a, b SubcommandSpec) bool {
	if a.Name != b.Name || a.Description != b.Description {
		return false
	}
	if !stringSliceEqual(a.Aliases, b.Aliases) {
		return false
	}
	if len(a.Subcommands) != len(b.Subcommands) || len(a.Options) != len(b.Options) || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Subcommands {
		if !subEqual(a.Subcommands[i], b.Subcommands[i]) {
			return false
		}
	}
	for i := range a.Options {
		if !optEqual(a.Options[i], b.Options[i]) {
			return false
		}
	}
	for i := range a.Args {
		if !argEqual(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

func optEqual(a, b OptionSpec) bool {
	if a.Long != b.Long || a.Short != b.Short || a.Description != b.Description || a.TakesArg != b.TakesArg {
		return false
	}
	if (a.ArgGenerator == nil) != (b.ArgGenerator == nil) {
		return false
	}
	if a.ArgGenerator != nil && *a.ArgGenerator != *b.ArgGenerator {
		return false
	}
	return true
}

func argEqual(a, b ArgSpec) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Required != b.Required ||
		a.Variadic != b.Variadic || a.Template != b.Template {
		return false
	}
	if !stringSliceEqual(a.Suggestions, b.Suggestions) {
		return false
	}
	if (a.Generator == nil) != (b.Generator == nil) {
		return false
	}
	if a.Generator != nil && *a.Generator != *b.Generator {
		return false
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
