package compctx

import "fmt"

// Position is the structural role of the cursor in the parsed command line.
type Position int

const (
	PositionCommandName Position = iota
	PositionSubcommand
	PositionOptionFlag
	PositionOptionValue
	PositionArgument
	PositionPipeTarget
	PositionRedirect
	PositionUnknown
)

func (p Position) String() string {
	switch p {
	case PositionCommandName:
		return "CommandName"
	case PositionSubcommand:
		return "Subcommand"
	case PositionOptionFlag:
		return "OptionFlag"
	case PositionOptionValue:
		return "OptionValue"
	case PositionArgument:
		return "Argument"
	case PositionPipeTarget:
		return "PipeTarget"
	case PositionRedirect:
		return "Redirect"
	default:
		return "Unknown"
	}
}

// ExpectedKind is the tag of the ExpectedType sum type.
type ExpectedKind int

const (
	ExpectAny ExpectedKind = iota
	ExpectFilePath
	ExpectDirectory
	ExpectExecutable
	ExpectGenerator
	ExpectOneOf
	ExpectHostname
	ExpectEnvVar
	ExpectCommand
)

// ExpectedType carries the kind plus any payload (Generator's command name,
// OneOf's candidate list). The option name and argument index live on
// CompletionContext (OptionName, ArgIndex).
type ExpectedType struct {
	Kind            ExpectedKind
	GeneratorCmd    string
	OneOf           []string
}

func (e ExpectedType) String() string {
	switch e.Kind {
	case ExpectFilePath:
		return "FilePath"
	case ExpectDirectory:
		return "Directory"
	case ExpectExecutable:
		return "Executable"
	case ExpectGenerator:
		return fmt.Sprintf("Generator{%s}", e.GeneratorCmd)
	case ExpectOneOf:
		return "OneOf"
	case ExpectHostname:
		return "Hostname"
	case ExpectEnvVar:
		return "EnvVar"
	case ExpectCommand:
		return "Command"
	default:
		return "Any"
	}
}

// CompletionContext is the structured result of parsing an edit buffer at a
// cursor position.
type CompletionContext struct {
	Buffer         string
	Position       Position
	ExpectedType   ExpectedType
	Partial        string
	Prefix         string
	Command        string
	SubcommandPath []string
	PresentOptions []string

	// OptionName is set when Position == PositionOptionValue.
	OptionName string
	// ArgIndex is set when Position == PositionArgument.
	ArgIndex int
	// TrailingSpace records whether the raw buffer ended in whitespace.
	TrailingSpace bool
}

// Empty returns the context for an empty buffer: CommandName/Command with no
// partial, prefix, or resolved spec path.
func Empty() CompletionContext {
	return CompletionContext{
		Position:     PositionCommandName,
		ExpectedType: ExpectedType{Kind: ExpectCommand},
	}
}
