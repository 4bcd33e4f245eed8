// Package protocol defines the request/response envelopes exchanged over
// the synapsed socket and their wire encodings: newline-terminated JSON for
// requests, newline-terminated TSV frames for responses (spec.md §6.1).
package protocol

import (
	"strconv"
	"strings"
)

// RequestType is the tag discriminating the request envelope's shape.
type RequestType string

const (
	RequestSuggest         RequestType = "suggest"
	RequestListSuggestions RequestType = "list_suggestions"
	RequestComplete        RequestType = "complete"
	RequestRunGenerator    RequestType = "run_generator"
	RequestInteraction     RequestType = "interaction"
	RequestCommandExecuted RequestType = "command_executed"
	RequestNaturalLanguage RequestType = "natural_language"
	RequestCwdChanged      RequestType = "cwd_changed"
	RequestPing            RequestType = "ping"
	RequestShutdown        RequestType = "shutdown"
	RequestReloadConfig    RequestType = "reload_config"
	RequestClearCache      RequestType = "clear_cache"
)

// InteractionAction is the user-feedback kind carried by an "interaction"
// request.
type InteractionAction string

const (
	ActionAccept  InteractionAction = "accept"
	ActionDismiss InteractionAction = "dismiss"
	ActionIgnore  InteractionAction = "ignore"
)

// Request is the union of all fields any request type may carry. Only the
// fields relevant to Type are populated; the rest are zero values. A single
// struct (rather than per-type structs decoded via a second pass) keeps
// decoding a one-shot json.Unmarshal, matching the wire contract's "tagged
// union on type" shape.
type Request struct {
	Type RequestType `json:"type"`

	SessionID      string            `json:"session_id,omitempty"`
	Buffer         string            `json:"buffer,omitempty"`
	CursorPos      int               `json:"cursor_pos,omitempty"`
	Cwd            string            `json:"cwd,omitempty"`
	LastExitCode   *int              `json:"last_exit_code,omitempty"`
	RecentCommands []string          `json:"recent_commands,omitempty"`
	EnvHints       map[string]string `json:"env_hints,omitempty"`
	MaxResults     int               `json:"max_results,omitempty"`

	Command     string   `json:"command,omitempty"`
	Context     []string `json:"context,omitempty"`
	StripPrefix string   `json:"strip_prefix,omitempty"`
	SplitOn     string   `json:"split_on,omitempty"`

	Action         InteractionAction `json:"action,omitempty"`
	Suggestion     string            `json:"suggestion,omitempty"`
	Source         string            `json:"source,omitempty"`
	BufferAtAction string            `json:"buffer_at_action,omitempty"`

	Query string `json:"query,omitempty"`
}

// ResponseTag is the first TSV field identifying a response frame's shape.
type ResponseTag string

const (
	TagSuggestion     ResponseTag = "suggestion"
	TagUpdate         ResponseTag = "update"
	TagSuggestionList ResponseTag = "suggestion_list"
	TagCompleteResult ResponseTag = "complete_result"
	TagPong           ResponseTag = "pong"
	TagAck            ResponseTag = "ack"
	TagError          ResponseTag = "error"
)

// SuggestionItem is one ranked candidate as carried in a suggestion_list
// frame (4 fields per spec.md §6.1) or a singular suggestion/update frame.
type SuggestionItem struct {
	Text        string
	Source      string
	Description string
	Kind        string
}

// sanitize enforces the TSV field contract: no raw tabs or newlines.
// Tabs become four spaces, newlines become a single space, carriage
// returns are dropped outright (spec.md §6.1).
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", "    ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func joinFields(fields ...string) string {
	sanitized := make([]string, len(fields))
	for i, f := range fields {
		sanitized[i] = sanitize(f)
	}
	return strings.Join(sanitized, "\t")
}

// EncodeSuggestion renders a single-candidate frame (tag "suggestion" or
// "update"): the inline Phase-1 reply or a Phase-2 improvement. An empty
// item.Text is valid and intentional (spec.md §7: "emit an empty-text
// suggestion frame rather than error").
func EncodeSuggestion(tag ResponseTag, item SuggestionItem) string {
	return joinFields(string(tag), item.Text, item.Source, item.Description, item.Kind)
}

// EncodeSuggestionList renders the menu-population frame: tag, count, then
// n groups of (text, source, description, kind).
func EncodeSuggestionList(items []SuggestionItem) string {
	fields := make([]string, 0, 2+len(items)*4)
	fields = append(fields, string(TagSuggestionList), strconv.Itoa(len(items)))
	for _, it := range items {
		fields = append(fields, it.Text, it.Source, it.Description, it.Kind)
	}
	return joinFields(fields...)
}

// CompleteValue is one (value, description) pair for a complete_result
// frame.
type CompleteValue struct {
	Value       string
	Description string
}

// EncodeCompleteResult renders the compsys-driven value-enumeration frame:
// tag, count, then n groups of (value, description).
func EncodeCompleteResult(values []CompleteValue) string {
	fields := make([]string, 0, 2+len(values)*2)
	fields = append(fields, string(TagCompleteResult), strconv.Itoa(len(values)))
	for _, v := range values {
		fields = append(fields, v.Value, v.Description)
	}
	return joinFields(fields...)
}

// EncodeError renders an error frame carrying a single sanitized message.
func EncodeError(message string) string {
	return joinFields(string(TagError), message)
}

// EncodePong renders the bare "pong" frame.
func EncodePong() string { return string(TagPong) }

// EncodeAck renders the bare "ack" frame.
func EncodeAck() string { return string(TagAck) }
