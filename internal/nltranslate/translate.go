// Package nltranslate turns a natural-language request into ranked shell
// command candidates via the LLM client (spec.md §4.10).
package nltranslate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/synapse-sh/synapse/internal/llm"
)

// ChatFunc matches llm.Client.Chat reduced to (text, error), keeping this
// package free of the HTTP client's concrete type so tests can substitute a
// stub.
type ChatFunc func(ctx context.Context, system, user string) (string, error)

// EnvInfo carries the ambient context assembled around the user's request
// (spec.md §4.10): shell/OS/cwd, project type, git branch, PATH tools,
// project runner commands, top-level cwd entries, and recent commands.
type EnvInfo struct {
	Shell          string
	OS             string
	Cwd            string
	ProjectType    string
	GitBranch      string
	PathTools      []string
	RunnerCommands []string
	CwdEntries     []string
	RecentCommands []string
}

// Candidate is one ranked command suggestion, flagged if it matches a
// known-destructive pattern.
type Candidate struct {
	Command     string
	Destructive bool
}

const maxCwdEntries = 50
const maxFlagsPerTool = 20

var destructivePatterns = []string{"rm ", "dd ", "mkfs", "chmod 777", "kill -9", "-delete", "> "}

// Translator builds the NL-to-command prompt and filters the LLM's
// response through a compiled blocklist.
type Translator struct {
	chat      ChatFunc
	blocklist *regexp.Regexp
}

// New compiles blocklistPatterns (plain substrings or */?  wildcards) into
// a single alternation regex. A nil/empty blocklist matches nothing.
func New(chat ChatFunc, blocklistPatterns []string) *Translator {
	return &Translator{chat: chat, blocklist: compileBlocklist(blocklistPatterns)}
}

func compileBlocklist(patterns []string) *regexp.Regexp {
	if len(patterns) == 0 {
		return nil
	}
	alts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		alts = append(alts, wildcardToRegex(p))
	}
	re, err := regexp.Compile("(?:" + strings.Join(alts, "|") + ")")
	if err != nil {
		return nil
	}
	return re
}

// wildcardToRegex escapes regex metacharacters in p except "*" and "?",
// which map to ".*" and "." respectively.
func wildcardToRegex(p string) string {
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// RecognizedFlags maps a tool name to the option flags recognized for it,
// supplied by the caller (typically sourced from the spec store), each
// capped at maxFlagsPerTool before prompt assembly.
type RecognizedFlags map[string][]string

// Translate builds the prompt, calls the LLM, and returns filtered,
// destructive-annotated candidates. maxSuggestions bounds how many the
// prompt asks for; it does not otherwise change prompt content (the spec's
// "temperature depends on max_suggestions" is realized here as a prompt
// instruction since the underlying chat contract has no temperature knob).
func (t *Translator) Translate(ctx context.Context, query string, env EnvInfo, flags RecognizedFlags, maxSuggestions int) ([]Candidate, error) {
	prompt := buildPrompt(query, env, flags, maxSuggestions)
	resp, err := t.chat(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("nltranslate: %w", err)
	}

	var out []Candidate
	for _, cmd := range llm.ExtractCommands(resp) {
		if t.blocklist != nil && t.blocklist.MatchString(cmd) {
			continue
		}
		out = append(out, Candidate{Command: cmd, Destructive: isDestructive(cmd)})
		if len(out) >= maxSuggestions {
			break
		}
	}
	return out, nil
}

func isDestructive(cmd string) bool {
	for _, p := range destructivePatterns {
		if strings.Contains(cmd, p) {
			return true
		}
	}
	return false
}

const systemPrompt = `You translate a natural-language request into concrete shell commands for the user's current environment.
Output ONLY the candidate commands, one per line, most-likely-first, no numbering, no prose, no markdown fences.
Use the provided context (shell, OS, cwd, project type, git branch, available tools, project runner commands, recent commands) to ground each command in what is actually available.
Prefer fewer, more certain commands over a long list of speculative ones.`

func buildPrompt(query string, env EnvInfo, flags RecognizedFlags, maxSuggestions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "request: %s\n", query)
	fmt.Fprintf(&b, "max suggestions: %d\n", maxSuggestions)
	fmt.Fprintf(&b, "shell: %s\n", env.Shell)
	fmt.Fprintf(&b, "os: %s\n", env.OS)
	fmt.Fprintf(&b, "cwd: %s\n", env.Cwd)
	if env.ProjectType != "" {
		fmt.Fprintf(&b, "project type: %s\n", env.ProjectType)
	}
	if env.GitBranch != "" {
		fmt.Fprintf(&b, "git branch: %s\n", env.GitBranch)
	}
	if len(env.PathTools) > 0 {
		fmt.Fprintf(&b, "tools on PATH: %s\n", strings.Join(env.PathTools, ", "))
	}
	if len(env.RunnerCommands) > 0 {
		fmt.Fprintf(&b, "project runner commands: %s\n", strings.Join(env.RunnerCommands, ", "))
	}
	if entries := capList(env.CwdEntries, maxCwdEntries); len(entries) > 0 {
		fmt.Fprintf(&b, "cwd entries: %s\n", strings.Join(entries, ", "))
	}
	for tool, toolFlags := range flags {
		capped := capList(toolFlags, maxFlagsPerTool)
		fmt.Fprintf(&b, "%s flags: %s\n", tool, strings.Join(capped, ", "))
	}
	if len(env.RecentCommands) > 0 {
		fmt.Fprintf(&b, "recent commands: %s\n", strings.Join(env.RecentCommands, "; "))
	}
	return b.String()
}

func capList(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}
