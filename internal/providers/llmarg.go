package providers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/tools"
)

// chatFunc adapts an llm.Client.Chat-shaped method (which returns a concrete
// Usage type alongside the text) into a plain function the provider can
// call without importing internal/llm and its HTTP dependency graph
// directly. Callers pass a closure: func(ctx, sys, user) (string, error) {
// text, _, err := client.Chat(ctx, sys, user); return text, err }.
type chatFunc func(ctx context.Context, system, user string) (string, error)

type llmArgCacheEntry struct {
	values  []string
	expires time.Time
}

const llmArgCacheTTL = 30 * time.Second

// LLMArgProvider asks the LLM for plausible argument/option values using
// bounded command-specific context (spec.md §4.5.6).
type LLMArgProvider struct {
	chat chatFunc

	mu    sync.Mutex
	cache map[string]llmArgCacheEntry
}

// NewLLMArgProvider takes a chat function with the same signature as
// llm.Client.Chat reduced to (response, error) — callers adapt with a small
// closure, keeping this package free of the HTTP client's dependency chain.
func NewLLMArgProvider(chat func(ctx context.Context, system, user string) (string, error)) *LLMArgProvider {
	return &LLMArgProvider{chat: chat, cache: make(map[string]llmArgCacheEntry)}
}

func (p *LLMArgProvider) applies(ctx compctx.CompletionContext) bool {
	if ctx.Command == "" {
		return false
	}
	if ctx.Position != compctx.PositionArgument && ctx.Position != compctx.PositionOptionValue {
		return false
	}
	return ctx.ExpectedType.Kind == compctx.ExpectAny
}

// Suggest implements Provider.
func (p *LLMArgProvider) Suggest(ctx context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	c := req.Context
	if !p.applies(c) || p.chat == nil {
		return nil
	}

	key := cacheKey(c, req.RecentCommands)
	if cached, ok := p.cached(key); ok {
		return toSuggestions(filterByPartial(cached, c.Partial), max)
	}

	prompt := buildContextPrompt(ctx, c)
	resp, err := p.chat(ctx, llmArgSystemPrompt, prompt)
	if err != nil {
		return nil
	}

	values := parseLLMValues(resp, c)
	p.store(key, values)
	return toSuggestions(filterByPartial(values, c.Partial), max)
}

func (p *LLMArgProvider) cached(key string) ([]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.cache[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.values, true
}

func (p *LLMArgProvider) store(key string, values []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[key] = llmArgCacheEntry{values: values, expires: time.Now().Add(llmArgCacheTTL)}
}

func cacheKey(c compctx.CompletionContext, recent []string) string {
	var b strings.Builder
	b.WriteString(c.Command)
	b.WriteByte('|')
	b.WriteString(strings.Join(c.SubcommandPath, "/"))
	b.WriteByte('|')
	if c.Position == compctx.PositionOptionValue {
		b.WriteString(c.OptionName)
	} else {
		b.WriteString(strconv.Itoa(c.ArgIndex))
	}
	b.WriteByte('|')
	b.WriteString(c.Partial)
	b.WriteByte('|')
	b.WriteString(strings.Join(recent, ","))
	return b.String()
}

const llmArgSystemPrompt = "You complete shell command arguments. Respond with up to five plausible values, one per line, no numbering, no explanation."

// buildContextPrompt assembles the bounded textual context described in
// spec.md §4.5.6: command/option/argument descriptions plus command-specific
// live context (git branch/commits, docker containers/images, ssh hosts).
func buildContextPrompt(ctx context.Context, c compctx.CompletionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "command: %s\n", c.Command)
	if len(c.SubcommandPath) > 0 {
		fmt.Fprintf(&b, "subcommand: %s\n", strings.Join(c.SubcommandPath, " "))
	}
	if c.OptionName != "" {
		fmt.Fprintf(&b, "option: %s\n", c.OptionName)
	}
	fmt.Fprintf(&b, "partial: %q\n", c.Partial)

	switch c.Command {
	case "git":
		b.WriteString(scrubHome(gitContext(ctx, c)))
	case "docker":
		b.WriteString(scrubHome(dockerContext(ctx)))
	case "ssh", "scp", "sftp":
		b.WriteString(scrubHome(sshHostContext()))
	}
	return b.String()
}

func gitContext(ctx context.Context, c compctx.CompletionContext) string {
	var b strings.Builder
	if out, _, err := tools.RunShell(ctx, "git branch --show-current"); err == nil {
		fmt.Fprintf(&b, "current branch: %s\n", strings.TrimSpace(out))
	}
	if out, _, err := tools.RunShell(ctx, "git log --oneline -5"); err == nil {
		fmt.Fprintf(&b, "recent commits:\n%s\n", out)
	}
	if out, _, err := tools.RunShell(ctx, "git tag --sort=-creatordate | head -5"); err == nil {
		fmt.Fprintf(&b, "recent tags:\n%s\n", out)
	}
	isCommitMessage := len(c.SubcommandPath) > 0 && c.SubcommandPath[0] == "commit" && c.OptionName == "--message"
	if isCommitMessage {
		if out, _, err := tools.RunShell(ctx, "git diff --staged"); err == nil {
			if summary := summarizeStagedDiff(out); summary != "" {
				fmt.Fprintf(&b, "staged diff summary:\n%s\n", summary)
			}
		}
	}
	return b.String()
}

// summarizeStagedDiff parses a unified diff (as produced by `git diff
// --staged`) and renders a compact per-file added/removed line count,
// bounded so a large changeset doesn't blow the LLM context budget.
func summarizeStagedDiff(unified string) string {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(unified))
	if err != nil {
		return ""
	}
	var b strings.Builder
	for i, fd := range fileDiffs {
		if i >= maxDiffSummaryFiles {
			fmt.Fprintf(&b, "... and %d more file(s)\n", len(fileDiffs)-i)
			break
		}
		added, removed := 0, 0
		for _, h := range fd.Hunks {
			for _, line := range strings.Split(string(h.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					added++
				case strings.HasPrefix(line, "-"):
					removed++
				}
			}
		}
		fmt.Fprintf(&b, "%s: +%d -%d\n", diffDisplayName(fd), added, removed)
	}
	return b.String()
}

// diffDisplayName prefers the new path (b/...) over the old one, falling
// back to OrigName for pure deletions where NewName is /dev/null.
func diffDisplayName(fd *diff.FileDiff) string {
	name := strings.TrimPrefix(fd.NewName, "b/")
	if name == "" || name == "/dev/null" {
		name = strings.TrimPrefix(fd.OrigName, "a/")
	}
	return name
}

const maxDiffSummaryFiles = 20

func dockerContext(ctx context.Context) string {
	var b strings.Builder
	if out, _, err := tools.RunShell(ctx, "docker ps --format '{{.Names}}'"); err == nil {
		fmt.Fprintf(&b, "running containers:\n%s\n", out)
	}
	if out, _, err := tools.RunShell(ctx, "docker images --format '{{.Repository}}:{{.Tag}}'"); err == nil {
		fmt.Fprintf(&b, "images:\n%s\n", out)
	}
	return b.String()
}

// llmNumberingPrefix strips a leading list marker from an LLM-returned line.
var llmNumberingPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)

var sshHostPattern = regexp.MustCompile(`(?i)^\s*Host\s+(.+)$`)

// sshHostContext reads ~/.ssh/config and returns the concrete (non-glob,
// non-negated) host aliases.
func sshHostContext() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(home + "/.ssh/config")
	if err != nil {
		return ""
	}
	var hosts []string
	for _, line := range strings.Split(string(data), "\n") {
		m := sshHostPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, h := range strings.Fields(m[1]) {
			if strings.ContainsAny(h, "*?") || strings.HasPrefix(h, "!") {
				continue
			}
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return ""
	}
	return "ssh config hosts: " + strings.Join(hosts, ", ") + "\n"
}

func scrubHome(s string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return s
	}
	return strings.ReplaceAll(s, home, "~")
}

// parseLLMValues splits the response into lines, trims numbering/bullets,
// and quotes each value when completing a git commit message with an empty
// partial.
func parseLLMValues(resp string, c compctx.CompletionContext) []string {
	wantsQuoted := c.Command == "git" && len(c.SubcommandPath) > 0 && c.SubcommandPath[0] == "commit" &&
		c.OptionName == "--message" && c.Partial == ""

	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(resp, "\n") {
		v := strings.TrimSpace(line)
		v = llmNumberingPrefix.ReplaceAllString(v, "")
		v = strings.Trim(v, "`")
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		if wantsQuoted && !strings.HasPrefix(v, `"`) {
			v = `"` + v + `"`
		}
		out = append(out, v)
		if len(out) >= 5 {
			break
		}
	}
	return out
}

func filterByPartial(values []string, partial string) []string {
	if partial == "" {
		return values
	}
	var out []string
	for _, v := range values {
		if strings.HasPrefix(strings.ToLower(v), strings.ToLower(partial)) {
			out = append(out, v)
		}
	}
	return out
}

func toSuggestions(values []string, max int) []ProviderSuggestion {
	if len(values) > max {
		values = values[:max]
	}
	out := make([]ProviderSuggestion, 0, len(values))
	for _, v := range values {
		out = append(out, ProviderSuggestion{Text: v, Source: SourceLLM, Score: 0.5, Kind: KindArgument})
	}
	return out
}
