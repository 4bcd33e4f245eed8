package providers

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/tools"
)

// recursiveGlobScanCap bounds how many matches of a "**" recursive descent
// pattern are kept; the walk itself covers the whole tree before the cap is
// applied.
const recursiveGlobScanCap = 200

type dirListing struct {
	entries []os.DirEntry
	loaded  time.Time
}

const filesystemCacheTTL = 5 * time.Second

// FilesystemProvider lists directory entries under the partial being typed
// (spec.md §4.5.2).
type FilesystemProvider struct {
	mu    sync.Mutex
	cache map[string]dirListing
}

func NewFilesystemProvider() *FilesystemProvider {
	return &FilesystemProvider{cache: make(map[string]dirListing)}
}

func (p *FilesystemProvider) applies(ctx compctx.CompletionContext) bool {
	if ctx.Position == compctx.PositionRedirect {
		return true
	}
	return ctx.ExpectedType.Kind == compctx.ExpectFilePath || ctx.ExpectedType.Kind == compctx.ExpectDirectory
}

// Suggest implements Provider.
func (p *FilesystemProvider) Suggest(_ context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	ctx := req.Context
	if !p.applies(ctx) {
		return nil
	}

	dirPart, namePart := splitPathPartial(ctx.Partial)
	lookupDir := resolveDir(dirPart, req.Cwd)

	if strings.Contains(dirPart, "**/") || strings.HasPrefix(namePart, "**") {
		return p.suggestRecursiveGlob(ctx, dirPart, namePart, req.Cwd, max)
	}

	entries := p.list(lookupDir)
	showHidden := strings.HasPrefix(namePart, ".")
	wantDirOnly := ctx.ExpectedType.Kind == compctx.ExpectDirectory

	var out []ProviderSuggestion
	for _, e := range entries {
		name := e.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, namePart) {
			continue
		}
		if wantDirOnly && !e.IsDir() {
			continue
		}

		display := dirPart + name
		if e.IsDir() {
			display += "/"
		}

		specificity := 0.0
		if len(namePart) > 0 {
			specificity = 0.1 * float64(len(namePart)) / float64(len(namePart)+len(name)+1)
		}

		out = append(out, ProviderSuggestion{
			Text:   ctx.Prefix + escapeForQuoteContext(display, ctx.Prefix),
			Source: SourceFilesystem,
			Score:  0.5 + specificity,
			Kind:   KindFile,
		})
		if len(out) >= max*4 {
			break // cap scan before sort/truncate below
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// suggestRecursiveGlob handles zsh's "**/" recursive-descent glob: the
// partial names a pattern to match anywhere under the directory preceding
// the "**", not just one path segment away.
func (p *FilesystemProvider) suggestRecursiveGlob(ctx compctx.CompletionContext, dirPart, namePart string, cwd string, max int) []ProviderSuggestion {
	root := resolveDir(strings.TrimSuffix(strings.SplitN(dirPart, "**/", 2)[0], "/"), cwd)
	pattern := strings.TrimPrefix(namePart, "**")
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		pattern = "*"
	}

	matches, err := tools.GlobFiles(root, pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}
	if len(matches) > recursiveGlobScanCap {
		matches = matches[:recursiveGlobScanCap]
	}

	var out []ProviderSuggestion
	for _, m := range matches {
		rel, err := filepath.Rel(cwd, m)
		if err != nil {
			rel = m
		}
		out = append(out, ProviderSuggestion{
			Text:   ctx.Prefix + escapeForQuoteContext(rel, ctx.Prefix),
			Source: SourceFilesystem,
			Score:  0.4,
			Kind:   KindFile,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func (p *FilesystemProvider) list(dir string) []os.DirEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.cache[dir]; ok && time.Since(l.loaded) < filesystemCacheTTL {
		return l.entries
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		entries = nil
	}
	p.cache[dir] = dirListing{entries: entries, loaded: time.Now()}
	return entries
}

// splitPathPartial separates a partial path into its directory portion
// (kept verbatim, including a trailing slash) and the final name fragment
// being completed.
func splitPathPartial(partial string) (dirPart, namePart string) {
	idx := strings.LastIndex(partial, "/")
	if idx < 0 {
		return "", partial
	}
	return partial[:idx+1], partial[idx+1:]
}

func resolveDir(dirPart, cwd string) string {
	if dirPart == "" {
		return cwd
	}
	expanded := dirPart
	if strings.HasPrefix(expanded, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = home + strings.TrimPrefix(expanded, "~")
		}
	}
	if filepath.IsAbs(expanded) {
		return expanded
	}
	return filepath.Join(cwd, expanded)
}

// escapeForQuoteContext escapes whitespace in name for the quoting context
// implied by prefix: inside an open double quote, spaces are left literal
// (the closing quote is the caller's concern); otherwise each space is
// backslash-escaped.
func escapeForQuoteContext(name, prefix string) string {
	if strings.Count(prefix, `"`)%2 == 1 {
		return name
	}
	return strings.ReplaceAll(name, " ", `\ `)
}
