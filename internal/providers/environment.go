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
)

// EnvironmentProvider suggests PATH executables at CommandName/PipeTarget
// position (spec.md §4.5.4). It refreshes on a background interval and
// serves a sorted, binary-searchable name slice.
type EnvironmentProvider struct {
	mu    sync.RWMutex
	names []string // sorted, deduplicated executable basenames

	pathEnv string
	done    chan struct{}
}

// NewEnvironmentProvider scans PATH (plus VIRTUAL_ENV/bin if set)
// immediately and starts a background refresh every interval.
func NewEnvironmentProvider(interval time.Duration) *EnvironmentProvider {
	p := &EnvironmentProvider{done: make(chan struct{})}
	p.refresh()
	if interval > 0 {
		go p.loop(interval)
	}
	return p
}

func (p *EnvironmentProvider) loop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.refresh()
		case <-p.done:
			return
		}
	}
}

// Close stops the background refresh goroutine.
func (p *EnvironmentProvider) Close() { close(p.done) }

func (p *EnvironmentProvider) refresh() {
	pathEnv := os.Getenv("PATH")
	dirs := filepath.SplitList(pathEnv)
	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		dirs = append(dirs, filepath.Join(venv, "bin"))
	}

	seen := make(map[string]bool)
	var names []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil || info.Mode()&0o111 == 0 {
				continue
			}
			name := e.Name()
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	p.mu.Lock()
	p.names = names
	p.pathEnv = pathEnv
	p.mu.Unlock()
}

// Suggest implements Provider.
func (p *EnvironmentProvider) Suggest(_ context.Context, req ProviderRequest, max int) []ProviderSuggestion {
	ctx := req.Context
	if ctx.Position != compctx.PositionCommandName && ctx.Position != compctx.PositionPipeTarget {
		return nil
	}

	p.mu.RLock()
	names := p.names
	p.mu.RUnlock()

	start := sort.SearchStrings(names, ctx.Partial)
	var out []ProviderSuggestion
	for i := start; i < len(names) && len(out) < max; i++ {
		if !strings.HasPrefix(names[i], ctx.Partial) {
			break
		}
		out = append(out, ProviderSuggestion{
			Text:   ctx.Prefix + names[i],
			Source: SourceEnvironment,
			Score:  0.4 + 0.2*specificity(ctx.Partial, names[i]),
			Kind:   KindCommand,
		})
	}
	return out
}
