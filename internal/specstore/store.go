// Package specstore provides unified command-spec lookup across builtin,
// project-auto-generated, user-project, and discovered sources, with
// generator execution and caching (spec.md §4.3).
package specstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/synapse-sh/synapse/internal/specmodel"
)

// Store is the process-singleton spec resolver. It is safe for concurrent
// use; callers obtain a short-lived snapshot via Lookup rather than holding
// a long-lived reference into its internals.
type Store struct {
	mu sync.RWMutex

	builtin  map[string]specmodel.CommandSpec
	aliases  map[string]string
	cache    *Cache
	scanDepth int

	trustProjectGenerators bool

	projectMu    sync.RWMutex
	projectCache map[string]projectEntry // keyed by project root

	watcher *Watcher
}

type projectEntry struct {
	user     map[string]specmodel.CommandSpec
	auto     map[string]specmodel.CommandSpec
	expires  time.Time
}

// Options configures a new Store.
type Options struct {
	Cache                  *Cache
	TrustProjectGenerators bool
	ScanDepth              int
}

// New constructs a Store with the builtin spec seed set loaded.
func New(opts Options) *Store {
	builtin := builtinSpecs()
	return &Store{
		builtin:                builtin,
		aliases:                builtinAliases(builtin),
		cache:                  opts.Cache,
		scanDepth:               opts.ScanDepth,
		trustProjectGenerators: opts.TrustProjectGenerators,
		projectCache:           make(map[string]projectEntry),
	}
}

// AttachWatcher registers w so every project root this Store resolves gets
// its .synapse/specs/ directory watched for live cache invalidation.
func (s *Store) AttachWatcher(w *Watcher) {
	s.watcher = w
}

// resolvedProjectSpecs returns (user, auto) spec maps for cwd's project
// root, using the cached result if still within TTL.
func (s *Store) resolvedProjectSpecs(cwd string) (map[string]specmodel.CommandSpec, map[string]specmodel.CommandSpec) {
	root, ok := FindProjectRoot(cwd, s.scanDepth)
	if !ok {
		return nil, nil
	}
	if s.watcher != nil {
		s.watcher.WatchRoot(root)
	}

	s.projectMu.RLock()
	entry, found := s.projectCache[root]
	s.projectMu.RUnlock()
	if found && time.Now().Before(entry.expires) {
		return entry.user, entry.auto
	}

	userList := loadUserProjectSpecs(root)
	autoList := discoverAutoProjectSpecs(root)
	user := make(map[string]specmodel.CommandSpec, len(userList))
	for _, c := range userList {
		user[c.Name] = c
	}
	auto := make(map[string]specmodel.CommandSpec, len(autoList))
	for _, c := range autoList {
		auto[c.Name] = c
	}

	entry = projectEntry{user: user, auto: auto, expires: time.Now().Add(projectCacheTTL)}
	s.projectMu.Lock()
	s.projectCache[root] = entry
	s.projectMu.Unlock()
	return user, auto
}

// InvalidateProject drops the cached project-spec set for whatever project
// owns cwd, forcing the next Lookup to re-walk the filesystem. Called by the
// fsnotify watcher on changes under .synapse/specs/, and by clear_cache.
func (s *Store) InvalidateProject(cwd string) {
	root, ok := FindProjectRoot(cwd, s.scanDepth)
	if !ok {
		return
	}
	s.projectMu.Lock()
	delete(s.projectCache, root)
	s.projectMu.Unlock()
}

// Lookup resolves command (name or alias) against, in priority order:
// ProjectUser > ProjectAuto > Builtin > Discovered.
func (s *Store) Lookup(command, cwd string) (specmodel.CommandSpec, bool) {
	if spec, ok := s.lookupDirect(command, cwd); ok {
		return spec, true
	}
	s.mu.RLock()
	canonical, isAlias := s.aliases[command]
	s.mu.RUnlock()
	if isAlias {
		return s.lookupDirect(canonical, cwd)
	}
	return specmodel.CommandSpec{}, false
}

func (s *Store) lookupDirect(command, cwd string) (specmodel.CommandSpec, bool) {
	user, auto := s.resolvedProjectSpecs(cwd)
	if spec, ok := user[command]; ok {
		return spec, true
	}
	if spec, ok := auto[command]; ok {
		return spec, true
	}
	s.mu.RLock()
	spec, ok := s.builtin[command]
	s.mu.RUnlock()
	if ok {
		return spec, true
	}
	if s.cache != nil {
		if spec, ok := s.cache.GetDiscovered(command); ok {
			return spec, true
		}
	}
	return specmodel.CommandSpec{}, false
}

// AllCommandNames returns every command name known across all sources for
// cwd, for use by the CommandName/PipeTarget providers.
func (s *Store) AllCommandNames(cwd string) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}

	user, auto := s.resolvedProjectSpecs(cwd)
	for n := range user {
		add(n)
	}
	for n := range auto {
		add(n)
	}
	s.mu.RLock()
	for n := range s.builtin {
		add(n)
	}
	s.mu.RUnlock()
	if s.cache != nil {
		for _, n := range s.cache.AllDiscoveredNames() {
			add(n)
		}
	}
	sort.Strings(names)
	return names
}

// RunGenerator executes gen with cwd dir, consulting and populating the
// generator cache. ProjectUser generators only execute when
// trustProjectGenerators is true; otherwise they silently yield empty
// (spec.md §4.3).
func (s *Store) RunGenerator(ctx context.Context, gen specmodel.GeneratorSpec, cwd string, fromProjectUser bool) []string {
	if fromProjectUser && !s.trustProjectGenerators {
		return nil
	}
	gen = gen.Normalized()

	if s.cache != nil {
		if values, ok := s.cache.GetGenerator(gen.Command, cwd); ok {
			return values
		}
	}

	values := runGenerator(ctx, gen, cwd)
	if s.cache != nil {
		ttl := time.Duration(gen.CacheTTLSecs) * time.Second
		_ = s.cache.PutGenerator(gen.Command, cwd, values, ttl)
	}
	return values
}

// WarmCommandCache triggers background resolution (project lookup +
// generator priming) for command at cwd without blocking the caller. Errors
// are swallowed; this is purely a latency optimization for the next request.
func (s *Store) WarmCommandCache(command, cwd string) {
	go func() {
		spec, ok := s.Lookup(command, cwd)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for _, arg := range spec.Args {
			if arg.Generator != nil {
				s.RunGenerator(ctx, *arg.Generator, cwd, spec.Source == specmodel.SourceProjectUser)
			}
		}
		for _, opt := range spec.Options {
			if opt.ArgGenerator != nil {
				s.RunGenerator(ctx, *opt.ArgGenerator, cwd, spec.Source == specmodel.SourceProjectUser)
			}
		}
	}()
}
