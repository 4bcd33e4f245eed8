// Package server hosts the local stream socket that shells talk to: one
// listener, a framed per-connection request/response loop, and the Phase-2
// background enrichment pass (spec.md §4.11, §5, §6.1).
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/interactionlog"
	"github.com/synapse-sh/synapse/internal/metrics"
	"github.com/synapse-sh/synapse/internal/nltranslate"
	"github.com/synapse-sh/synapse/internal/protocol"
	"github.com/synapse-sh/synapse/internal/providers"
	"github.com/synapse-sh/synapse/internal/ranker"
	"github.com/synapse-sh/synapse/internal/session"
	"github.com/synapse-sh/synapse/internal/specmodel"
	"github.com/synapse-sh/synapse/internal/specstore"
	"github.com/synapse-sh/synapse/internal/workflow"
)

const (
	defaultMaxPerProvider = 20
	defaultMaxConcurrent  = 8
	completeMaxResults    = 25
	defaultListMax        = 10
	phase2Timeout         = 3 * time.Second
	maxCwdEntriesForNL    = 50
	maxFlagsPerTool       = 20
)

// Server owns the shared singletons and the connection-accept loop. A
// single Server instance is process-wide; every connection shares it by
// reference (spec.md §5: "one instance shared by reference, internally
// synchronized").
type Server struct {
	SocketPath string
	PidPath    string

	store     *specstore.Store
	cache     *specstore.Cache
	sessions  *session.Manager
	predictor *workflow.Predictor
	logger    *interactionlog.Logger

	fastProviders []providers.Provider // history, spec, filesystem, environment, workflow
	slowProviders []providers.Provider // Phase-2: LLM argument enrichment

	metrics *metrics.Collector // nil when the debug metrics endpoint is disabled

	translatorMu sync.RWMutex
	translator   *nltranslate.Translator

	inflightMu sync.Mutex
	inflight   map[string]bool

	listener net.Listener
	cancel   context.CancelFunc
	once     sync.Once
}

// New constructs a Server. fastProviders feed the synchronous suggest path;
// slowProviders run only in the Phase-2 background pass.
func New(socketPath, pidPath string, store *specstore.Store, cache *specstore.Cache, sessions *session.Manager, predictor *workflow.Predictor, translator *nltranslate.Translator, logger *interactionlog.Logger, fastProviders, slowProviders []providers.Provider) *Server {
	return &Server{
		SocketPath:    socketPath,
		PidPath:       pidPath,
		store:         store,
		cache:         cache,
		sessions:      sessions,
		predictor:     predictor,
		translator:    translator,
		logger:        logger,
		fastProviders: fastProviders,
		slowProviders: slowProviders,
		inflight:      make(map[string]bool),
	}
}

// SetMetrics attaches a Collector so dispatch counts, Phase-2 updates, and
// provider timeouts are recorded. Safe to skip entirely; a nil metrics
// collector means every counter increment below is a no-op.
func (s *Server) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

func (s *Server) countRequest(reqType string) {
	if s.metrics != nil {
		s.metrics.RequestsServed.WithLabelValues(reqType).Inc()
	}
}

func (s *Server) countProviderTimeout() {
	if s.metrics != nil {
		s.metrics.ProviderTimeouts.Inc()
	}
}

// Listen binds the unix socket, removing a stale file left by a crashed
// prior instance, and writes the PID file alongside it. It refuses to start
// while another instance still accepts connections on the socket.
func (s *Server) Listen() error {
	if conn, err := net.Dial("unix", s.SocketPath); err == nil {
		conn.Close()
		return fmt.Errorf("server: another instance is already listening on %s", s.SocketPath)
	}
	_ = os.Remove(s.SocketPath)
	if dir := filepath.Dir(s.SocketPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("server: creating socket dir: %w", err)
		}
	}
	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("server: listening on %s: %w", s.SocketPath, err)
	}
	s.listener = ln
	if s.PidPath != "" {
		if err := os.WriteFile(s.PidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
			log.Printf("[SERVER] could not write pid file %s: %v", s.PidPath, err)
		}
	}
	return nil
}

// Serve accepts connections until ctx is canceled or a shutdown request
// arrives, then closes the listener and returns. Each connection runs in
// its own goroutine and outlives Serve's return only for in-flight Phase-2
// writes, which fail silently once the connection is gone.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[SERVER] accept error: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// Shutdown cancels the server's context, stopping the accept loop and any
// background intervals tied to it (spec.md §4.12).
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) cleanup() {
	s.once.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		_ = os.Remove(s.SocketPath)
		if s.PidPath != "" {
			_ = os.Remove(s.PidPath)
		}
	})
}

// connWriter serializes frame writes on one connection so both the direct
// response path and Phase-2 tasks can send frames without interleaving
// (spec.md §5: "Per-connection writer is wrapped in a mutex").
type connWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (cw *connWriter) writeLine(line string) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if _, err := cw.w.WriteString(line); err != nil {
		return err
	}
	if err := cw.w.WriteByte('\n'); err != nil {
		return err
	}
	return cw.w.Flush()
}

// handleConn runs IDLE -> READ_LINE -> PARSE -> DISPATCH -> WRITE_RESPONSE
// -> IDLE until the connection errs or closes (spec.md §4.11's state
// machine).
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	writer := &connWriter{w: bufio.NewWriter(conn)}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var req protocol.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = writer.writeLine(protocol.EncodeError("parse error: " + err.Error()))
			continue
		}
		if s.dispatch(ctx, writer, &req) {
			return
		}
	}
}

// dispatch handles one request, writing its response synchronously and
// optionally launching a Phase-2 task. It returns true when the connection
// should close (a shutdown request was handled).
func (s *Server) dispatch(ctx context.Context, w *connWriter, req *protocol.Request) bool {
	s.countRequest(string(req.Type))
	switch req.Type {
	case protocol.RequestPing:
		_ = w.writeLine(protocol.EncodePong())

	case protocol.RequestShutdown:
		_ = w.writeLine(protocol.EncodeAck())
		s.Shutdown()
		return true

	case protocol.RequestSuggest:
		s.handleSuggest(ctx, w, req)

	case protocol.RequestListSuggestions:
		s.handleListSuggestions(ctx, req, w)

	case protocol.RequestComplete:
		s.handleComplete(ctx, req, w)

	case protocol.RequestRunGenerator:
		s.handleRunGenerator(ctx, req, w)

	case protocol.RequestInteraction:
		s.logger.Interaction(req.SessionID, string(req.Action), req.Suggestion, req.Source, req.BufferAtAction)
		_ = w.writeLine(protocol.EncodeAck())

	case protocol.RequestCommandExecuted:
		s.handleCommandExecuted(req)
		_ = w.writeLine(protocol.EncodeAck())

	case protocol.RequestNaturalLanguage:
		s.handleNaturalLanguage(ctx, req, w)

	case protocol.RequestCwdChanged:
		s.handleCwdChanged(req)
		_ = w.writeLine(protocol.EncodeAck())

	case protocol.RequestReloadConfig:
		_ = w.writeLine(protocol.EncodeAck())

	case protocol.RequestClearCache:
		if s.cache != nil {
			_ = s.cache.Clear()
		}
		if req.Cwd != "" {
			s.store.InvalidateProject(req.Cwd)
		}
		_ = w.writeLine(protocol.EncodeAck())

	default:
		_ = w.writeLine(protocol.EncodeError("unknown request type: " + string(req.Type)))
	}
	return false
}

func exitCodeOf(req *protocol.Request) int {
	if req.LastExitCode != nil {
		return *req.LastExitCode
	}
	return 0
}

// recentsFor prefers the request's own recent_commands, falling back to the
// session manager's recorded history.
func (s *Server) recentsFor(req *protocol.Request) []string {
	if len(req.RecentCommands) > 0 {
		return req.RecentCommands
	}
	return s.sessions.RecentCommands(req.SessionID)
}

func truncateBuffer(buffer string, cursor int) string {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(buffer) {
		cursor = len(buffer)
	}
	return buffer[:cursor]
}

func (s *Server) buildProviderRequest(req *protocol.Request, cctx compctx.CompletionContext, fuzzyEnabled bool) providers.ProviderRequest {
	return providers.ProviderRequest{
		Context:        cctx,
		Cwd:            req.Cwd,
		RecentCommands: s.recentsFor(req),
		LastExitCode:   exitCodeOf(req),
		FuzzyEnabled:   fuzzyEnabled,
	}
}

func (s *Server) handleSuggest(ctx context.Context, w *connWriter, req *protocol.Request) {
	exitCode := exitCodeOf(req)
	s.sessions.UpdateFromRequest(req.SessionID, req.Buffer, req.Cwd, exitCode)

	cctx := compctx.Build(truncateBuffer(req.Buffer, req.CursorPos), req.Cwd, s.store)
	preq := s.buildProviderRequest(req, cctx, true)
	recents := preq.RecentCommands

	suggestions := providers.Run(ctx, s.fastProviders, preq, defaultMaxPerProvider, defaultMaxConcurrent, s.countProviderTimeout)
	best, ok := ranker.Best(cctx, suggestions, recents)

	var item protocol.SuggestionItem
	var phase1Score float64
	if ok {
		item = protocol.SuggestionItem{Text: best.Text, Source: string(best.Source), Description: best.Description, Kind: string(best.Kind)}
		phase1Score = best.FinalScore
		s.sessions.RecordSuggestion(req.SessionID, best.Text)
		s.logger.Suggestion(req.SessionID, req.Buffer, best.Text, string(best.Source), best.FinalScore)
	}
	_ = w.writeLine(protocol.EncodeSuggestion(protocol.TagSuggestion, item))

	if len(s.slowProviders) > 0 {
		s.schedulePhase2(w, req.SessionID, preq, cctx, phase1Score, req.Buffer, recents)
	}
}

func (s *Server) handleListSuggestions(ctx context.Context, req *protocol.Request, w *connWriter) {
	exitCode := exitCodeOf(req)
	s.sessions.UpdateFromRequest(req.SessionID, req.Buffer, req.Cwd, exitCode)

	cctx := compctx.Build(truncateBuffer(req.Buffer, req.CursorPos), req.Cwd, s.store)
	preq := s.buildProviderRequest(req, cctx, true)

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultListMax
	}

	suggestions := providers.Run(ctx, s.fastProviders, preq, defaultMaxPerProvider, defaultMaxConcurrent, s.countProviderTimeout)
	ranked := ranker.Rank(cctx, suggestions, preq.RecentCommands, maxResults)

	items := make([]protocol.SuggestionItem, len(ranked))
	for i, r := range ranked {
		items[i] = protocol.SuggestionItem{Text: r.Text, Source: string(r.Source), Description: r.Description, Kind: string(r.Kind)}
	}
	if len(ranked) > 0 {
		s.sessions.RecordSuggestion(req.SessionID, ranked[0].Text)
		s.logger.Suggestion(req.SessionID, req.Buffer, ranked[0].Text, string(ranked[0].Source), ranked[0].FinalScore)
	}
	_ = w.writeLine(protocol.EncodeSuggestionList(items))
}

func (s *Server) handleComplete(ctx context.Context, req *protocol.Request, w *connWriter) {
	words := append([]string{req.Command}, req.Context...)
	buffer := strings.Join(words, " ") + " "

	cctx := compctx.Build(buffer, req.Cwd, s.store)
	preq := providers.ProviderRequest{Context: cctx, Cwd: req.Cwd}

	suggestions := providers.Run(ctx, s.fastProviders, preq, completeMaxResults, defaultMaxConcurrent, s.countProviderTimeout)
	ranked := ranker.Rank(cctx, suggestions, nil, completeMaxResults)

	values := make([]protocol.CompleteValue, len(ranked))
	for i, r := range ranked {
		values[i] = protocol.CompleteValue{Value: r.Text, Description: r.Description}
	}
	_ = w.writeLine(protocol.EncodeCompleteResult(values))
}

func (s *Server) handleRunGenerator(ctx context.Context, req *protocol.Request, w *connWriter) {
	gen := specmodel.GeneratorSpec{Command: req.Command, StripPrefix: req.StripPrefix, SplitOn: req.SplitOn}
	values := s.store.RunGenerator(ctx, gen, req.Cwd, false)

	cvs := make([]protocol.CompleteValue, len(values))
	for i, v := range values {
		cvs[i] = protocol.CompleteValue{Value: v}
	}
	_ = w.writeLine(protocol.EncodeCompleteResult(cvs))
}

func (s *Server) handleCommandExecuted(req *protocol.Request) {
	prev := ""
	if recents := s.sessions.RecentCommands(req.SessionID); len(recents) > 0 {
		prev = recents[0]
	}
	s.sessions.RecordAccepted(req.SessionID, req.Command)
	s.predictor.Record(prev, req.Command)
	s.logger.CommandExecuted(req.SessionID, req.Command, req.Cwd)
	s.store.WarmCommandCache(workflow.Normalize(req.Command), req.Cwd)
}

func (s *Server) handleCwdChanged(req *protocol.Request) {
	buffer, exitCode := "", 0
	if snap, ok := s.sessions.Snapshot(req.SessionID); ok {
		buffer, exitCode = snap.LastBuffer, snap.LastExitCode
	}
	s.sessions.UpdateFromRequest(req.SessionID, buffer, req.Cwd, exitCode)
}

func (s *Server) handleNaturalLanguage(ctx context.Context, req *protocol.Request, w *connWriter) {
	s.logger.NaturalLanguage(req.SessionID, req.Query)

	env := nltranslate.EnvInfo{
		Shell:          envHint(req.EnvHints, "shell", "zsh"),
		OS:             envHint(req.EnvHints, "os", runtime.GOOS),
		Cwd:            req.Cwd,
		ProjectType:    envHint(req.EnvHints, "project_type", ""),
		GitBranch:      envHint(req.EnvHints, "git_branch", ""),
		PathTools:      splitCSV(req.EnvHints["path_tools"]),
		RunnerCommands: splitCSV(req.EnvHints["runner_commands"]),
		CwdEntries:     listCwdEntries(req.Cwd, maxCwdEntriesForNL),
		RecentCommands: s.recentsFor(req),
	}
	flags := recognizedFlagsFor(req.Query, req.Cwd, s.store)

	s.translatorMu.RLock()
	translator := s.translator
	s.translatorMu.RUnlock()
	if translator == nil {
		_ = w.writeLine(protocol.EncodeError("natural language translation is disabled"))
		return
	}

	candidates, err := translator.Translate(ctx, req.Query, env, flags, defaultListMax)
	if err != nil {
		_ = w.writeLine(protocol.EncodeError(err.Error()))
		return
	}

	items := make([]protocol.SuggestionItem, len(candidates))
	for i, c := range candidates {
		desc := ""
		if c.Destructive {
			desc = "destructive"
		}
		items[i] = protocol.SuggestionItem{Text: c.Command, Source: "llm", Description: desc, Kind: "command"}
	}
	_ = w.writeLine(protocol.EncodeSuggestionList(items))
}

func envHint(hints map[string]string, key, fallback string) string {
	if v, ok := hints[key]; ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func listCwdEntries(cwd string, max int) []string {
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if len(names) > max {
		names = names[:max]
	}
	return names
}

// recognizedFlagsFor scans query for tokens that resolve to a known
// command spec and collects that command's option flags, capped per tool
// (spec.md §4.10: "recognized flags for tools referenced in the query").
func recognizedFlagsFor(query, cwd string, store *specstore.Store) nltranslate.RecognizedFlags {
	flags := make(nltranslate.RecognizedFlags)
	for _, tok := range strings.Fields(query) {
		tok = strings.ToLower(tok)
		if _, ok := flags[tok]; ok {
			continue
		}
		spec, ok := store.Lookup(tok, cwd)
		if !ok {
			continue
		}
		var names []string
		for _, o := range spec.Options {
			switch {
			case o.Long != "":
				names = append(names, o.Long)
			case o.Short != "":
				names = append(names, o.Short)
			}
			if len(names) >= maxFlagsPerTool {
				break
			}
		}
		if len(names) > 0 {
			flags[tok] = names
		}
	}
	return flags
}

// schedulePhase2 runs the deferred (LLM argument) providers against the
// same request and writes an `update` frame only if it beats the Phase-1
// best and the session hasn't moved on (spec.md §4.11, §5). A per-session,
// per-slot in-flight set deduplicates concurrent LLM workflow calls.
func (s *Server) schedulePhase2(w *connWriter, sessionID string, preq providers.ProviderRequest, cctx compctx.CompletionContext, phase1Score float64, bufferSnapshot string, recents []string) {
	key := sessionID + "|" + cctx.Command + "|" + strings.Join(cctx.SubcommandPath, "/") + "|" + cctx.OptionName + "|" + strconv.Itoa(cctx.ArgIndex) + "|" + cctx.Partial

	s.inflightMu.Lock()
	if s.inflight[key] {
		s.inflightMu.Unlock()
		return
	}
	s.inflight[key] = true
	s.inflightMu.Unlock()

	go func() {
		defer func() {
			s.inflightMu.Lock()
			delete(s.inflight, key)
			s.inflightMu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), phase2Timeout)
		defer cancel()

		suggestions := providers.Run(ctx, s.slowProviders, preq, defaultMaxPerProvider, defaultMaxConcurrent, s.countProviderTimeout)
		best, ok := ranker.Best(cctx, suggestions, recents)
		if !ok || best.FinalScore <= phase1Score {
			return // DROP: no improvement
		}
		if s.sessions.GetLastBuffer(sessionID) != bufferSnapshot {
			return // DROP: user has moved on; stale updates are forbidden by design
		}

		item := protocol.SuggestionItem{Text: best.Text, Source: string(best.Source), Description: best.Description, Kind: string(best.Kind)}
		if err := w.writeLine(protocol.EncodeSuggestion(protocol.TagUpdate, item)); err != nil {
			return
		}
		if s.metrics != nil {
			s.metrics.Phase2UpdatesFired.Inc()
		}
		s.logger.Suggestion(sessionID, bufferSnapshot, best.Text, string(best.Source), best.FinalScore)
	}()
}
