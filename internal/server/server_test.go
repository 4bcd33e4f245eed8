package server

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/synapse-sh/synapse/internal/compctx"
	"github.com/synapse-sh/synapse/internal/interactionlog"
	"github.com/synapse-sh/synapse/internal/nltranslate"
	"github.com/synapse-sh/synapse/internal/protocol"
	"github.com/synapse-sh/synapse/internal/providers"
	"github.com/synapse-sh/synapse/internal/session"
	"github.com/synapse-sh/synapse/internal/specstore"
	"github.com/synapse-sh/synapse/internal/workflow"
)

// fakeProvider is a fixed-output Provider stub, mirroring the style used
// throughout the providers package's own tests.
type fakeProvider struct {
	suggestions []providers.ProviderSuggestion
}

func (f fakeProvider) Suggest(ctx context.Context, req providers.ProviderRequest, max int) []providers.ProviderSuggestion {
	return f.suggestions
}

// syncBuffer makes the buffer safe to read from the test goroutine while a
// Phase-2 goroutine may still be writing to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func newTestServer(fast, slow []providers.Provider) (*Server, *syncBuffer) {
	store := specstore.New(specstore.Options{})
	s := New(
		"", "",
		store, nil,
		session.NewManager(),
		workflow.New(""),
		nil,
		nil,
		fast, slow,
	)
	return s, &syncBuffer{}
}

func newWriter(buf *syncBuffer) *connWriter {
	return &connWriter{w: bufio.NewWriter(buf)}
}

func TestDispatchPingRespondsPong(t *testing.T) {
	s, buf := newTestServer(nil, nil)
	w := newWriter(buf)
	closed := s.dispatch(context.Background(), w, &protocol.Request{Type: protocol.RequestPing})
	if closed {
		t.Fatal("ping should not close the connection")
	}
	if got := strings.TrimSpace(buf.String()); got != "pong" {
		t.Fatalf("got %q, want pong", got)
	}
}

func TestDispatchShutdownAcksAndCloses(t *testing.T) {
	s, buf := newTestServer(nil, nil)
	w := newWriter(buf)
	closed := s.dispatch(context.Background(), w, &protocol.Request{Type: protocol.RequestShutdown})
	if !closed {
		t.Fatal("shutdown should close the connection")
	}
	if got := strings.TrimSpace(buf.String()); got != "ack" {
		t.Fatalf("got %q, want ack", got)
	}
}

func TestDispatchUnknownTypeReturnsError(t *testing.T) {
	s, buf := newTestServer(nil, nil)
	w := newWriter(buf)
	s.dispatch(context.Background(), w, &protocol.Request{Type: "bogus"})
	if !strings.HasPrefix(buf.String(), "error\t") {
		t.Fatalf("expected error frame, got %q", buf.String())
	}
}

func TestDispatchSuggestReturnsBestSuggestion(t *testing.T) {
	fast := []providers.Provider{
		fakeProvider{suggestions: []providers.ProviderSuggestion{
			{Text: "git", Source: providers.SourceEnvironment, Score: 0.4, Kind: providers.KindCommand},
			{Text: "grep", Source: providers.SourceHistory, Score: 0.9, Kind: providers.KindCommand},
		}},
	}
	s, buf := newTestServer(fast, nil)
	w := newWriter(buf)
	req := &protocol.Request{Type: protocol.RequestSuggest, SessionID: "s1", Buffer: "g", CursorPos: 1, Cwd: "/tmp"}
	s.dispatch(context.Background(), w, req)

	fields := strings.Split(strings.TrimSpace(buf.String()), "\t")
	if fields[0] != "suggestion" {
		t.Fatalf("expected suggestion frame, got %q", buf.String())
	}
	if fields[1] != "grep" {
		t.Fatalf("expected best-scoring candidate 'grep', got %+v", fields)
	}
	if got := s.sessions.GetLastBuffer("s1"); got != "g" {
		t.Fatalf("expected session buffer recorded, got %q", got)
	}
}

func TestDispatchListSuggestionsRespectsMaxResults(t *testing.T) {
	fast := []providers.Provider{
		fakeProvider{suggestions: []providers.ProviderSuggestion{
			{Text: "a", Source: providers.SourceHistory, Score: 0.9},
			{Text: "b", Source: providers.SourceHistory, Score: 0.8},
			{Text: "c", Source: providers.SourceHistory, Score: 0.7},
		}},
	}
	s, buf := newTestServer(fast, nil)
	w := newWriter(buf)
	req := &protocol.Request{Type: protocol.RequestListSuggestions, SessionID: "s1", Buffer: "x", CursorPos: 1, MaxResults: 2}
	s.dispatch(context.Background(), w, req)

	fields := strings.Split(strings.TrimSpace(buf.String()), "\t")
	if fields[0] != "suggestion_list" || fields[1] != "2" {
		t.Fatalf("expected suggestion_list with count 2, got %+v", fields)
	}
}

func TestDispatchCompleteReturnsCompleteResult(t *testing.T) {
	fast := []providers.Provider{
		fakeProvider{suggestions: []providers.ProviderSuggestion{{Text: "checkout", Source: providers.SourceSpec, Score: 0.5}}},
	}
	s, buf := newTestServer(fast, nil)
	w := newWriter(buf)
	req := &protocol.Request{Type: protocol.RequestComplete, Command: "git", Cwd: "/tmp"}
	s.dispatch(context.Background(), w, req)

	if !strings.HasPrefix(buf.String(), "complete_result\t1\tcheckout\t") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestDispatchInteractionLogsAndAcks(t *testing.T) {
	s, buf := newTestServer(nil, nil)
	w := newWriter(buf)
	req := &protocol.Request{Type: protocol.RequestInteraction, SessionID: "s1", Action: protocol.ActionAccept, Suggestion: "ls", Source: "history", BufferAtAction: "l"}
	s.dispatch(context.Background(), w, req)
	if got := strings.TrimSpace(buf.String()); got != "ack" {
		t.Fatalf("got %q, want ack", got)
	}
}

func TestDispatchCommandExecutedUpdatesSessionAndPredictor(t *testing.T) {
	s, buf := newTestServer(nil, nil)
	w := newWriter(buf)
	s.sessions.RecordAccepted("s1", "git status")

	req := &protocol.Request{Type: protocol.RequestCommandExecuted, SessionID: "s1", Command: "git commit", Cwd: "/tmp"}
	s.dispatch(context.Background(), w, req)

	if got := s.sessions.GetLastAccepted("s1"); got != "git commit" {
		t.Fatalf("expected last accepted updated, got %q", got)
	}
	preds := s.predictor.Predict("git status", 5)
	if len(preds) != 1 || preds[0].Command != "git commit" {
		t.Fatalf("expected predictor to record the transition, got %+v", preds)
	}
}

func TestDispatchCwdChangedPreservesOtherFields(t *testing.T) {
	s, buf := newTestServer(nil, nil)
	w := newWriter(buf)
	s.sessions.UpdateFromRequest("s1", "ls -la", "/old", 3)

	req := &protocol.Request{Type: protocol.RequestCwdChanged, SessionID: "s1", Cwd: "/new"}
	s.dispatch(context.Background(), w, req)

	if got := s.sessions.GetCwd("s1"); got != "/new" {
		t.Fatalf("expected cwd updated, got %q", got)
	}
	if got := s.sessions.GetLastExitCode("s1"); got != 3 {
		t.Fatalf("expected exit code preserved, got %d", got)
	}
}

func TestDispatchNaturalLanguageFlagsDestructive(t *testing.T) {
	chat := func(ctx context.Context, system, user string) (string, error) {
		return "rm -rf /tmp/x\nls -la", nil
	}
	s, buf := newTestServer(nil, nil)
	s.translator = nltranslate.New(chat, nil)
	s.logger = interactionlog.Open(t.TempDir()+"/log.ndjson", 50)
	w := newWriter(buf)

	req := &protocol.Request{Type: protocol.RequestNaturalLanguage, SessionID: "s1", Query: "clean up", Cwd: "/tmp"}
	s.dispatch(context.Background(), w, req)

	if !strings.Contains(buf.String(), "rm -rf /tmp/x") || !strings.Contains(buf.String(), "destructive") {
		t.Fatalf("expected the rm candidate flagged destructive, got %q", buf.String())
	}
}

func TestSchedulePhase2WritesUpdateWhenImproved(t *testing.T) {
	slow := []providers.Provider{
		fakeProvider{suggestions: []providers.ProviderSuggestion{{Text: "main", Source: providers.SourceLLM, Score: 0.95}}},
	}
	s, buf := newTestServer(nil, slow)
	s.logger = interactionlog.Open(t.TempDir()+"/log.ndjson", 50)
	w := newWriter(buf)

	s.sessions.UpdateFromRequest("s1", "git checkout ", "/tmp", 0)
	cctx := compctxArgument()
	preq := providers.ProviderRequest{Context: cctx, Cwd: "/tmp"}

	s.schedulePhase2(w, "s1", preq, cctx, 0.1, "git checkout ", nil)
	waitFor(t, func() bool { return buf.Len() > 0 })

	if !strings.HasPrefix(buf.String(), "update\tmain\t") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestSchedulePhase2DropsWhenBufferIsStale(t *testing.T) {
	slow := []providers.Provider{
		fakeProvider{suggestions: []providers.ProviderSuggestion{{Text: "main", Source: providers.SourceLLM, Score: 0.95}}},
	}
	s, buf := newTestServer(nil, slow)
	s.logger = interactionlog.Open(t.TempDir()+"/log.ndjson", 50)
	w := newWriter(buf)

	s.sessions.UpdateFromRequest("s1", "git checkout develop", "/tmp", 0) // buffer moved on
	cctx := compctxArgument()
	preq := providers.ProviderRequest{Context: cctx, Cwd: "/tmp"}

	s.schedulePhase2(w, "s1", preq, cctx, 0.1, "git checkout ", nil)
	time.Sleep(100 * time.Millisecond)

	if buf.Len() != 0 {
		t.Fatalf("expected no update frame for a stale buffer, got %q", buf.String())
	}
}

// compctxArgument returns a context shaped like Argument{Any}, whose ranker
// weight table gives the llm source a nonzero contribution (spec.md §4.6),
// so a Phase-2 LLM suggestion can actually beat a low Phase-1 score.
func compctxArgument() compctx.CompletionContext {
	c := compctx.Empty()
	c.Command = "git"
	c.Position = compctx.PositionArgument
	c.ExpectedType = compctx.ExpectedType{Kind: compctx.ExpectAny}
	c.ArgIndex = 0
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
