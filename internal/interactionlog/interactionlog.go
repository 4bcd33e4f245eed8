// Package interactionlog is an append-only newline-delimited JSON event log
// of user interactions with suggestions, rotated by size (spec.md §6.2,
// component 13).
package interactionlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// EventKind labels one logged interaction.
type EventKind string

const (
	KindSuggestion      EventKind = "suggestion"
	KindInteraction     EventKind = "interaction"
	KindCommandExecuted EventKind = "command_executed"
	KindNaturalLanguage EventKind = "natural_language"
)

// Event is one JSONL line. Fields are omitempty so each kind only
// serializes the data relevant to it.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`
	SessionID string    `json:"session_id,omitempty"`

	// suggestion
	Buffer     string  `json:"buffer,omitempty"`
	Suggestion string  `json:"suggestion,omitempty"`
	Source     string  `json:"source,omitempty"`
	Score      float64 `json:"score,omitempty"`

	// interaction
	Action         string `json:"action,omitempty"` // "accept" | "dismiss" | "ignore"
	BufferAtAction string `json:"buffer_at_action,omitempty"`

	// command_executed
	Command string `json:"command,omitempty"`
	Cwd     string `json:"cwd,omitempty"`

	// natural_language
	Query string `json:"query,omitempty"`
}

// Logger is a handle for appending events to one rotating NDJSON file. All
// methods are nil-safe (no-op on a nil receiver) so callers on the inline
// suggestion path never need a nil check before logging (spec.md §7: never
// fail the inline path because a background component failed).
//
// Expectations:
//   - Concurrent writes are serialized behind a mutex
//   - A write that pushes the file past maxSizeBytes rotates it first
//   - Rotation failures are logged, never returned — logging degrades,
//     it never blocks the caller
type Logger struct {
	mu           sync.Mutex
	path         string
	maxSizeBytes int64
	f            *os.File
	size         int64
}

// Open opens (creating if absent) the log file at path, rotating by
// maxSizeMB. A nil *Logger is returned if the directory cannot be created
// or the file cannot be opened; callers pass the nil receiver to every
// method safely.
func Open(path string, maxSizeMB int) *Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[INTERACTIONLOG] could not create dir for %s: %v", path, err)
		return nil
	}
	l := &Logger{path: path, maxSizeBytes: int64(maxSizeMB) * 1024 * 1024}
	if err := l.openFile(); err != nil {
		log.Printf("[INTERACTIONLOG] could not open %s: %v", path, err)
		return nil
	}
	return l
}

func (l *Logger) openFile() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	l.f = f
	l.size = info.Size()
	return nil
}

// rotate renames the current file aside with a timestamp suffix and opens a
// fresh one. Callers hold l.mu.
func (l *Logger) rotate() {
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}
	rotated := fmt.Sprintf("%s.%s", l.path, time.Now().UTC().Format("20060102T150405"))
	log.Printf("[INTERACTIONLOG] rotating %s (%s)", l.path, humanize.Bytes(uint64(l.size)))
	if err := os.Rename(l.path, rotated); err != nil {
		log.Printf("[INTERACTIONLOG] rotate rename failed: %v", err)
	}
	if err := l.openFile(); err != nil {
		log.Printf("[INTERACTIONLOG] reopen after rotate failed: %v", err)
	}
}

func (l *Logger) write(e Event) {
	if l == nil {
		return
	}
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[INTERACTIONLOG] marshal error: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	if l.maxSizeBytes > 0 && l.size+int64(len(data))+1 > l.maxSizeBytes {
		l.rotate()
		if l.f == nil {
			return
		}
	}
	n, err := fmt.Fprintf(l.f, "%s\n", data)
	if err != nil {
		log.Printf("[INTERACTIONLOG] write error: %v", err)
		return
	}
	l.size += int64(n)
}

// Suggestion records a Phase-1 (or Phase-2 update) suggestion emitted to a
// session.
func (l *Logger) Suggestion(sessionID, buffer, suggestion, source string, score float64) {
	l.write(Event{Kind: KindSuggestion, SessionID: sessionID, Buffer: buffer, Suggestion: suggestion, Source: source, Score: score})
}

// Interaction records user feedback on a suggestion (accept/dismiss/ignore).
func (l *Logger) Interaction(sessionID, action, suggestion, source, bufferAtAction string) {
	l.write(Event{Kind: KindInteraction, SessionID: sessionID, Action: action, Suggestion: suggestion, Source: source, BufferAtAction: bufferAtAction})
}

// CommandExecuted records a post-execution event used to update the
// workflow bigram table and history provider.
func (l *Logger) CommandExecuted(sessionID, command, cwd string) {
	l.write(Event{Kind: KindCommandExecuted, SessionID: sessionID, Command: command, Cwd: cwd})
}

// NaturalLanguage records an NL-translation query.
func (l *Logger) NaturalLanguage(sessionID, query string) {
	l.write(Event{Kind: KindNaturalLanguage, SessionID: sessionID, Query: query})
}

// Close flushes and closes the underlying file. Safe on a nil receiver.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
}
