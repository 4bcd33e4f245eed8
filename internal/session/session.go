// Package session tracks per-connection shell state: cwd, buffer history,
// last suggestion/acceptance, and recent commands (spec.md §4.7).
package session

import (
	"sync"
	"time"
)

// State is one session's mutable record.
type State struct {
	Cwd            string
	LastBuffer     string
	LastSuggestion string
	LastAccepted   string
	RecentCommands []string
	LastExitCode   int
	LastActivity   time.Time
}

const maxRecentCommands = 20

// Manager holds all active sessions behind a single RWMutex, keyed by the
// opaque session id each request carries.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*State)}
}

// getOrCreate returns the session's state, creating it lazily on first use.
// Caller must hold mu.
func (m *Manager) getOrCreate(id string) *State {
	s, ok := m.sessions[id]
	if !ok {
		s = &State{LastActivity: time.Now()}
		m.sessions[id] = s
	}
	return s
}

// UpdateFromRequest records the current buffer/cwd/exit code on every
// incoming request, lazily creating the session.
func (m *Manager) UpdateFromRequest(id, buffer, cwd string, exitCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getOrCreate(id)
	s.LastBuffer = buffer
	s.Cwd = cwd
	s.LastExitCode = exitCode
	s.LastActivity = time.Now()
}

// RecordSuggestion stores the top suggestion returned for the current
// request, used later to detect acceptance.
func (m *Manager) RecordSuggestion(id, suggestion string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getOrCreate(id)
	s.LastSuggestion = suggestion
	s.LastActivity = time.Now()
}

// RecordAccepted records that command was accepted (executed), pushing it
// onto the front of RecentCommands (bounded to maxRecentCommands).
func (m *Manager) RecordAccepted(id, command string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.getOrCreate(id)
	s.LastAccepted = command
	s.RecentCommands = append([]string{command}, s.RecentCommands...)
	if len(s.RecentCommands) > maxRecentCommands {
		s.RecentCommands = s.RecentCommands[:maxRecentCommands]
	}
	s.LastActivity = time.Now()
}

// GetLastBuffer, GetLastAccepted, GetLastExitCode, GetCwd return the
// corresponding field, or the zero value if the session is unknown.
func (m *Manager) GetLastBuffer(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.LastBuffer
	}
	return ""
}

func (m *Manager) GetLastAccepted(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.LastAccepted
	}
	return ""
}

func (m *Manager) GetLastExitCode(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.LastExitCode
	}
	return 0
}

func (m *Manager) GetCwd(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.Cwd
	}
	return ""
}

// RecentCommands returns a copy of the session's recent-commands list,
// most-recent-first.
func (m *Manager) RecentCommands(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	return append([]string(nil), s.RecentCommands...)
}

// Snapshot returns a copy of the session's state, or false if unknown.
func (m *Manager) Snapshot(id string) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return State{}, false
	}
	cp := *s
	cp.RecentCommands = append([]string(nil), s.RecentCommands...)
	return cp, true
}

// PruneInactive removes sessions whose last activity is older than maxIdle.
// Returns the number pruned.
func (m *Manager) PruneInactive(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	n := 0
	for id, s := range m.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
