package session

import (
	"testing"
	"time"
)

func TestUpdateFromRequestCreatesLazily(t *testing.T) {
	m := NewManager()
	m.UpdateFromRequest("s1", "git sta", "/home/me", 0)
	if got := m.GetLastBuffer("s1"); got != "git sta" {
		t.Fatalf("got %q", got)
	}
	if got := m.GetCwd("s1"); got != "/home/me" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownSessionReturnsZeroValues(t *testing.T) {
	m := NewManager()
	if got := m.GetLastBuffer("missing"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := m.GetLastExitCode("missing"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestRecordAcceptedPushesToFrontAndBounds(t *testing.T) {
	m := NewManager()
	for i := 0; i < maxRecentCommands+5; i++ {
		m.RecordAccepted("s1", "cmd")
	}
	recents := m.RecentCommands("s1")
	if len(recents) != maxRecentCommands {
		t.Fatalf("expected recents bounded to %d, got %d", maxRecentCommands, len(recents))
	}

	m2 := NewManager()
	m2.RecordAccepted("s1", "first")
	m2.RecordAccepted("s1", "second")
	recents2 := m2.RecentCommands("s1")
	if len(recents2) != 2 || recents2[0] != "second" || recents2[1] != "first" {
		t.Fatalf("expected most-recent-first order, got %+v", recents2)
	}
}

func TestPruneInactive(t *testing.T) {
	m := NewManager()
	m.UpdateFromRequest("old", "buf", "/tmp", 0)
	m.mu.Lock()
	m.sessions["old"].LastActivity = time.Now().Add(-time.Hour)
	m.mu.Unlock()
	m.UpdateFromRequest("fresh", "buf", "/tmp", 0)

	n := m.PruneInactive(time.Minute)
	if n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	if _, ok := m.Snapshot("old"); ok {
		t.Fatalf("expected old session to be pruned")
	}
	if _, ok := m.Snapshot("fresh"); !ok {
		t.Fatalf("expected fresh session to survive")
	}
}

func TestSnapshotCopiesRecentCommandsIndependently(t *testing.T) {
	m := NewManager()
	m.RecordAccepted("s1", "git push")
	snap, ok := m.Snapshot("s1")
	if !ok {
		t.Fatal("expected session to exist")
	}
	snap.RecentCommands[0] = "mutated"
	if m.RecentCommands("s1")[0] != "git push" {
		t.Fatalf("snapshot mutation leaked into manager state")
	}
}
