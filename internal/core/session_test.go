package core

import (
	"testing"
	"time"
)

func TestSessionRegistryRemoveChecksOwnership(t *testing.T) {
	reg := NewSessionRegistry()

	first := NewConn("c1", newFakePeer())
	if !reg.InsertIfAbsent("alice", first) {
		t.Fatal("first insert must succeed")
	}

	// A stale connection cannot remove the live session.
	stale := NewConn("c0", newFakePeer())
	if reg.Remove("alice", stale) {
		t.Fatal("remove with foreign conn must be a no-op")
	}
	if _, ok := reg.ConnOf("alice"); !ok {
		t.Fatal("session must survive a foreign remove")
	}

	if !reg.Remove("alice", first) {
		t.Fatal("owner remove must succeed")
	}
	// Idempotent.
	if reg.Remove("alice", first) {
		t.Fatal("second remove must be a no-op")
	}
}

func TestSessionRegistryTouch(t *testing.T) {
	reg := NewSessionRegistry()
	reg.InsertIfAbsent("alice", NewConn("c1", newFakePeer()))

	before, ok := reg.LastSeen("alice")
	if !ok {
		t.Fatal("expected session")
	}

	time.Sleep(2 * time.Millisecond)
	reg.Touch("alice")

	after, _ := reg.LastSeen("alice")
	if !after.After(before) {
		t.Fatalf("touch must advance last seen: before=%v after=%v", before, after)
	}

	// Touching an absent user is harmless.
	reg.Touch("ghost")
	if _, ok := reg.LastSeen("ghost"); ok {
		t.Fatal("ghost must not exist")
	}
}

func TestSessionRegistrySnapshotIsACopy(t *testing.T) {
	reg := NewSessionRegistry()
	reg.InsertIfAbsent("alice", NewConn("c1", newFakePeer()))
	reg.InsertIfAbsent("bob", NewConn("c2", newFakePeer()))

	snap := reg.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(snap))
	}

	// Mutating the snapshot must not touch the registry.
	snap[0].Username = "mallory"
	snap[1].Username = "mallory"
	if _, ok := reg.ConnOf("alice"); !ok {
		t.Fatal("alice must still be registered")
	}
	if _, ok := reg.ConnOf("bob"); !ok {
		t.Fatal("bob must still be registered")
	}
}
