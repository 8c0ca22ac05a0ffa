package core

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/proto"
)

type disconnectRecorder struct {
	mu    sync.Mutex
	conns []*Conn
}

func (r *disconnectRecorder) record(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = append(r.conns, c)
}

func (r *disconnectRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func newTestMonitor(sessions *SessionRegistry, rec *disconnectRecorder) *PresenceMonitor {
	logger := zerolog.Nop()
	return NewPresenceMonitor(sessions, rec.record, &logger, 30*time.Second, time.Minute)
}

func TestSweepPingsEverySession(t *testing.T) {
	sessions := NewSessionRegistry()
	rec := &disconnectRecorder{}

	alicePeer := newFakePeer()
	bobPeer := newFakePeer()
	sessions.InsertIfAbsent("alice", NewConn("c1", alicePeer))
	sessions.InsertIfAbsent("bob", NewConn("c2", bobPeer))

	newTestMonitor(sessions, rec).sweep(time.Now())

	for name, peer := range map[string]*fakePeer{"alice": alicePeer, "bob": bobPeer} {
		env := mustEnvelope(t, peer.Events, proto.KindPing)
		if env.Sender != proto.SenderServer {
			t.Fatalf("%s: ping sender = %q", name, env.Sender)
		}
	}
	if rec.count() != 0 {
		t.Fatalf("no session should be reaped, got %d disconnects", rec.count())
	}
}

func TestSweepReapsSilentSession(t *testing.T) {
	sessions := NewSessionRegistry()
	rec := &disconnectRecorder{}

	stale := NewConn("c1", newFakePeer())
	fresh := NewConn("c2", newFakePeer())
	sessions.InsertIfAbsent("alice", stale)
	sessions.InsertIfAbsent("bob", fresh)

	// alice has been silent past the timeout, bob just spoke.
	sessions.mu.Lock()
	sessions.sessions["alice"].LastSeen = time.Now().Add(-2 * time.Minute)
	sessions.mu.Unlock()
	sessions.Touch("bob")

	m := newTestMonitor(sessions, rec)
	m.sweep(time.Now())

	if rec.count() != 1 {
		t.Fatalf("expected exactly one disconnect, got %d", rec.count())
	}
	rec.mu.Lock()
	reaped := rec.conns[0]
	rec.mu.Unlock()
	if reaped != stale {
		t.Fatal("the silent session must be the one reaped")
	}
}

func TestSweepDisconnectsOnPingFailure(t *testing.T) {
	sessions := NewSessionRegistry()
	rec := &disconnectRecorder{}

	peer := newFakePeer()
	peer.failSend.Store(true)
	sessions.InsertIfAbsent("alice", NewConn("c1", peer))

	newTestMonitor(sessions, rec).sweep(time.Now())

	if rec.count() != 1 {
		t.Fatalf("unreachable peer must be disconnected, got %d", rec.count())
	}
}

func TestPongKeepsSessionAlive(t *testing.T) {
	tr := newTestRouter(t)
	conn, peer := tr.login(t, "alice")

	tr.submit(t, conn, &proto.Envelope{Type: proto.KindPong, Sender: "alice"})
	// Flush the queue so the pong has been processed.
	tr.submit(t, conn, &proto.Envelope{Type: proto.KindPing, Sender: "alice"})
	mustEnvelope(t, peer.Events, proto.KindPong)

	last, ok := tr.sessions.LastSeen("alice")
	if !ok {
		t.Fatal("expected live session")
	}

	rec := &disconnectRecorder{}
	m := newTestMonitor(tr.sessions, rec)
	m.sweep(last.Add(30 * time.Second))

	if rec.count() != 0 {
		t.Fatalf("recently seen session must survive the sweep, got %d disconnects", rec.count())
	}
}
