package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/proto"
	"github.com/lanchat/lanchat-server/internal/store"
)

// fakePeer collects sent envelopes on a buffered channel and can be told to
// fail sends, standing in for a stale socket.
type fakePeer struct {
	Events   chan *proto.Envelope
	failSend atomic.Bool
	closed   atomic.Bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{Events: make(chan *proto.Envelope, 64)}
}

func (p *fakePeer) Send(env *proto.Envelope) error {
	if p.failSend.Load() || p.closed.Load() {
		return errors.New("peer gone")
	}
	select {
	case p.Events <- env:
		return nil
	default:
		return errors.New("outbound queue full")
	}
}

func (p *fakePeer) Close() error {
	p.closed.Store(true)
	return nil
}

func (p *fakePeer) RemoteAddr() string { return "test:0" }

// memStore is an in-memory store.Store for router tests.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*store.User
	messages []store.ChatMessage
	offline  map[string][]store.ChatMessage
	groups   map[string]store.Group

	failSaves bool
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*store.User),
		offline: make(map[string][]store.ChatMessage),
		groups:  make(map[string]store.Group),
	}
}

func (s *memStore) AddUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		s.users[username] = &store.User{Username: username, Status: store.StatusOffline, LastSeen: time.Now()}
	}
	return nil
}

func (s *memStore) SetUserStatus(_ context.Context, username string, status store.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	u.LastSeen = time.Now()
	return nil
}

func (s *memStore) ListUsers(_ context.Context) ([]store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memStore) SaveMessage(_ context.Context, msg *store.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return errors.New("storage down")
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) GetHistory(_ context.Context, a, b string, limit int) ([]store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.ChatMessage
	for _, m := range s.messages {
		switch {
		case a == b && m.Recipient == a:
			out = append(out, m)
		case a != b && ((m.Sender == a && m.Recipient == b) || (m.Sender == b && m.Recipient == a)):
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) QueueOffline(_ context.Context, username string, msg *store.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline[username] = append(s.offline[username], *msg)
	return nil
}

func (s *memStore) DrainOffline(_ context.Context, username string) ([]store.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.offline[username]
	delete(s.offline, username)
	return msgs, nil
}

func (s *memStore) CreateGroup(_ context.Context, g *store.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaves {
		return errors.New("storage down")
	}
	s.groups[g.GroupID] = *g
	return nil
}

func (s *memStore) GroupsFor(_ context.Context, username string) ([]store.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Group
	for _, g := range s.groups {
		for _, m := range g.Members {
			if m == username {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) ListGroups(_ context.Context) ([]store.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) offlineCount(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offline[username])
}

func (s *memStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// testRouter bundles a running router with its collaborators.
type testRouter struct {
	router    *Router
	sessions  *SessionRegistry
	groups    *GroupRegistry
	transfers *TransferManager
	store     *memStore
	ctx       context.Context
}

func newTestRouter(t *testing.T) *testRouter {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	transfers, err := NewTransferManager(t.TempDir())
	if err != nil {
		t.Fatalf("transfer manager: %v", err)
	}

	logger := zerolog.Nop()
	tr := &testRouter{
		sessions:  NewSessionRegistry(),
		groups:    NewGroupRegistry(),
		transfers: transfers,
		store:     newMemStore(),
		ctx:       ctx,
	}
	tr.router = NewRouter(tr.sessions, tr.groups, transfers, tr.store, &logger, RouterConfig{})
	go tr.router.Run(ctx)
	return tr
}

// login connects a fake peer and authenticates it, failing the test unless
// the login is acknowledged as successful.
func (tr *testRouter) login(t *testing.T, username string) (*Conn, *fakePeer) {
	t.Helper()

	peer := newFakePeer()
	conn := NewConn("conn-"+username, peer)
	tr.submit(t, conn, &proto.Envelope{
		Type:    proto.KindLogin,
		Sender:  username,
		Content: proto.LoginContent{Username: username},
	})

	ack := mustEnvelope(t, peer.Events, proto.KindLoginResponse)
	var resp proto.LoginResponseContent
	if err := ack.ContentAs(&resp); err != nil {
		t.Fatalf("login response content: %v", err)
	}
	if !resp.Success {
		t.Fatalf("login for %s failed: %s", username, resp.Error)
	}
	return conn, peer
}

func (tr *testRouter) submit(t *testing.T, conn *Conn, env *proto.Envelope) {
	t.Helper()
	if err := tr.router.Submit(tr.ctx, conn, env); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

// mustEnvelope drains ch until an envelope of the wanted kind shows up.
func mustEnvelope(t *testing.T, ch <-chan *proto.Envelope, kind proto.Kind) *proto.Envelope {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-ch:
			if env == nil {
				continue
			}
			if env.Type == kind {
				return env
			}
		case <-deadline:
			t.Fatalf("expected envelope kind %q not received", kind)
			return nil
		}
	}
}

// mustNoEnvelope asserts that no envelope of the given kind arrives within
// the grace window.
func mustNoEnvelope(t *testing.T, ch <-chan *proto.Envelope, kind proto.Kind) {
	t.Helper()

	deadline := time.After(150 * time.Millisecond)
	for {
		select {
		case env := <-ch:
			if env != nil && env.Type == kind {
				t.Fatalf("unexpected envelope kind %q: %+v", kind, env)
			}
		case <-deadline:
			return
		}
	}
}
