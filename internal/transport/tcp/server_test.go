package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/core"
	"github.com/lanchat/lanchat-server/internal/proto"
	"github.com/lanchat/lanchat-server/internal/store/sqlite"
)

// testServer boots a real listener on a random port backed by an in-memory
// database.
func testServer(t *testing.T) *Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	transfers, err := core.NewTransferManager(t.TempDir())
	if err != nil {
		t.Fatalf("transfers: %v", err)
	}

	logger := zerolog.Nop()
	router := core.NewRouter(core.NewSessionRegistry(), core.NewGroupRegistry(), transfers, st, &logger, core.RouterConfig{})
	go router.Run(ctx)

	srv := NewServer("127.0.0.1:0", router, &logger, 64, 5*time.Second)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ctx)
	return srv
}

type client struct {
	t    *testing.T
	conn net.Conn
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(env *proto.Envelope) {
	c.t.Helper()
	if err := proto.Write(c.conn, env); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// recv reads frames until one of the wanted kind arrives.
func (c *client) recv(kind proto.Kind) *proto.Envelope {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		env, err := proto.Read(c.conn)
		if err != nil {
			c.t.Fatalf("read while waiting for %q: %v", kind, err)
		}
		if env.Type == kind {
			return env
		}
	}
}

func (c *client) login(username string) *proto.LoginResponseContent {
	c.t.Helper()
	c.send(&proto.Envelope{
		Type:    proto.KindLogin,
		Sender:  username,
		Content: proto.LoginContent{Username: username},
	})
	ack := c.recv(proto.KindLoginResponse)
	var resp proto.LoginResponseContent
	if err := ack.ContentAs(&resp); err != nil {
		c.t.Fatalf("login response: %v", err)
	}
	return &resp
}

func TestLoginOverTCP(t *testing.T) {
	srv := testServer(t)

	c := dial(t, srv.Addr())
	resp := c.login("alice")
	if !resp.Success {
		t.Fatalf("login failed: %s", resp.Error)
	}
	if len(resp.Users) != 1 || resp.Users[0].Username != "alice" {
		t.Fatalf("unexpected roster: %+v", resp.Users)
	}
}

func TestPrivateMessageEndToEnd(t *testing.T) {
	srv := testServer(t)

	alice := dial(t, srv.Addr())
	bob := dial(t, srv.Addr())
	if !alice.login("alice").Success {
		t.Fatal("alice login failed")
	}
	if !bob.login("bob").Success {
		t.Fatal("bob login failed")
	}

	alice.send(&proto.Envelope{
		Type:      proto.KindPrivateMessage,
		Sender:    "alice",
		Recipient: "bob",
		Content:   "hello over the wire",
	})

	got := bob.recv(proto.KindPrivateMessage)
	if text, ok := got.TextContent(); !ok || text != "hello over the wire" {
		t.Fatalf("content = %v", got.Content)
	}
	if got.MessageID == "" {
		t.Fatal("delivered message must carry an id")
	}

	ack := alice.recv(proto.KindMessageDelivered)
	var delivered proto.DeliveredContent
	if err := ack.ContentAs(&delivered); err != nil {
		t.Fatalf("ack content: %v", err)
	}
	if delivered.MessageID != got.MessageID {
		t.Fatalf("ack id %q != delivered id %q", delivered.MessageID, got.MessageID)
	}
}

func TestDuplicateLoginRejectedAndClosed(t *testing.T) {
	srv := testServer(t)

	first := dial(t, srv.Addr())
	if !first.login("alice").Success {
		t.Fatal("first login failed")
	}

	second := dial(t, srv.Addr())
	resp := second.login("alice")
	if resp.Success {
		t.Fatal("second login must be rejected")
	}

	// The server closes the rejected connection; the next read must fail.
	_ = second.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, err := proto.Read(second.conn); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var dec *proto.DecodeError
			if errors.As(err, &dec) {
				t.Fatalf("expected clean close, got decode error: %v", err)
			}
			return
		}
	}
}

func TestGarbageFrameDisconnects(t *testing.T) {
	srv := testServer(t)

	c := dial(t, srv.Addr())
	if !c.login("alice").Success {
		t.Fatal("login failed")
	}

	// Length prefix promises 4 bytes of JSON, delivers garbage.
	if _, err := c.conn.Write([]byte{0, 0, 0, 4, 0xff, 0xfe, 0xfd, 0xfc}); err != nil {
		t.Fatalf("raw write: %v", err)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, err := proto.Read(c.conn); err != nil {
			return
		}
	}
}
