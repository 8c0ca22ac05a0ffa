package core

import (
	"sync/atomic"

	"github.com/lanchat/lanchat-server/internal/proto"
)

// Peer is the outbound half of one client connection. Implementations must
// be safe for concurrent use and must never block the caller indefinitely:
// a dead socket or a full outbound queue returns an error instead.
type Peer interface {
	// Send queues env for delivery to the client.
	Send(env *proto.Envelope) error

	// Close tears down the connection. Safe to call more than once.
	Close() error

	// RemoteAddr describes the peer for logging.
	RemoteAddr() string
}

// Conn is the router's view of one accepted connection. The transport
// creates one per socket and submits every decoded envelope through it.
type Conn struct {
	ID string

	peer   Peer
	name   atomic.Value // string, set once on successful login
	closed atomic.Bool
}

// NewConn wraps a peer for submission to the router.
func NewConn(id string, peer Peer) *Conn {
	return &Conn{ID: id, peer: peer}
}

// Peer returns the outbound handle.
func (c *Conn) Peer() Peer { return c.peer }

// Username returns the authenticated username, or "" before login.
func (c *Conn) Username() string {
	if v := c.name.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (c *Conn) setUsername(name string) {
	c.name.Store(name)
}

// markClosed flips the connection into its terminal state. Returns true for
// the caller that won the transition; disconnect side effects run once.
func (c *Conn) markClosed() bool {
	return c.closed.CompareAndSwap(false, true)
}
