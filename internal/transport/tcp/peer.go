package tcp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/proto"
)

// ErrQueueFull is returned by Send when the outbound queue has no room. A
// client that cannot keep up with its own traffic gets disconnected rather
// than stalling everyone else.
var ErrQueueFull = errors.New("outbound queue full")

var errPeerClosed = errors.New("peer closed")

// peer wraps a TCP connection behind the core.Peer interface. Sends only
// enqueue; a dedicated writer goroutine owns the socket's write side, so
// Send never blocks on a slow receiver.
type peer struct {
	conn net.Conn
	log  *zerolog.Logger

	queue        chan *proto.Envelope
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	loopDone  chan struct{}
}

func newPeer(conn net.Conn, logger *zerolog.Logger, queueSize int, writeTimeout time.Duration) *peer {
	if queueSize <= 0 {
		queueSize = 64
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	p := &peer{
		conn:         conn,
		log:          logger,
		queue:        make(chan *proto.Envelope, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
		loopDone:     make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

func (p *peer) Send(env *proto.Envelope) error {
	select {
	case <-p.done:
		return errPeerClosed
	default:
	}

	select {
	case p.queue <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close flushes whatever is already queued, then closes the socket. The
// flush matters on the rejection path: the router enqueues a final envelope
// (login_response, error) and closes immediately, and the client must still
// see that payload rather than a bare EOF.
func (p *peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wait for the writer to finish its in-flight frame so the drain
		// cannot reorder the final envelopes.
		<-p.loopDone
		p.drain()
		err = p.conn.Close()
	})
	return err
}

func (p *peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// drain writes queued envelopes until the queue is empty or the socket
// fails; the write deadline bounds how long a dead client can hold this up.
func (p *peer) drain() {
	for {
		select {
		case env := <-p.queue:
			if err := p.writeFrame(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

// writeFrame serializes socket writes so the writer goroutine and a closing
// drain can never interleave frames.
func (p *peer) writeFrame(env *proto.Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_ = p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	return proto.Write(p.conn, env)
}

// writeLoop drains the queue onto the socket. A write error or timeout
// tears the connection down; the read side will notice and tell the router.
func (p *peer) writeLoop() {
	defer close(p.loopDone)
	for {
		select {
		case <-p.done:
			return
		case env := <-p.queue:
			if err := p.writeFrame(env); err != nil {
				p.log.Debug().Err(err).Str("addr", p.RemoteAddr()).Msg("write failed")
				// Close waits for loopDone, so it must run outside this
				// goroutine.
				go p.Close()
				return
			}
		}
	}
}
