package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/core"
	"github.com/lanchat/lanchat-server/internal/proto"
	"github.com/lanchat/lanchat-server/internal/utils"
)

// loginDeadline bounds how long a fresh connection may sit silent before
// its first frame.
const loginDeadline = 30 * time.Second

// Server accepts TCP clients and pumps their frames into the router.
type Server struct {
	router *core.Router
	log    *zerolog.Logger

	addr         string
	queueSize    int
	writeTimeout time.Duration

	mu       sync.Mutex
	listener net.Listener
	active   map[net.Conn]struct{}
	conns    sync.WaitGroup
}

func NewServer(addr string, router *core.Router, logger *zerolog.Logger, queueSize int, writeTimeout time.Duration) *Server {
	return &Server{
		router:       router,
		log:          logger,
		addr:         addr,
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		active:       make(map[net.Conn]struct{}),
	}
}

// Listen binds the address. Split from Serve so callers can fail fast on a
// busy port and learn the bound address when using ":0".
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener bound")
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve accepts connections until ctx is cancelled, then waits for the
// per-connection goroutines to drain.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		ln = s.listener
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		// Idle clients never wake the read loops on their own; close their
		// sockets so shutdown does not wait on them.
		s.mu.Lock()
		for c := range s.active {
			_ = c.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.conns.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.conns.Wait()
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(ctx, conn)
		}()
	}
}

// handle owns the read side of one client connection for its whole life.
func (s *Server) handle(ctx context.Context, netConn net.Conn) {
	s.mu.Lock()
	s.active[netConn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, netConn)
		s.mu.Unlock()
	}()

	p := newPeer(netConn, s.log, s.queueSize, s.writeTimeout)
	c := core.NewConn(utils.NewConnID(), p)

	s.log.Info().Str("conn_id", c.ID).Str("addr", p.RemoteAddr()).Msg("client connected")
	defer s.router.Disconnect(c)

	_ = netConn.SetReadDeadline(time.Now().Add(loginDeadline))
	reader := bufio.NewReader(netConn)

	first := true
	for {
		env, err := proto.Read(reader)
		if err != nil {
			s.logReadEnd(c, err)
			return
		}
		if first {
			// Once the client has spoken, presence sweeps take over.
			_ = netConn.SetReadDeadline(time.Time{})
			first = false
		}

		if err := s.router.Submit(ctx, c, env); err != nil {
			return
		}
	}
}

func (s *Server) logReadEnd(c *core.Conn, err error) {
	var dec *proto.DecodeError
	switch {
	case errors.Is(err, io.EOF):
		s.log.Info().Str("conn_id", c.ID).Msg("client hung up")
	case errors.As(err, &dec):
		s.log.Warn().Err(err).Str("conn_id", c.ID).Msg("bad frame, closing connection")
	default:
		s.log.Debug().Err(err).Str("conn_id", c.ID).Msg("read ended")
	}
}
