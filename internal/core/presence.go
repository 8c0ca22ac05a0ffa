package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/proto"
)

// PresenceMonitor probes all live sessions on a fixed interval. It is a
// liveness check, not an RTT measurement: last-seen only advances on a pong
// or any other successfully processed inbound envelope.
type PresenceMonitor struct {
	sessions   *SessionRegistry
	disconnect func(*Conn)
	log        *zerolog.Logger

	interval time.Duration
	timeout  time.Duration
}

// NewPresenceMonitor builds a monitor that pings every interval and forces
// a disconnect after timeout without inbound activity.
func NewPresenceMonitor(
	sessions *SessionRegistry,
	disconnect func(*Conn),
	logger *zerolog.Logger,
	interval, timeout time.Duration,
) *PresenceMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PresenceMonitor{
		sessions:   sessions,
		disconnect: disconnect,
		log:        logger,
		interval:   interval,
		timeout:    timeout,
	}
}

// Run ticks until ctx is cancelled.
func (m *PresenceMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep pings every session and reaps the silent ones. A ping that cannot
// even be queued is treated exactly like a timeout.
func (m *PresenceMonitor) sweep(now time.Time) {
	ping := &proto.Envelope{Type: proto.KindPing, Sender: proto.SenderServer}

	for _, s := range m.sessions.Snapshot() {
		if err := s.Conn.Peer().Send(ping); err != nil {
			m.log.Info().Err(err).Str("user", s.Username).Msg("ping failed, disconnecting")
			m.disconnect(s.Conn)
			continue
		}
		if now.Sub(s.LastSeen) > m.timeout {
			m.log.Info().Str("user", s.Username).Dur("silent_for", now.Sub(s.LastSeen)).
				Msg("presence timeout, disconnecting")
			m.disconnect(s.Conn)
		}
	}
}
