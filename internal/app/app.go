package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/config"
	"github.com/lanchat/lanchat-server/internal/core"
	"github.com/lanchat/lanchat-server/internal/store"
	"github.com/lanchat/lanchat-server/internal/store/sqlite"
	"github.com/lanchat/lanchat-server/internal/transport/admin"
	"github.com/lanchat/lanchat-server/internal/transport/tcp"
)

// App wires together storage, core and transport layers.
type App struct {
	cfg      config.Config
	log      *zerolog.Logger
	store    store.Store
	router   *core.Router
	presence *core.PresenceMonitor
	tcp      *tcp.Server
	admin    *admin.Server
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init storage dir: %w", err)
	}

	transfers, err := core.NewTransferManager(cfg.StorageDir)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init transfer manager: %w", err)
	}

	sessions := core.NewSessionRegistry()
	groups := core.NewGroupRegistry()

	// Known groups survive restarts; load them before accepting anyone.
	known, err := st.ListGroups(context.Background())
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("load groups: %w", err)
	}
	groups.Warm(known)
	logger.Info().Int("groups", len(known)).Msg("group registry warmed")

	router := core.NewRouter(sessions, groups, transfers, st, logger, core.RouterConfig{
		QueueSize:    cfg.RouterQueueSize,
		HistoryLimit: cfg.HistoryLimit,
	})
	presence := core.NewPresenceMonitor(sessions, router.Disconnect, logger, cfg.PingInterval, cfg.PresenceTimeout)

	return &App{
		cfg:      cfg,
		log:      logger,
		store:    st,
		router:   router,
		presence: presence,
		tcp:      tcp.NewServer(cfg.Addr, router, logger, cfg.OutboundQueueSize, cfg.WriteTimeout),
		admin:    admin.NewServer(cfg.AdminAddr, sessions, groups, transfers, st, logger),
	}, nil
}

// Run starts every component and blocks until context cancellation or a
// fatal error in one of them.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.tcp.Listen(); err != nil {
		a.cleanup()
		return fmt.Errorf("tcp listen: %w", err)
	}

	go a.router.Run(runCtx)
	go a.presence.Run(runCtx)

	errCh := make(chan error, 2)
	go func() { errCh <- a.tcp.Serve(runCtx) }()
	go func() { errCh <- a.admin.Run(runCtx, a.cfg.ShutdownTimeout) }()

	a.log.Info().Str("addr", a.tcp.Addr()).Str("admin_addr", a.cfg.AdminAddr).Msg("server started")

	var firstErr error
	select {
	case firstErr = <-errCh:
		cancel()
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		cancel()
		firstErr = <-errCh
	}
	// Wait for the second component as well.
	if err := <-errCh; firstErr == nil {
		firstErr = err
	}

	a.cleanup()
	return firstErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
