package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/core"
	"github.com/lanchat/lanchat-server/internal/store"
)

// Server exposes a small read-only HTTP surface for operators: health,
// runtime stats and the user roster. It never touches the chat protocol.
type Server struct {
	http *http.Server
	log  *zerolog.Logger
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	SessionsOnline  int    `json:"sessions_online"`
	TransfersActive int    `json:"transfers_active"`
	GroupsKnown     int    `json:"groups_known"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	StartedAt       string `json:"started_at"`
}

// UserResponse is one roster entry in GET /api/users.
type UserResponse struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(
	addr string,
	sessions *core.SessionRegistry,
	groups *core.GroupRegistry,
	transfers *core.TransferManager,
	st store.Store,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           newEngine(sessions, groups, transfers, st, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

func newEngine(
	sessions *core.SessionRegistry,
	groups *core.GroupRegistry,
	transfers *core.TransferManager,
	st store.Store,
	logger *zerolog.Logger,
) *gin.Engine {
	started := time.Now()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), loggerMiddleware(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	router.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, StatsResponse{
			SessionsOnline:  sessions.Len(),
			TransfersActive: transfers.Len(),
			GroupsKnown:     groups.Len(),
			UptimeSeconds:   int64(time.Since(started).Seconds()),
			StartedAt:       started.UTC().Format(time.RFC3339),
		})
	})

	router.GET("/api/users", func(c *gin.Context) {
		users, err := st.ListUsers(c.Request.Context())
		if err != nil {
			logger.Error().Err(err).Msg("failed to list users")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		out := make([]UserResponse, 0, len(users))
		for _, u := range users {
			out = append(out, UserResponse{
				Username: u.Username,
				Status:   string(u.Status),
				LastSeen: u.LastSeen.UTC().Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, out)
	})

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("admin server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// loggerMiddleware creates a middleware that logs HTTP requests.
func loggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
