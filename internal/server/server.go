package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vk/calcgrid/internal/ctxlog"
	"github.com/vk/calcgrid/internal/registry"
	"github.com/vk/calcgrid/internal/session"
	"github.com/zishang520/socket.io/v2/socket"
	"golang.org/x/time/rate"
)

// Server is the HTTP and socket.io front end of a session manager.
type Server struct {
	ctx      context.Context
	router   *gin.Engine
	io       *socket.Server
	registry *registry.Registry
	sessions *session.Manager
	emitter  Emitter
	limiter  *editLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithEmitter replaces the socket.io broadcaster, e.g. with a recorder in
// tests.
func WithEmitter(e Emitter) Option {
	return func(s *Server) { s.emitter = e }
}

// WithEditRate limits every session to perSecond edits, with bursts of up
// to burst. perSecond <= 0 means unlimited, which is the default.
func WithEditRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		limit := rate.Inf
		if perSecond > 0 {
			limit = rate.Limit(perSecond)
		}
		s.limiter = newEditLimiter(limit, burst)
	}
}

// New creates a server. The context carries the logger used for requests.
func New(ctx context.Context, reg *registry.Registry, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		ctx:      ctx,
		router:   gin.New(),
		io:       socket.NewServer(nil, nil),
		registry: reg,
		limiter:  newEditLimiter(rate.Inf, 1),
	}
	s.emitter = socketEmitter{io: s.io}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = session.NewManager(reg, session.WithObservers(observerFor(s.emitter)))

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	s.setupSocket()
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Handler returns the HTTP handler serving the API and socket.io.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/calculators", s.listCalculators)

	sessions := s.router.Group("/sessions")
	{
		sessions.GET("", s.listSessions)
		sessions.POST("", s.openSession)
		sessions.GET("/snapshot", s.snapshotSessions)
		sessions.GET("/:id", s.getSession)
		sessions.DELETE("/:id", s.closeSession)
		sessions.PUT("/:id/variables/:name", s.editVariable)
		sessions.PUT("/:id/variables/:name/unit", s.setUnit)
		sessions.PUT("/:id/groups/:group", s.selectOutput)
	}

	sio := gin.WrapH(s.io.ServeHandler(nil))
	s.router.GET("/socket.io/*any", sio)
	s.router.POST("/socket.io/*any", sio)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ctxlog.FromContext(s.ctx).Debug("HTTP request served.",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logger := ctxlog.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting.", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	s.io.Close(nil)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed.", "error", err)
		return err
	}
	logger.Debug("Server shut down gracefully.")
	return nil
}
