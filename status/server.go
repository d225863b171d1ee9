package status

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/netguard/component"
	"github.com/kbukum/netguard/logger"
)

// Server hosts the status routes over HTTP with h2c support. It implements
// component.Component so the app registry manages its lifecycle.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	handler    *Handler
	cfg        Config
	log        *logger.Logger
	listener   net.Listener
}

var _ component.Component = (*Server)(nil)

// NewServer builds the server and mounts the handler's routes.
func NewServer(cfg Config, h *Handler) *Server {
	cfg.ApplyDefaults()

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logger.WithComponent("status.server")
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	h.Register(engine, OperatorAuth(cfg.Auth))

	// h2c lets HTTP/2 clients stream without TLS termination in front.
	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          cfg.IdleTimeout,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		handler:    h,
		cfg:        cfg,
		log:        log,
	}
}

// Name returns the component name.
func (s *Server) Name() string { return "status-server" }

// Engine returns the Gin engine for additional route registration.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Addr returns the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Start binds the port and serves in the background. It returns once the
// listener is bound so callers know the port is ready.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("status: bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("server error", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("status server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop drains connections with a 5-second deadline and disconnects stream
// clients. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.handler.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status: shutdown: %w", err)
	}
	return nil
}

// Health reports healthy once the listener is bound.
func (s *Server) Health(ctx context.Context) component.Health {
	if s.listener == nil {
		return component.Health{
			Name:    s.Name(),
			Status:  component.StatusUnhealthy,
			Message: "not started",
		}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request", logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
}
