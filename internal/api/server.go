package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pratik-mahalle/ec2-automations/internal/api/handlers"
	"github.com/pratik-mahalle/ec2-automations/internal/api/middleware"
	"github.com/pratik-mahalle/ec2-automations/internal/api/router"
	"github.com/pratik-mahalle/ec2-automations/internal/config"
	automation "github.com/pratik-mahalle/ec2-automations/internal/handlers"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server is the local invoke server
type Server struct {
	cfg     config.ServerConfig
	logger  *logger.Logger
	limiter *middleware.RateLimiter
	handler http.Handler
}

// NewServer wires the router around deps
func NewServer(cfg *config.Config, deps automation.Deps, log *logger.Logger) *Server {
	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst)
	runner := automation.NewRunner(log, cfg.Metrics)

	h := &router.Handlers{
		Health: handlers.NewHealthHandler(log),
		Invoke: handlers.NewInvokeHandler(deps, runner, log),
	}

	return &Server{
		cfg:     cfg.Server,
		logger:  log,
		limiter: limiter,
		handler: router.New(log, limiter, h),
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the host:port the server listens on
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.limiter.RunCleanup(cleanupCtx, 5*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Invoke server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down invoke server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
