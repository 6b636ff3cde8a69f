package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/ec2-automations/internal/api/handlers"
	"github.com/pratik-mahalle/ec2-automations/internal/api/middleware"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/metrics"
)

type Handlers struct {
	Health *handlers.HealthHandler
	Invoke *handlers.InvokeHandler
}

func New(log *logger.Logger, limiter *middleware.RateLimiter, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(metrics.Middleware)
	// Logger must wrap the writer the handlers see so AddLogField reaches it.
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RateLimit(limiter))

	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/handlers", h.Invoke.List)
	r.Post("/invoke/{handler}", h.Invoke.Invoke)

	return r
}
