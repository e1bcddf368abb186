package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agora-forum/agora/internal/auth"
	"github.com/agora-forum/agora/internal/rbac"
	"github.com/agora-forum/agora/internal/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger   *slog.Logger
	Config   *Config
	Services *Services
	// Health reports backing store reachability for /healthz. Optional.
	Health func(ctx context.Context) error
	// RequestLog enables chi's access log.
	RequestLog bool
}

// NewRouter constructs the chi.Router with Agora defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	svc := params.Services

	if params.RequestLog {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Health != nil {
			if err := params.Health(r.Context()); err != nil {
				params.Logger.Warn("health check", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics.Handler())
	}

	loginLimit := 0
	if params.Config != nil {
		loginLimit = params.Config.LoginRateLimit
	}
	rbacMiddleware := rbac.Middleware{Engine: svc.Engine, Logger: params.Logger}
	authHandler := auth.NewHandler(params.Logger, svc.Auth, rbacMiddleware, loginLimit)
	rolesHandler := roles.NewHandler(params.Logger, svc.Catalog)

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:    params.Logger,
			Config:    params.Config,
			Metrics:   svc.Metrics,
			Principal: svc.Resolver.Middleware,
		}) {
			r.Use(mw)
		}
		r.Route("/auth", authHandler.MountRoutes)
		r.Route("/roles", rolesHandler.MountRoutes)
	})

	return r
}
