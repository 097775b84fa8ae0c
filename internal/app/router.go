package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sitestack-erp/sitestack-erp/internal/audit"
	"github.com/sitestack-erp/sitestack-erp/internal/auth"
	"github.com/sitestack-erp/sitestack-erp/internal/observability"
	"github.com/sitestack-erp/sitestack-erp/internal/perm"
	"github.com/sitestack-erp/sitestack-erp/internal/roles"
	"github.com/sitestack-erp/sitestack-erp/internal/users"
	"github.com/sitestack-erp/sitestack-erp/internal/workflow"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	AuthMiddleware  auth.Middleware
	PermHandler     *perm.Handler
	PermMiddleware  perm.Middleware
	WorkflowHandler *workflow.Handler
	AuditHandler    *audit.Handler
	UsersHandler    *users.Handler
	RolesHandler    *roles.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.Require)

			r.Route("/permissions", params.PermHandler.MountRoutes)
			r.Route("/workflow", params.WorkflowHandler.MountRoutes)
			r.Route("/audit", func(r chi.Router) {
				r.Use(params.PermMiddleware.Require(perm.ModuleWorkflow, perm.ActionView))
				params.AuditHandler.MountRoutes(r)
			})
			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/roles", params.RolesHandler.MountRoutes)
		})
	})

	return r
}
