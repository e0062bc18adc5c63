package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/directory"
	"github.com/scholaris-edu/scholaris/internal/grants"
	"github.com/scholaris-edu/scholaris/internal/identity"
	"github.com/scholaris-edu/scholaris/internal/observability"
	"github.com/scholaris-edu/scholaris/internal/roles"
	"github.com/scholaris-edu/scholaris/internal/staff"
	"github.com/scholaris-edu/scholaris/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	Authenticator    identity.Authenticator
	IdentityHandler  *identity.Handler
	DirectoryHandler *directory.Handler
	StaffHandler     *staff.Handler
	RolesHandler     *roles.Handler
	GrantsHandler    *grants.Handler
	AuditHandler     *audit.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Scholaris defaults.
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

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", params.IdentityHandler.MountRoutes)

		// Everything below resolves an actor first; the per-route
		// permission requirements live in each handler's MountRoutes.
		api.Group(func(protected chi.Router) {
			protected.Use(params.Authenticator.Middleware)

			protected.Route("/schools", params.DirectoryHandler.MountSchoolRoutes)
			protected.Route("/departments", params.DirectoryHandler.MountDepartmentRoutes)
			protected.Route("/positions", params.DirectoryHandler.MountPositionRoutes)
			protected.Route("/staff", params.StaffHandler.MountRoutes)
			protected.Route("/roles", params.RolesHandler.MountRoutes)
			protected.Route("/grants", params.GrantsHandler.MountRoutes)
			protected.Route("/audit", params.AuditHandler.MountRoutes)
			if params.JobHandler != nil {
				protected.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
