package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/employees"
	"github.com/odyssey-erp/odyssey-admin/internal/expenses"
	"github.com/odyssey-erp/odyssey-admin/internal/fleet"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/requisitions"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	EmployeesHandler    *employees.Handler
	VehiclesHandler     *fleet.Handler
	ExpensesHandler     *expenses.Handler
	RequisitionsHandler *requisitions.Handler
	AttachmentsHandler  *attachments.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
	// Ready lists the dependencies checked by /readyz.
	Ready map[string]Pinger
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Logger, params.Ready))

	r.Route("/api", func(r chi.Router) {
		if params.EmployeesHandler != nil {
			r.Route("/employees", params.EmployeesHandler.MountRoutes)
		}
		if params.VehiclesHandler != nil {
			r.Route("/vehicles", params.VehiclesHandler.MountRoutes)
		}
		if params.ExpensesHandler != nil {
			r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		}
		if params.RequisitionsHandler != nil {
			r.Route("/requisitions", params.RequisitionsHandler.MountRoutes)
		}
		if params.AttachmentsHandler != nil {
			r.Route("/attachments", params.AttachmentsHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "No such endpoint.")
	})
	return r
}

func readiness(logger *slog.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				report[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httpx.JSON(w, status, report)
	}
}
