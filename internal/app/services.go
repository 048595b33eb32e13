package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/employees"
	"github.com/odyssey-erp/odyssey-admin/internal/expenses"
	"github.com/odyssey-erp/odyssey-admin/internal/exports"
	"github.com/odyssey-erp/odyssey-admin/internal/fleet"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admin/internal/requisitions"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

// Services is the wired domain layer shared by the server, the worker and
// the CLI.
type Services struct {
	Redis        *redis.Client
	Store        *cache.Store
	Policy       attachments.Policy
	Employees    *employees.Service
	Vehicles     *fleet.Service
	Expenses     *expenses.Service
	Requisitions *requisitions.Service

	closers []func()
}

// BuildServices connects Redis and Postgres and wires every service. Neither
// store is fatal: without Redis lists load straight from the backend, and
// without Postgres exports are not audited.
func BuildServices(ctx context.Context, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	s := &Services{}

	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			logger.Warn("redis unavailable, list cache degraded", slog.Any("error", err))
		}
		s.Redis = client
		s.closers = append(s.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		})
	}
	var cacheMetrics *cache.Metrics
	if metrics != nil {
		m, err := cache.NewMetrics(metrics.Registerer())
		if err != nil {
			return nil, err
		}
		cacheMetrics = m
	}
	s.Store = cache.NewStore(s.Redis, cache.Options{
		RevalidateAfter: cfg.CacheRevalidateAfter,
		Logger:          logger,
		Metrics:         cacheMetrics,
	})
	s.closers = append(s.closers, s.Store.Wait)

	var audit *shared.AuditLogger
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Warn("postgres unavailable, exports will not be audited", slog.Any("error", err))
		} else {
			audit = shared.NewAuditLogger(pool)
			s.closers = append(s.closers, pool.Close)
		}
	}

	client := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.BackendTimeout,
		RPS:     cfg.BackendRPS,
		Logger:  logger,
	})
	loc := cfg.Location()
	format := listview.NewFormatter(cfg.Currency, loc)
	exporter := exports.NewExporter(client, audit, logger, func() time.Time { return time.Now().In(loc) })
	validator := shared.NewValidator()
	s.Policy = attachments.DefaultPolicy()
	s.Policy.MaxBytes = cfg.MaxAttachmentBytes

	s.Employees = employees.NewService(employees.Config{
		Client: client, Store: s.Store, TTL: cfg.CacheEmployeesTTL, Exporter: exporter, Format: format,
		AllPageSize: cfg.FetchAllPageSize, MaxPages: cfg.FetchAllMaxPages, Logger: logger,
	})
	s.Vehicles = fleet.NewService(fleet.Config{
		Client: client, Store: s.Store, TTL: cfg.CacheVehiclesTTL, Exporter: exporter, Format: format,
		Policy: s.Policy, Validator: validator,
		AllPageSize: cfg.FetchAllPageSize, MaxPages: cfg.FetchAllMaxPages, Logger: logger,
	})
	s.Expenses = expenses.NewService(expenses.Config{
		Client: client, Store: s.Store, TTL: cfg.CacheExpensesTTL, Exporter: exporter, Format: format,
		Policy: s.Policy, Validator: validator,
		AllPageSize: cfg.FetchAllPageSize, MaxPages: cfg.FetchAllMaxPages, Logger: logger,
	})
	s.Requisitions = requisitions.NewService(client, validator, s.Policy, cfg.AttachmentConcurrency, logger)
	return s, nil
}

// Warmers maps list names to the services that can prefetch them.
func (s *Services) Warmers() map[string]jobs.Warmer {
	return map[string]jobs.Warmer{
		employees.Entity: s.Employees,
		fleet.Entity:     s.Vehicles,
		expenses.Entity:  s.Expenses,
	}
}

// Close waits for background cache refreshes and releases connections in
// reverse order.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Handlers are the HTTP adapters over Services.
type Handlers struct {
	Employees    *employees.Handler
	Vehicles     *fleet.Handler
	Expenses     *expenses.Handler
	Requisitions *requisitions.Handler
	Attachments  *attachments.Handler
	Jobs         *jobs.Handler
}

// NewHandlers builds the HTTP handlers. jobHandler may be nil when the job
// queue is not reachable.
func NewHandlers(s *Services, cfg *Config, logger *slog.Logger, jobHandler *jobs.Handler) Handlers {
	return Handlers{
		Employees:    employees.NewHandler(logger, s.Employees),
		Vehicles:     fleet.NewHandler(logger, s.Vehicles, cfg.MaxUploadBytes),
		Expenses:     expenses.NewHandler(logger, s.Expenses, cfg.MaxUploadBytes),
		Requisitions: requisitions.NewHandler(logger, s.Requisitions, cfg.MaxUploadBytes),
		Attachments:  attachments.NewHandler(logger, s.Policy, cfg.MaxUploadBytes, cfg.AttachmentConcurrency),
		Jobs:         jobHandler,
	}
}

// Params fills the handler fields of RouterParams.
func (h Handlers) Params(base RouterParams) RouterParams {
	base.EmployeesHandler = h.Employees
	base.VehiclesHandler = h.Vehicles
	base.ExpensesHandler = h.Expenses
	base.RequisitionsHandler = h.Requisitions
	base.AttachmentsHandler = h.Attachments
	base.JobHandler = h.Jobs
	return base
}
