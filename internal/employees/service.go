package employees

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/exports"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
)

// Config wires a Service.
type Config struct {
	Client      *backend.Client
	Store       *cache.Store
	TTL         time.Duration
	Exporter    *exports.Exporter
	Format      listview.Formatter
	AllPageSize int
	MaxPages    int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service implements the employee list use cases.
type Service struct {
	adapter  *listview.Adapter[DTO, Row]
	exporter *exports.Exporter
	now      func() time.Time
}

// NewService constructs the employee service.
func NewService(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		loc := cfg.Format.Location()
		now = func() time.Time { return time.Now().In(loc) }
	}
	return &Service{
		adapter: &listview.Adapter[DTO, Row]{
			Name:          Entity,
			Source:        backend.NewResource[DTO](cfg.Client, listPath),
			Normalize:     Normalizer(cfg.Format),
			Schema:        Schema(),
			Bucket:        cfg.Store.Bucket(Entity, cfg.TTL),
			ServerFilters: ServerFilters,
			AllPageSize:   cfg.AllPageSize,
			MaxPages:      cfg.MaxPages,
			Logger:        cfg.Logger,
		},
		exporter: cfg.Exporter,
		now:      now,
	}
}

// List renders the employee list for st.
func (s *Service) List(ctx context.Context, st listview.State) (listview.ViewResult[Row], error) {
	return s.adapter.View(ctx, st, s.now())
}

// Warm loads the whole unfiltered collection into the cache.
func (s *Service) Warm(ctx context.Context) (int, error) {
	rows, err := s.adapter.All(ctx, listview.NewState(Schema()).Filter, s.now())
	return len(rows), err
}

// Export downloads the spreadsheet for the filters in f.
func (s *Service) Export(ctx context.Context, f listview.FilterState) (exports.File, error) {
	params := ServerFilters(f, s.now())
	if q := f.SearchTerm(); q != "" {
		params["search"] = q
	}
	return s.exporter.Export(ctx, exports.Request{Entity: Entity, Path: exportPath, Filter: f, Params: params})
}
