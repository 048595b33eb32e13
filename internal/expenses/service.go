package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/exports"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Config wires a Service.
type Config struct {
	Client      *backend.Client
	Store       *cache.Store
	TTL         time.Duration
	Exporter    *exports.Exporter
	Format      listview.Formatter
	Policy      attachments.Policy
	Validator   *shared.Validator
	AllPageSize int
	MaxPages    int
	Logger      *slog.Logger
	Now         func() time.Time
}

// Service implements the expense use cases.
type Service struct {
	client    *backend.Client
	adapter   *listview.Adapter[DTO, Row]
	bucket    *cache.Bucket
	exporter  *exports.Exporter
	policy    attachments.Policy
	validator *shared.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the expense service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		loc := cfg.Format.Location()
		now = func() time.Time { return time.Now().In(loc) }
	}
	validator := cfg.Validator
	if validator == nil {
		validator = shared.NewValidator()
	}
	bucket := cfg.Store.Bucket(Entity, cfg.TTL)
	return &Service{
		client: cfg.Client,
		adapter: &listview.Adapter[DTO, Row]{
			Name:          Entity,
			Source:        backend.NewResource[DTO](cfg.Client, listPath),
			Normalize:     Normalizer(cfg.Format),
			Schema:        Schema(),
			Bucket:        bucket,
			ServerFilters: ServerFilters,
			AllPageSize:   cfg.AllPageSize,
			MaxPages:      cfg.MaxPages,
			Logger:        logger,
		},
		bucket:    bucket,
		exporter:  cfg.Exporter,
		policy:    cfg.Policy,
		validator: validator,
		logger:    logger,
		now:       now,
	}
}

// List renders the expense list for st.
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

// Validate checks form and receipts, optionally for one wizard step.
func (s *Service) Validate(form Form, receipts []attachments.Upload, step string) shared.FieldErrors {
	return Validate(s.validator, s.policy, form, receipts, step, s.now())
}

// Created is the backend acknowledgement of a new expense.
type Created struct {
	ID          string `json:"id"`
	ExpenseCode string `json:"expenseCode,omitempty"`
}

// Create validates and submits a new expense with its receipts. Nothing is
// sent while any field is invalid. The list cache is dropped on success.
func (s *Service) Create(ctx context.Context, form Form, receipts []attachments.Upload) (Created, error) {
	if err := s.Validate(form, receipts, "").Err(); err != nil {
		return Created{}, err
	}
	form = form.normalized()
	var out Created
	if err := s.client.CreateMultipart(ctx, createPath, form.fields(), attachments.ToFiles("receipts", receipts), &out); err != nil {
		return Created{}, fmt.Errorf("create expense: %w", err)
	}
	if err := s.bucket.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate expense cache", slog.Any("error", err))
	}
	s.logger.Info("expense created", slog.String("id", out.ID), slog.String("actor", shared.ActorFromContext(ctx).ID))
	return out, nil
}
