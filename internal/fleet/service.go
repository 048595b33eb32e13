package fleet

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

// Service implements the vehicle use cases.
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

// NewService constructs the vehicle service.
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
			Name:        Entity,
			Source:      backend.NewResource[DTO](cfg.Client, listPath),
			Normalize:   Normalizer(cfg.Format),
			Schema:      Schema(),
			Bucket:      bucket,
			AllPageSize: cfg.AllPageSize,
			MaxPages:    cfg.MaxPages,
			Logger:      logger,
		},
		bucket:    bucket,
		exporter:  cfg.Exporter,
		policy:    cfg.Policy,
		validator: validator,
		logger:    logger,
		now:       now,
	}
}

// List renders the vehicle list for st.
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
	params := f.ActiveCategories()
	if q := f.SearchTerm(); q != "" {
		params["search"] = q
	}
	return s.exporter.Export(ctx, exports.Request{Entity: Entity, Path: exportPath, Filter: f, Params: params})
}

// Validate checks the onboarding form, optionally for one wizard step.
func (s *Service) Validate(form OnboardingForm, documents []attachments.Upload, step string) shared.FieldErrors {
	return Validate(s.validator, s.policy, form, documents, step, s.now())
}

// Onboarded is the backend acknowledgement of a new vehicle.
type Onboarded struct {
	ID                 string `json:"id"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
}

// Onboard validates and submits a vehicle with its documents, then drops the
// vehicle list cache so the new vehicle shows up.
func (s *Service) Onboard(ctx context.Context, form OnboardingForm, documents []attachments.Upload) (Onboarded, error) {
	if err := s.Validate(form, documents, "").Err(); err != nil {
		return Onboarded{}, err
	}
	form = form.normalized()
	var out Onboarded
	if err := s.client.CreateMultipart(ctx, createPath, form.fields(), attachments.ToFiles("documents", documents), &out); err != nil {
		return Onboarded{}, fmt.Errorf("onboard vehicle: %w", err)
	}
	if err := s.bucket.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate vehicle cache", slog.Any("error", err))
	}
	s.logger.Info("vehicle onboarded", slog.String("id", out.ID), slog.String("registration", form.RegistrationNumber))
	return out, nil
}
