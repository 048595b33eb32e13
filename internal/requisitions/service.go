package requisitions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/backend"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Creator posts a new entity to the backend.
type Creator interface {
	Create(ctx context.Context, path string, body any, out any) error
}

var _ Creator = (*backend.Client)(nil)

// Service handles indent validation, attachments and submission.
type Service struct {
	client      Creator
	validator   *shared.Validator
	policy      attachments.Policy
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a Service. A nil validator or logger uses the
// defaults.
func NewService(client Creator, validator *shared.Validator, policy attachments.Policy, concurrency int, logger *slog.Logger) *Service {
	if validator == nil {
		validator = shared.NewValidator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:      client,
		validator:   validator,
		policy:      policy,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Validate checks in without submitting it.
func (s *Service) Validate(in Indent) shared.FieldErrors {
	return Validate(s.validator, in, s.now())
}

// Submitted is the backend acknowledgement of an indent.
type Submitted struct {
	ID         string `json:"id"`
	IndentCode string `json:"indentCode,omitempty"`
}

// Submit validates in and posts it. Nothing is sent while any field is
// invalid.
func (s *Service) Submit(ctx context.Context, in Indent) (Submitted, error) {
	if err := s.Validate(in).Err(); err != nil {
		return Submitted{}, err
	}
	var out Submitted
	if err := s.client.Create(ctx, submitPath, in.normalized(), &out); err != nil {
		return Submitted{}, fmt.Errorf("submit requisition: %w", err)
	}
	s.logger.Info("requisition submitted",
		slog.String("id", out.ID), slog.Int("items", len(in.Items)),
		slog.String("actor", shared.ActorFromContext(ctx).ID))
	return out, nil
}

// Attach converts uploads and returns a new indent whose item at index
// carries the successful previews, plus every preview so the caller can
// report failed files. in is never modified.
func (s *Service) Attach(ctx context.Context, in Indent, index int, uploads []attachments.Upload) (Indent, []attachments.Preview, error) {
	if index < 0 || index >= len(in.Items) {
		return in, nil, fmt.Errorf("%w: index %d", ErrItemIndex, index)
	}
	previews, err := attachments.Convert(ctx, uploads, s.policy, s.concurrency)
	if err != nil {
		return in, previews, fmt.Errorf("convert attachments: %w", err)
	}
	item := in.Items[index].WithAttachments(previews)
	if len(item.Attachments) > MaxItemAttachments {
		return in, previews, (shared.FieldErrors{
			fmt.Sprintf("items[%d].attachments", index): fmt.Sprintf("must have at most %d entries", MaxItemAttachments),
		}).Err()
	}
	out, err := in.WithItem(index, item)
	return out, previews, err
}
