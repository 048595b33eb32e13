package attachments

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// FormField is the multipart field carrying files.
const FormField = "files"

// ErrNoFiles is returned when a multipart request carries no files.
var ErrNoFiles = fmt.Errorf("%w: no files uploaded", shared.ErrValidation)

// ReadMultipart parses r and returns the files under field. maxBytes bounds
// the whole request body.
func ReadMultipart(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) ([]Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, maxBytes)
		}
		return nil, fmt.Errorf("%w: malformed upload: %v", shared.ErrValidation, err)
	}
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	uploads := make([]Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("attachments: open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("attachments: read %s: %w", fh.Filename, err)
		}
		uploads = append(uploads, Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

// Handler serves preview conversion.
type Handler struct {
	logger      *slog.Logger
	policy      Policy
	maxBody     int64
	concurrency int
}

// NewHandler constructs a Handler. maxBody bounds each request.
func NewHandler(logger *slog.Logger, policy Policy, maxBody int64, concurrency int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, policy: policy, maxBody: maxBody, concurrency: concurrency}
}

// MountRoutes registers attachment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/previews", h.previews)
}

type previewResponse struct {
	Previews []Preview `json:"previews"`
	Failed   int       `json:"failed"`
}

func (h *Handler) previews(w http.ResponseWriter, r *http.Request) {
	role := shared.ActorFromContext(r.Context()).Role
	uploads, err := ReadMultipart(w, r, FormField, h.maxBody)
	if err == nil && len(uploads) == 0 {
		err = ErrNoFiles
	}
	if err != nil {
		httpx.RespondError(w, err, role)
		return
	}
	previews, err := Convert(r.Context(), uploads, h.policy, h.concurrency)
	if err != nil {
		h.logger.Warn("attachment conversion interrupted", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrUnavailable, err), role)
		return
	}
	failed := len(previews) - len(Succeeded(previews))
	httpx.JSON(w, http.StatusOK, previewResponse{Previews: previews, Failed: failed})
}
