package requisitions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Handler wires HTTP endpoints for requisition indents.
type Handler struct {
	logger  *slog.Logger
	service *Service
	maxBody int64
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, maxBody int64) *Handler {
	return &Handler{logger: logger, service: service, maxBody: maxBody}
}

// MountRoutes registers requisition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/validate", h.validate)
	r.Post("/", h.submit)
	r.Post("/items/{index}/attachments", h.attach)
}

type validateResponse struct {
	Valid  bool               `json:"valid"`
	Errors shared.FieldErrors `json:"errors"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var in Indent
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "The request body is not valid JSON.")
		return
	}
	errs := h.service.Validate(in)
	httpx.JSON(w, http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	role := shared.ActorFromContext(r.Context()).Role
	var in Indent
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "The request body is not valid JSON.")
		return
	}
	out, err := h.service.Submit(r.Context(), in)
	if err != nil {
		h.logger.Warn("submit requisition failed", slog.Any("error", err))
		httpx.RespondError(w, err, role)
		return
	}
	httpx.JSON(w, http.StatusCreated, out)
}

type attachResponse struct {
	Indent   Indent                `json:"indent"`
	Previews []attachments.Preview `json:"previews"`
	Failed   int                   `json:"failed"`
}

// attach accepts multipart/form-data: the current indent as JSON in
// "indent" and the files in "files".
func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	role := shared.ActorFromContext(r.Context()).Role
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: item index must be a number", shared.ErrValidation), role)
		return
	}
	uploads, err := attachments.ReadMultipart(w, r, attachments.FormField, h.maxBody)
	if err == nil && len(uploads) == 0 {
		err = attachments.ErrNoFiles
	}
	if err != nil {
		httpx.RespondError(w, err, role)
		return
	}
	var in Indent
	if err := json.Unmarshal([]byte(r.FormValue("indent")), &in); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: indent is not valid JSON", shared.ErrValidation), role)
		return
	}
	out, previews, err := h.service.Attach(r.Context(), in, index, uploads)
	if err != nil {
		h.logger.Warn("attach requisition files failed", slog.Int("index", index), slog.Any("error", err))
		httpx.RespondError(w, err, role)
		return
	}
	failed := len(previews) - len(attachments.Succeeded(previews))
	httpx.JSON(w, http.StatusOK, attachResponse{Indent: out, Previews: previews, Failed: failed})
}
