package fleet

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/exports"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Handler wires HTTP endpoints for vehicles.
type Handler struct {
	logger  *slog.Logger
	service *Service
	maxBody int64
}

// NewHandler constructs a Handler. maxBody bounds multipart submissions.
func NewHandler(logger *slog.Logger, service *Service, maxBody int64) *Handler {
	return &Handler{logger: logger, service: service, maxBody: maxBody}
}

// MountRoutes registers vehicle routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export", h.export)
	r.Post("/validate", h.validate)
	r.Post("/", h.onboard)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	st := listview.ParseState(Schema(), r.URL.Query())
	res, err := h.service.List(r.Context(), st)
	if err != nil {
		h.logger.Error("list vehicles failed", "error", err)
	}
	httpx.JSON(w, httpx.StatusFor(err), listview.NewEnvelope(res, shared.UserSafeMessage(err, actor.Role)))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	st := listview.ParseState(Schema(), r.URL.Query())
	file, err := h.service.Export(r.Context(), st.Filter)
	if err != nil {
		h.logger.Error("export vehicles failed", "error", err)
		httpx.RespondError(w, err, shared.ActorFromContext(r.Context()).Role)
		return
	}
	exports.Write(w, file)
}

type validateResponse struct {
	Valid  bool               `json:"valid"`
	Errors shared.FieldErrors `json:"errors"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var form OnboardingForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "The request body is not valid JSON.")
		return
	}
	errs := h.service.Validate(form, nil, r.URL.Query().Get("step"))
	httpx.JSON(w, http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

// onboard accepts multipart/form-data: the form as JSON in "payload" and
// documents in "documents".
func (h *Handler) onboard(w http.ResponseWriter, r *http.Request) {
	role := shared.ActorFromContext(r.Context()).Role
	documents, err := attachments.ReadMultipart(w, r, "documents", h.maxBody)
	if err != nil {
		httpx.RespondError(w, err, role)
		return
	}
	var form OnboardingForm
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &form); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: payload is not valid JSON", shared.ErrValidation), role)
		return
	}
	onboarded, err := h.service.Onboard(r.Context(), form, documents)
	if err != nil {
		h.logger.Warn("onboard vehicle failed", "error", err)
		httpx.RespondError(w, err, role)
		return
	}
	httpx.JSON(w, http.StatusCreated, onboarded)
}
