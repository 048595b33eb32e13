package employees

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/exports"
	"github.com/odyssey-erp/odyssey-admin/internal/listview"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Handler wires HTTP endpoints for employees.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers employee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export", h.export)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	st := listview.ParseState(Schema(), r.URL.Query())
	res, err := h.service.List(r.Context(), st)
	if err != nil {
		h.logger.Error("list employees failed", "error", err)
	}
	notice := shared.UserSafeMessage(err, shared.ActorFromContext(r.Context()).Role)
	httpx.JSON(w, httpx.StatusFor(err), listview.NewEnvelope(res, notice))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	st := listview.ParseState(Schema(), r.URL.Query())
	file, err := h.service.Export(r.Context(), st.Filter)
	if err != nil {
		h.logger.Error("export employees failed", "error", err)
		httpx.RespondError(w, err, shared.ActorFromContext(r.Context()).Role)
		return
	}
	exports.Write(w, file)
}
