package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/primary/validation"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/lorrc/complaint-desk-bff/internal/core/store"
)

// StateHandler exposes the store snapshot and the read-side actions that are
// not tied to one complaint: statistics, trends, suggestions, batch
// processing and the audit log.
type StateHandler struct {
	sessionResolver
	logger *slog.Logger
}

// NewStateHandler creates a new state handler
func NewStateHandler(sessions SessionProvider, errorHandler *ErrorHandler, logger *slog.Logger) *StateHandler {
	return &StateHandler{
		sessionResolver: sessionResolver{sessions: sessions, errorHandler: errorHandler},
		logger:          logger.With("handler", "state"),
	}
}

// RegisterRoutes sets up the routing for the state endpoints.
func (h *StateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.HandleGetState)
	r.Post("/dashboard/refresh", h.HandleRefreshDashboard)
	r.Post("/stats/fetch", h.HandleFetchStats)
	r.Post("/tendances/fetch", h.HandleFetchTendances)
	r.Get("/audit", h.HandleGetAudit)

	r.Post("/suggestions/fetch", h.HandleFetchSuggestions)
	r.Post("/suggestions/invalidate", h.HandleInvalidateSuggestions)

	r.Post("/processing/files", h.HandleProcessFiles)
	r.Post("/processing/services/{name}", h.HandleProcessService)
}

// HandleGetState handles GET /state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, st.Snapshot())
}

// HandleRefreshDashboard handles POST /dashboard/refresh?periode=
func (h *StateHandler) HandleRefreshDashboard(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	periode := domain.Periode(validation.ParseStringQueryParam(r, "periode"))
	if err := st.RefreshDashboard(r.Context(), periode); err != nil {
		// Each failure is already recorded in its error slot.
		h.logger.DebugContext(r.Context(), "dashboard refreshed with errors", "error", err)
	}

	WriteJSON(w, http.StatusOK, st.Snapshot())
}

// HandleFetchStats handles POST /stats/fetch
func (h *StateHandler) HandleFetchStats(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.FetchStats(r.Context())
	writeResource(w, st, store.ResourceStats, func(s store.State) any { return s.Statistiques })
}

// HandleFetchTendances handles POST /tendances/fetch?periode=
func (h *StateHandler) HandleFetchTendances(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	periode := domain.Periode(validation.ParseStringQueryParam(r, "periode"))
	if periode == "" {
		periode = domain.DefaultPeriode
	}

	st.FetchTendances(r.Context(), periode)
	writeResource(w, st, store.ResourceTendances, func(s store.State) any { return s.Tendances })
}

// HandleGetAudit handles GET /audit?action&objet_type&limit&skip
func (h *StateHandler) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	filter := domain.AuditFilter{
		Action:    validation.ParseStringQueryParam(r, "action"),
		ObjetType: validation.ParseStringQueryParam(r, "objet_type"),
		Limit:     validation.ParseIntQueryParam(r, "limit", domain.DefaultAuditLimit),
		Skip:      validation.ParseIntQueryParam(r, "skip", 0),
	}

	st.FetchAuditLog(r.Context(), filter)
	writeResource(w, st, store.ResourceAudit, func(s store.State) any { return s.Audit })
}

// HandleFetchSuggestions handles POST /suggestions/fetch
func (h *StateHandler) HandleFetchSuggestions(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.FetchSuggestionsParService(r.Context())
	writeResource(w, st, store.ResourceSuggestions, func(s store.State) any { return s.Suggestions.ParService })
}

// HandleInvalidateSuggestions handles POST /suggestions/invalidate
func (h *StateHandler) HandleInvalidateSuggestions(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.InvalidateSuggestions()
	WriteNoContent(w)
}

// HandleProcessFiles handles POST /processing/files
func (h *StateHandler) HandleProcessFiles(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.ProcessAllFiles(r.Context())
	writeResource(w, st, store.ResourceProcessing, func(s store.State) any { return s.Suggestions.ParService })
}

// HandleProcessService handles POST /processing/services/{name}
func (h *StateHandler) HandleProcessService(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.Handle(w, r, validation.NewValidator().Custom("name", false, "Nom de service invalide").Errors())
		return
	}
	st.ProcessService(r.Context(), name)

	h.logger.InfoContext(r.Context(), "service processed", "service", name)
	writeResource(w, st, store.ResourceProcessing, func(s store.State) any { return s.Suggestions.ParService })
}
