package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/primary/validation"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// DefaultExportFormat is used when the export modal is opened without one.
const DefaultExportFormat = "csv"

// UIHandler drives the panel, tab and section state of the caller's store.
type UIHandler struct {
	sessionResolver
	logger *slog.Logger
}

// NewUIHandler creates a new UI handler
func NewUIHandler(sessions SessionProvider, errorHandler *ErrorHandler, logger *slog.Logger) *UIHandler {
	return &UIHandler{
		sessionResolver: sessionResolver{sessions: sessions, errorHandler: errorHandler},
		logger:          logger.With("handler", "ui"),
	}
}

// RegisterRoutes sets up the routing for the UI endpoints.
func (h *UIHandler) RegisterRoutes(r chi.Router) {
	r.Post("/panels/close-all", h.HandleCloseAllPanels)
	r.Post("/panels/{panel}/open", h.HandleOpenPanel)
	r.Post("/panels/{panel}/close", h.HandleClosePanel)
	r.Put("/tab", h.HandleSetActiveTab)
	r.Post("/sections/{name}/toggle", h.HandleToggleSection)
	r.Put("/selected-service", h.HandleSetSelectedService)
	r.Delete("/preferences", h.HandleResetPreferences)
}

// --- Request DTOs ---

// OpenPanelRequest carries the optional arguments of every panel. Only the
// fields of the opened panel are read; an empty body opens it in create mode.
type OpenPanelRequest struct {
	Service        *domain.Service     `json:"service,omitempty"`
	Utilisateur    *domain.Utilisateur `json:"utilisateur,omitempty"`
	OrganisationID *string             `json:"organisationId,omitempty"`
	Format         string              `json:"format,omitempty"`
	DefaultService string              `json:"defaultService,omitempty"`
}

// SetActiveTabRequest defines the expected JSON body for tab switches
type SetActiveTabRequest struct {
	Tab string `json:"tab" validate:"required,max=64"`
}

// SetSelectedServiceRequest defines the expected JSON body for the
// processing marker. An empty service clears it.
type SetSelectedServiceRequest struct {
	Service string `json:"service" validate:"max=255"`
}

// SectionResponse reports the state of a toggled section.
type SectionResponse struct {
	Section  string `json:"section"`
	Expanded bool   `json:"expanded"`
}

// --- Handlers ---

// HandleOpenPanel handles POST /ui/panels/{panel}/open
func (h *UIHandler) HandleOpenPanel(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	panel := domain.Panel(chi.URLParam(r, "panel"))
	if !panel.IsValid() {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError(apperrors.ErrInvalidPanel, "Panneau inconnu"))
		return
	}

	req, err := validation.Decode[OpenPanelRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	switch panel {
	case domain.PanelServiceConfig:
		st.OpenServiceConfigPanel(req.Service, req.OrganisationID)
	case domain.PanelUserConfig:
		st.OpenUserConfigPanel(req.Utilisateur, req.OrganisationID)
	case domain.PanelExportModal:
		format := req.Format
		if format == "" {
			format = DefaultExportFormat
		}
		st.OpenExportModal(format)
	case domain.PanelPlainteModal:
		st.OpenPlainteModal(req.DefaultService)
	}

	WriteJSON(w, http.StatusOK, st.Snapshot().UI)
}

// HandleClosePanel handles POST /ui/panels/{panel}/close
func (h *UIHandler) HandleClosePanel(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	if err := st.ClosePanel(domain.Panel(chi.URLParam(r, "panel"))); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError(err, "Panneau inconnu"))
		return
	}

	WriteJSON(w, http.StatusOK, st.Snapshot().UI)
}

// HandleCloseAllPanels handles POST /ui/panels/close-all
func (h *UIHandler) HandleCloseAllPanels(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.CloseAllPanels()
	WriteJSON(w, http.StatusOK, st.Snapshot().UI)
}

// HandleSetActiveTab handles PUT /ui/tab
func (h *UIHandler) HandleSetActiveTab(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[SetActiveTabRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	st.SetActiveTab(req.Tab)
	WriteJSON(w, http.StatusOK, st.Snapshot().UI)
}

// HandleToggleSection handles POST /ui/sections/{name}/toggle
func (h *UIHandler) HandleToggleSection(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		h.errorHandler.Handle(w, r, validation.NewValidator().Custom("name", false, "Nom de section invalide").Errors())
		return
	}

	WriteJSON(w, http.StatusOK, SectionResponse{
		Section:  name,
		Expanded: st.ToggleSection(name),
	})
}

// HandleSetSelectedService handles PUT /ui/selected-service
func (h *UIHandler) HandleSetSelectedService(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[SetSelectedServiceRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	st.SetSelectedService(req.Service)
	WriteJSON(w, http.StatusOK, st.Snapshot().UI)
}

// HandleResetPreferences handles DELETE /ui/preferences. The saved record is
// removed and the live store goes back to the defaults.
func (h *UIHandler) HandleResetPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	if err := h.sessions.ResetPreferences(r.Context(), claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "preferences reset")
	WriteNoContent(w)
}
