package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/primary/validation"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/lorrc/complaint-desk-bff/internal/core/store"
)

// AdminHandler serves the administration screens: hospital services and
// staff users.
type AdminHandler struct {
	sessionResolver
	logger *slog.Logger
}

func NewAdminHandler(sessions SessionProvider, errorHandler *ErrorHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		sessionResolver: sessionResolver{sessions: sessions, errorHandler: errorHandler},
		logger:          logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/services", func(r chi.Router) {
		r.Post("/fetch", h.HandleFetchServices)
		r.Post("/", h.HandleCreateService)
		r.Put("/{serviceID}", h.HandleUpdateService)
		r.Delete("/{serviceID}", h.HandleDeleteService)
	})

	r.Route("/utilisateurs", func(r chi.Router) {
		r.Post("/fetch", h.HandleFetchUtilisateurs)
		r.Post("/", h.HandleCreateUtilisateur)
		r.Put("/{utilisateurID}", h.HandleUpdateUtilisateur)
		r.Delete("/{utilisateurID}", h.HandleDeleteUtilisateur)
	})
}

// HandleFetchServices handles POST /services/fetch
func (h *AdminHandler) HandleFetchServices(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.FetchServices(r.Context())
	writeResource(w, st, store.ResourceServices, func(s store.State) any { return s.Services })
}

// HandleCreateService handles POST /services
func (h *AdminHandler) HandleCreateService(w http.ResponseWriter, r *http.Request) {
	h.saveService(w, r, 0)
}

// HandleUpdateService handles PUT /services/{serviceID}
func (h *AdminHandler) HandleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID("serviceID", chi.URLParam(r, "serviceID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.saveService(w, r, id)
}

func (h *AdminHandler) saveService(w http.ResponseWriter, r *http.Request, id int64) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	svc, err := validation.Decode[domain.Service](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	// The path decides between create and update.
	svc.ID = id

	saved, err := st.SaveService(r.Context(), *svc)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "service saved", "service_id", saved.ID, "created", id == 0)
	if id == 0 {
		WriteCreated(w, saved)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

// HandleDeleteService handles DELETE /services/{serviceID}
func (h *AdminHandler) HandleDeleteService(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("serviceID", chi.URLParam(r, "serviceID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := st.DeleteService(r.Context(), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "service deleted", "service_id", id)
	WriteNoContent(w)
}

// HandleFetchUtilisateurs handles POST /utilisateurs/fetch
func (h *AdminHandler) HandleFetchUtilisateurs(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	st.FetchUtilisateurs(r.Context())
	writeResource(w, st, store.ResourceUtilisateurs, func(s store.State) any { return s.Utilisateurs })
}

// HandleCreateUtilisateur handles POST /utilisateurs
func (h *AdminHandler) HandleCreateUtilisateur(w http.ResponseWriter, r *http.Request) {
	h.saveUtilisateur(w, r, 0)
}

// HandleUpdateUtilisateur handles PUT /utilisateurs/{utilisateurID}
func (h *AdminHandler) HandleUpdateUtilisateur(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID("utilisateurID", chi.URLParam(r, "utilisateurID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.saveUtilisateur(w, r, id)
}

func (h *AdminHandler) saveUtilisateur(w http.ResponseWriter, r *http.Request, id int64) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	user, err := validation.Decode[domain.Utilisateur](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	user.ID = id

	saved, err := st.SaveUtilisateur(r.Context(), *user)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "utilisateur saved", "utilisateur_id", saved.ID, "created", id == 0)
	if id == 0 {
		WriteCreated(w, saved)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

// HandleDeleteUtilisateur handles DELETE /utilisateurs/{utilisateurID}
func (h *AdminHandler) HandleDeleteUtilisateur(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("utilisateurID", chi.URLParam(r, "utilisateurID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := st.DeleteUtilisateur(r.Context(), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "utilisateur deleted", "utilisateur_id", id)
	WriteNoContent(w)
}
