package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/primary/validation"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/lorrc/complaint-desk-bff/internal/core/store"
)

const maxPlaintesPerPage = 100

// PlainteHandler handles HTTP requests for complaints
type PlainteHandler struct {
	sessionResolver
	logger *slog.Logger
}

// NewPlainteHandler creates a new complaint handler
func NewPlainteHandler(sessions SessionProvider, errorHandler *ErrorHandler, logger *slog.Logger) *PlainteHandler {
	return &PlainteHandler{
		sessionResolver: sessionResolver{sessions: sessions, errorHandler: errorHandler},
		logger:          logger.With("handler", "plainte"),
	}
}

// Router sets up a new chi Router for all complaint routes.
func (h *PlainteHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all complaint endpoints.
func (h *PlainteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreatePlainte)
	r.Post("/fetch", h.HandleFetchPlaintes)
	r.Post("/buckets/{bucket}/fetch", h.HandleFetchBucket)

	// Routes for a specific complaint
	r.Route("/{plainteID}", func(r chi.Router) {
		r.Get("/", h.HandleGetPlainte)
		r.Put("/", h.HandleUpdatePlainte)
		r.Patch("/statut", h.HandleUpdateStatut)
		r.Get("/suggestions", h.HandleGetSuggestions)
	})
}

// --- Request DTOs ---

// UpdateStatutRequest defines the expected JSON body for status changes
type UpdateStatutRequest struct {
	Statut string `json:"statut" validate:"required"`
}

// Parse validates the request and returns the normalised statut
func (r *UpdateStatutRequest) Parse() (domain.Statut, error) {
	next, err := domain.ParseStatut(r.Statut)
	if err != nil {
		v := validation.NewValidator()
		v.Custom("statut", false, "Statut inconnu (RECU, EN_COURS, TRAITE ou CLOTURE)")
		return "", v.Errors()
	}
	return next, nil
}

// --- Handlers ---

// HandleFetchBucket handles POST /plaintes/buckets/{bucket}/fetch?page&limit
func (h *PlainteHandler) HandleFetchBucket(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	bucket := domain.Bucket(chi.URLParam(r, "bucket"))
	if !bucket.IsValid() {
		v := validation.NewValidator()
		v.OneOf("bucket", string(bucket), []string{
			string(domain.BucketEnCours),
			string(domain.BucketTraitees),
			string(domain.BucketEnAttente),
		})
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	current := st.Snapshot().Pagination[bucket]
	page := validation.ParseIntQueryParam(r, "page", current.Page)
	limit := validation.ParseIntQueryParam(r, "limit", current.Limit)
	if limit > maxPlaintesPerPage {
		limit = maxPlaintesPerPage
	}

	st.FetchBucket(r.Context(), bucket, page, limit)

	snap := st.Snapshot()
	WriteJSON(w, http.StatusOK, ResourceResponse{
		Resource: string(store.ResourcePlaintes),
		Loading:  snap.Loading[store.ResourcePlaintes],
		Error:    snap.Errors[store.ResourcePlaintes],
		Data: struct {
			Plaintes   []domain.Plainte `json:"plaintes"`
			Pagination domain.PageState `json:"pagination"`
		}{
			Plaintes:   snap.Plaintes.Bucket(bucket),
			Pagination: snap.Pagination[bucket],
		},
	})
}

// HandleFetchPlaintes handles POST /plaintes/fetch?skip&limit
func (h *PlainteHandler) HandleFetchPlaintes(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	skip := validation.ParseIntQueryParam(r, "skip", 0)
	limit := validation.ParseIntQueryParam(r, "limit", domain.DefaultPageLimit)
	if limit > maxPlaintesPerPage {
		limit = maxPlaintesPerPage
	}

	st.FetchPlaintes(r.Context(), skip, limit)
	writeResource(w, st, store.ResourcePlaintes, func(s store.State) any { return s.Plaintes.Toutes })
}

// HandleGetPlainte handles GET /plaintes/{plainteID}
func (h *PlainteHandler) HandleGetPlainte(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("plainteID", chi.URLParam(r, "plainteID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	st.FetchPlainte(r.Context(), id)
	writeResource(w, st, store.ResourcePlainte, func(s store.State) any { return s.Plaintes.Courante })
}

// HandleGetSuggestions handles GET /plaintes/{plainteID}/suggestions
func (h *PlainteHandler) HandleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("plainteID", chi.URLParam(r, "plainteID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	st.FetchSuggestionsPlainte(r.Context(), id)
	writeResource(w, st, store.ResourceSuggestions, func(s store.State) any { return s.Suggestions.Plainte })
}

// HandleCreatePlainte handles POST /plaintes
func (h *PlainteHandler) HandleCreatePlainte(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[domain.PlainteInput](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	created, err := st.CreatePlainte(r.Context(), *req)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plainte created", "plainte_id", created.ID)
	WriteCreated(w, created)
}

// HandleUpdatePlainte handles PUT /plaintes/{plainteID}
func (h *PlainteHandler) HandleUpdatePlainte(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("plainteID", chi.URLParam(r, "plainteID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[domain.PlainteInput](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	updated, err := st.UpdatePlainte(r.Context(), id, *req)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, updated)
}

// HandleUpdateStatut handles PATCH /plaintes/{plainteID}/statut
func (h *PlainteHandler) HandleUpdateStatut(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("plainteID", chi.URLParam(r, "plainteID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateStatutRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	next, err := req.Parse()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	updated, err := st.ChangeStatut(r.Context(), id, next)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plainte statut updated",
		"plainte_id", id,
		"new_statut", next,
	)

	WriteJSON(w, http.StatusOK, updated)
}
