package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/primary/validation"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// NotificationHandler exposes the notification queue of the caller's store.
type NotificationHandler struct {
	sessionResolver
	logger *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(sessions SessionProvider, errorHandler *ErrorHandler, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		sessionResolver: sessionResolver{sessions: sessions, errorHandler: errorHandler},
		logger:          logger.With("handler", "notification"),
	}
}

// RegisterRoutes sets up the routing for the notification endpoints.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListNotifications)
	r.Post("/", h.HandleShowNotification)
	r.Delete("/{notificationID}", h.HandleRemoveNotification)
}

// MaxNotificationDuration caps the lifetime a client may ask for.
const MaxNotificationDuration = 24 * time.Hour

// ShowNotificationRequest defines the expected JSON body for a new message.
// Duration is in milliseconds; zero uses the default.
type ShowNotificationRequest struct {
	Type     string `json:"type" validate:"required,oneof=success error"`
	Message  string `json:"message" validate:"required,max=500"`
	Duration int64  `json:"duration" validate:"gte=0,lte=86400000"`
}

// HandleListNotifications handles GET /notifications
func (h *NotificationHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	WriteList(w, st.Notifications())
}

// HandleShowNotification handles POST /notifications
func (h *NotificationHandler) HandleShowNotification(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[ShowNotificationRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	kind := domain.NotificationType(req.Type)
	if !kind.IsValid() {
		h.errorHandler.Handle(w, r, apperrors.ErrNotificationType)
		return
	}

	n := st.ShowNotification(kind, req.Message, time.Duration(req.Duration)*time.Millisecond)
	WriteCreated(w, n)
}

// HandleRemoveNotification handles DELETE /notifications/{notificationID}.
// Removing an unknown id is not an error.
func (h *NotificationHandler) HandleRemoveNotification(w http.ResponseWriter, r *http.Request) {
	st, ok := h.store(w, r)
	if !ok {
		return
	}

	id, err := validation.ParseID("notificationID", chi.URLParam(r, "notificationID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if !st.RemoveNotification(id) {
		h.logger.DebugContext(r.Context(), "notification already gone", "notification_id", id)
	}
	WriteNoContent(w)
}
