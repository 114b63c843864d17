package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/lorrc/complaint-desk-bff/internal/adapters/primary/http/middleware"
	"github.com/lorrc/complaint-desk-bff/internal/adapters/secondary/restapi"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return mw.GetRequestID(ctx)
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error and writes the appropriate HTTP response
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	requestID := GetRequestID(r.Context())

	// Check for AppError first (our custom error type)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, appErr.Err, requestID)
		WriteJSON(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	// Check for ValidationErrors
	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err, requestID)
		WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:  "Données invalides",
			Code:   "VALIDATION_ERROR",
			Fields: validationErrs.Errors,
		})
		return
	}

	// Upstream failures come next so a 404 from the API is not mistaken
	// for a local lookup.
	if statusCode, response, ok := h.mapUpstreamError(err); ok {
		h.logError(r, statusCode, err, requestID)
		WriteJSON(w, statusCode, response)
		return
	}

	// Map known domain errors to HTTP responses
	statusCode, response := h.mapDomainError(err)
	h.logError(r, statusCode, err, requestID)
	WriteJSON(w, statusCode, response)
}

// mapUpstreamError converts restapi errors. Client errors from the upstream
// keep their status, anything else becomes a bad gateway.
func (h *ErrorHandler) mapUpstreamError(err error) (int, ErrorResponse, bool) {
	if statusErr, ok := restapi.AsStatusError(err); ok {
		if statusErr.ClientError() {
			return statusErr.StatusCode, ErrorResponse{
				Error: statusErr.Error(),
				Code:  "UPSTREAM_REJECTED",
			}, true
		}
		return http.StatusBadGateway, ErrorResponse{
			Error: statusErr.Error(),
			Code:  "UPSTREAM_ERROR",
		}, true
	}

	switch {
	case errors.Is(err, apperrors.ErrMalformedResponse):
		return http.StatusBadGateway, ErrorResponse{
			Error: "Réponse invalide du serveur",
			Code:  "UPSTREAM_MALFORMED",
		}, true
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: apperrors.TimeoutMessage,
			Code:  "UPSTREAM_TIMEOUT",
		}, true
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, ErrorResponse{
			Error: "Le serveur est injoignable",
			Code:  "UPSTREAM_UNAVAILABLE",
		}, true
	}
	return 0, ErrorResponse{}, false
}

// mapDomainError converts domain errors to HTTP status codes and responses
func (h *ErrorHandler) mapDomainError(err error) (int, ErrorResponse) {
	switch {
	// Authentication & Authorization
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{
			Error: "Authentification requise",
			Code:  "UNAUTHORIZED",
		}

	// Not Found errors
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Session introuvable",
			Code:  "SESSION_NOT_FOUND",
		}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error: "Ressource introuvable",
			Code:  "NOT_FOUND",
		}

	// Validation errors
	case errors.Is(err, apperrors.ErrTitreRequired),
		errors.Is(err, apperrors.ErrTitreTooLong),
		errors.Is(err, apperrors.ErrContenuRequired),
		errors.Is(err, apperrors.ErrServiceRequired),
		errors.Is(err, apperrors.ErrInvalidPriorite),
		errors.Is(err, apperrors.ErrInvalidStatut),
		errors.Is(err, apperrors.ErrInvalidPeriode),
		errors.Is(err, apperrors.ErrInvalidBucket),
		errors.Is(err, apperrors.ErrInvalidPanel),
		errors.Is(err, apperrors.ErrNotificationType),
		errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{
			Error: apperrors.Message(err),
			Code:  "VALIDATION_ERROR",
		}

	// Business rule violations
	case errors.Is(err, apperrors.ErrInvalidStatutTransition):
		return http.StatusConflict, ErrorResponse{
			Error: "Changement de statut impossible",
			Code:  "INVALID_STATUT_TRANSITION",
		}

	// Default to internal server error
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "Une erreur inattendue est survenue",
			Code:  "INTERNAL_ERROR",
		}
	}
}

// logError logs the error with appropriate context
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error, requestID string) {
	logAttrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	}

	// Log at different levels based on status code
	switch {
	case statusCode >= 500:
		h.logger.ErrorContext(r.Context(), "server error", logAttrs...)
	case statusCode >= 400:
		h.logger.WarnContext(r.Context(), "client error", logAttrs...)
	default:
		h.logger.InfoContext(r.Context(), "request error", logAttrs...)
	}
}

// HandleError Helper function to handle errors inline in handlers
// Usage: if HandleError(w, r, err, h.errorHandler) { return }
func HandleError(w http.ResponseWriter, r *http.Request, err error, handler *ErrorHandler) bool {
	if err != nil {
		handler.Handle(w, r, err)
		return true
	}
	return false
}
