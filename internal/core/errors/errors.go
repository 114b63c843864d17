package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UnknownErrorMessage is shown when an error carries no usable message.
const UnknownErrorMessage = "Erreur inconnue"

// TimeoutMessage is shown when an upstream call exceeded the fetch timeout.
const TimeoutMessage = "Le serveur n'a pas répondu à temps"

// Domain errors. The French ones are shown to the desk staff as is.
var (
	// Authentication
	ErrUnauthorized = errors.New("authentification requise")

	// Complaint validation
	ErrTitreRequired           = errors.New("Le titre est obligatoire")
	ErrTitreTooLong            = errors.New("Le titre doit contenir 255 caractères au maximum")
	ErrContenuRequired         = errors.New("Le contenu est obligatoire")
	ErrServiceRequired         = errors.New("Le service est obligatoire")
	ErrInvalidPriorite         = errors.New("Priorité inconnue")
	ErrInvalidStatut           = errors.New("Statut inconnu")
	ErrInvalidStatutTransition = errors.New("Une plainte ne peut pas revenir à un statut antérieur")

	// Store inputs
	ErrInvalidPeriode   = errors.New("Période inconnue")
	ErrInvalidBucket    = errors.New("Liste de plaintes inconnue")
	ErrInvalidPanel     = errors.New("Panneau inconnu")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotificationType = errors.New("Type de notification inconnu")

	// Upstream API
	ErrUpstream          = errors.New("upstream request failed")
	ErrMalformedResponse = errors.New("malformed upstream response")

	// Generic
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}

// Message converts any error into the human-readable string stored in the
// store's error slots and shown in notifications.
func Message(err error) string {
	if err == nil {
		return UnknownErrorMessage
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutMessage
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return UnknownErrorMessage
	}
	return msg
}
