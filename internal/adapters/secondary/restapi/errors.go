package restapi

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
	// Detail is the upstream "detail" or "message" field, when present.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Erreur %d du serveur", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return apperrors.ErrUpstream
}

// Is lets callers test a 404 against apperrors.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == apperrors.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// ClientError reports whether the upstream rejected the request itself.
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// DecodeError is returned when a 2xx body cannot be decoded or fails
// validation.
type DecodeError struct {
	Method string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Réponse invalide du serveur (%s %s): %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{apperrors.ErrMalformedResponse, e.Err}
}

// AsStatusError is a small helper around errors.As.
func AsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	ok := errors.As(err, &statusErr)
	return statusErr, ok
}
