package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lorrc/complaint-desk-bff/internal/adapters/secondary/restapi"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler_Handle(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	verrs := apperrors.NewValidationErrors()
	verrs.Add("nom", "Le nom est obligatoire")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"app error", apperrors.NewNotFoundError(apperrors.ErrInvalidPanel, "Panneau inconnu"), http.StatusNotFound, "NOT_FOUND"},
		{"validation errors", verrs, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"upstream client error", &restapi.StatusError{StatusCode: http.StatusConflict, Detail: "Déjà traité"}, http.StatusConflict, "UPSTREAM_REJECTED"},
		{"upstream not found", &restapi.StatusError{StatusCode: http.StatusNotFound}, http.StatusNotFound, "UPSTREAM_REJECTED"},
		{"upstream server error", &restapi.StatusError{StatusCode: http.StatusInternalServerError}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"malformed payload", &restapi.DecodeError{Method: "GET", Path: "/statistiques", Err: errors.New("bad")}, http.StatusBadGateway, "UPSTREAM_MALFORMED"},
		{"timeout", fmt.Errorf("fetch stats: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{"unreachable", fmt.Errorf("dial: %w", apperrors.ErrUpstream), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"backward transition", apperrors.ErrInvalidStatutTransition, http.StatusConflict, "INVALID_STATUT_TRANSITION"},
		{"form error", apperrors.ErrTitreRequired, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"session gone", apperrors.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			handler.Handle(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnprocessableEntity {
				resp := decodeBody[ValidationErrorResponse](t, rec)
				assert.Equal(t, tt.wantCode, resp.Code)
				assert.Contains(t, resp.Fields, "nom")
				return
			}
			assert.Equal(t, tt.wantCode, decodeBody[ErrorResponse](t, rec).Code)
		})
	}
}

func TestErrorHandler_FormErrorMessageIsShown(t *testing.T) {
	handler := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()

	handler.Handle(rec, httptest.NewRequest(http.MethodPost, "/", nil), apperrors.ErrContenuRequired)

	assert.Equal(t, "Le contenu est obligatoire", decodeBody[ErrorResponse](t, rec).Error)
}
