package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/lorrc/complaint-desk-bff/internal/adapters/primary/http/middleware"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/core/store"
)

// SessionProvider resolves the store of an authenticated user.
type SessionProvider interface {
	Session(ctx context.Context, userID uuid.UUID) (*store.Store, error)
	ResetPreferences(ctx context.Context, userID uuid.UUID) error
}

// sessionResolver is shared by every handler that acts on the caller's store.
type sessionResolver struct {
	sessions     SessionProvider
	errorHandler *ErrorHandler
}

// getClaims extracts and validates user claims from the request context
func (s sessionResolver) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Authentification requise",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// store returns the caller's store, writing the error response when it
// cannot be resolved.
func (s sessionResolver) store(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	claims, ok := s.getClaims(w, r)
	if !ok {
		return nil, false
	}

	st, err := s.sessions.Session(r.Context(), claims.UserID)
	if err != nil {
		s.errorHandler.Handle(w, r, err)
		return nil, false
	}
	return st, true
}

// writeResource reports the slot res of st after an action.
func writeResource(w http.ResponseWriter, st *store.Store, res store.Resource, data func(store.State) any) {
	snap := st.Snapshot()
	WriteJSON(w, http.StatusOK, ResourceResponse{
		Resource: string(res),
		Loading:  snap.Loading[res],
		Error:    snap.Errors[res],
		Data:     data(snap),
	})
}
