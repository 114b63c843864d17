package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
)

// PreferencesRepository persists the per-user UI and pagination preferences.
// Get returns apperrors.ErrNotFound when the user never saved any.
type PreferencesRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.UIPreferences, error)
	Save(ctx context.Context, userID uuid.UUID, prefs domain.UIPreferences) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
