package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
)

const (
	getPreferencesSQL = `
SELECT version, data
FROM ui_preferences
WHERE user_id = $1`

	upsertPreferencesSQL = `
INSERT INTO ui_preferences (user_id, version, data, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (user_id) DO UPDATE
SET version = EXCLUDED.version,
    data = EXCLUDED.data,
    updated_at = NOW()`

	deletePreferencesSQL = `DELETE FROM ui_preferences WHERE user_id = $1`
)

// PreferencesRepository stores the UI preferences of each user as JSONB. The
// version column is kept outside the document so a reader can reject old
// layouts without decoding them.
type PreferencesRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)

func NewPreferencesRepository(pool *pgxpool.Pool) *PreferencesRepository {
	return &PreferencesRepository{pool: pool}
}

// preferencesDocument is the JSONB layout of the data column.
type preferencesDocument struct {
	ActiveTab        string                                  `json:"activeTab"`
	ExpandedSections map[string]bool                         `json:"expandedSections"`
	Pagination       map[domain.Bucket]domain.PagePreference `json:"pagination"`
}

func (r *PreferencesRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.UIPreferences, error) {
	var (
		version int
		data    []byte
	)
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, getPreferencesSQL, pgUUID(userID)).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	prefs := &domain.UIPreferences{Version: version}
	if version != domain.PreferencesVersion {
		// Callers discard other versions; the document layout may differ.
		return prefs, nil
	}

	var doc preferencesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	prefs.ActiveTab = doc.ActiveTab
	prefs.ExpandedSections = doc.ExpandedSections
	prefs.Pagination = doc.Pagination
	if prefs.ExpandedSections == nil {
		prefs.ExpandedSections = make(map[string]bool)
	}
	if prefs.Pagination == nil {
		prefs.Pagination = make(map[domain.Bucket]domain.PagePreference)
	}
	return prefs, nil
}

func (r *PreferencesRepository) Save(ctx context.Context, userID uuid.UUID, prefs domain.UIPreferences) error {
	data, err := json.Marshal(preferencesDocument{
		ActiveTab:        prefs.ActiveTab,
		ExpandedSections: prefs.ExpandedSections,
		Pagination:       prefs.Pagination,
	})
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if _, err := GetDBTX(ctx, r.pool).Exec(ctx, upsertPreferencesSQL, pgUUID(userID), prefs.Version, data); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

func (r *PreferencesRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, deletePreferencesSQL, pgUUID(userID))
	if err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
