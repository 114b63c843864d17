package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/lorrc/complaint-desk-bff/internal/core/mocks"
	"github.com/lorrc/complaint-desk-bff/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	api         *mocks.MockAPIClient
	repo        *mocks.MockPreferencesRepository
	broadcaster *mocks.MockEventBroadcaster
	manager     *services.SessionManager
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		api:         mocks.NewMockAPIClient(),
		repo:        mocks.NewMockPreferencesRepository(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}
	f.broadcaster.On("Broadcast", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.manager = services.NewSessionManager(
		f.api,
		f.repo,
		f.broadcaster,
		services.SessionConfig{FetchTimeout: time.Second, NotificationDuration: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	t.Cleanup(f.manager.Shutdown)
	return f
}

func TestSessionManager_Session(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once and reuses the store", func(t *testing.T) {
		f := newSessionFixture(t)
		userID := uuid.New()
		f.repo.On("Get", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()

		first, err := f.manager.Session(ctx, userID)
		require.NoError(t, err)
		second, err := f.manager.Session(ctx, userID)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, f.manager.ActiveSessions())
		f.repo.AssertExpectations(t)
	})

	t.Run("restores saved preferences", func(t *testing.T) {
		f := newSessionFixture(t)
		userID := uuid.New()
		saved := domain.DefaultUIPreferences()
		saved.ActiveTab = "audit"
		saved.Pagination[domain.BucketEnCours] = domain.PagePreference{Page: 3, Limit: 20}
		f.repo.On("Get", ctx, userID).Return(&saved, nil).Once()

		st, err := f.manager.Session(ctx, userID)
		require.NoError(t, err)

		snap := st.Snapshot()
		assert.Equal(t, "audit", snap.UI.ActiveTab)
		assert.Equal(t, 3, snap.Pagination[domain.BucketEnCours].Page)
		assert.Equal(t, 20, snap.Pagination[domain.BucketEnCours].Limit)
	})

	t.Run("old version falls back to defaults", func(t *testing.T) {
		f := newSessionFixture(t)
		userID := uuid.New()
		saved := domain.DefaultUIPreferences()
		saved.Version = 0
		saved.ActiveTab = "audit"
		f.repo.On("Get", ctx, userID).Return(&saved, nil).Once()

		st, err := f.manager.Session(ctx, userID)
		require.NoError(t, err)

		assert.Equal(t, domain.DefaultActiveTab, st.Snapshot().UI.ActiveTab)
	})

	t.Run("repository failure falls back to defaults", func(t *testing.T) {
		f := newSessionFixture(t)
		userID := uuid.New()
		f.repo.On("Get", ctx, userID).Return(nil, errors.New("connection refused")).Once()

		st, err := f.manager.Session(ctx, userID)
		require.NoError(t, err)

		assert.Equal(t, domain.DefaultActiveTab, st.Snapshot().UI.ActiveTab)
	})

	t.Run("nil user is unauthorized", func(t *testing.T) {
		f := newSessionFixture(t)

		_, err := f.manager.Session(ctx, uuid.Nil)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestSessionManager_PersistsPreferences(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	userID := uuid.New()
	f.repo.On("Get", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()
	f.repo.On("Save", mock.Anything, userID, mock.MatchedBy(func(p domain.UIPreferences) bool {
		return p.Version == domain.PreferencesVersion
	})).Return(nil)

	st, err := f.manager.Session(ctx, userID)
	require.NoError(t, err)

	st.SetActiveTab("services")
	f.manager.Shutdown()

	f.repo.AssertCalled(t, "Save", mock.Anything, userID, mock.MatchedBy(func(p domain.UIPreferences) bool {
		return p.ActiveTab == "services"
	}))
}

func TestSessionManager_PublishesToTheUser(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	userID := uuid.New()
	f.repo.On("Get", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()

	st, err := f.manager.Session(ctx, userID)
	require.NoError(t, err)
	st.OpenExportModal("csv")

	f.broadcaster.AssertCalled(t, "Broadcast", userID, domain.NewStateChangedEvent(domain.TopicUI))
}

func TestSessionManager_HandleClientCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("escape closes every panel", func(t *testing.T) {
		f := newSessionFixture(t)
		userID := uuid.New()
		f.repo.On("Get", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()
		st, err := f.manager.Session(ctx, userID)
		require.NoError(t, err)
		st.OpenServiceConfigPanel(nil, nil)
		st.OpenPlainteModal("Urgences")

		err = f.manager.HandleClientCommand(ctx, userID, domain.ClientEscape)

		require.NoError(t, err)
		ui := st.Snapshot().UI
		assert.False(t, ui.ServiceConfig.IsOpen)
		assert.False(t, ui.PlainteModal.IsOpen)
	})

	t.Run("outside click without a session", func(t *testing.T) {
		f := newSessionFixture(t)

		err := f.manager.HandleClientCommand(ctx, uuid.New(), domain.ClientOutsideClick)

		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("unknown command", func(t *testing.T) {
		f := newSessionFixture(t)

		err := f.manager.HandleClientCommand(ctx, uuid.New(), domain.ClientMessageType("JUMP"))

		assert.ErrorIs(t, err, apperrors.ErrBadRequest)
	})
}

func TestSessionManager_ResetPreferences(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	userID := uuid.New()
	saved := domain.DefaultUIPreferences()
	saved.ActiveTab = "audit"
	f.repo.On("Get", ctx, userID).Return(&saved, nil).Once()
	f.repo.On("Delete", ctx, userID).Return(nil).Once()

	st, err := f.manager.Session(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, "audit", st.Snapshot().UI.ActiveTab)

	require.NoError(t, f.manager.ResetPreferences(ctx, userID))

	assert.Equal(t, domain.DefaultActiveTab, st.Snapshot().UI.ActiveTab)
	f.repo.AssertExpectations(t)
}

func TestSessionManager_EvictIdle(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t)
	userID := uuid.New()
	f.repo.On("Get", ctx, userID).Return(nil, apperrors.ErrNotFound)

	_, err := f.manager.Session(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.manager.EvictIdle(time.Hour))
	assert.Equal(t, 1, f.manager.EvictIdle(-time.Minute))
	assert.Equal(t, 0, f.manager.ActiveSessions())

	_, err = f.manager.Lookup(userID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
