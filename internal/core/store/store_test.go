package store_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/lorrc/complaint-desk-bff/internal/core/mocks"
	"github.com/lorrc/complaint-desk-bff/internal/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...store.Option) (*store.Store, *mocks.MockAPIClient) {
	t.Helper()

	api := mocks.NewMockAPIClient()
	opts = append([]store.Option{store.WithLogger(discardLogger())}, opts...)
	s := store.New(api, opts...)
	t.Cleanup(s.Close)
	return s, api
}

func TestStore_InitialState(t *testing.T) {
	s, _ := newTestStore(t)

	st := s.Snapshot()

	for _, r := range store.Resources {
		assert.False(t, st.Loading[r], "loading.%s", r)
		assert.Nil(t, st.Errors[r], "errors.%s", r)
	}
	for _, b := range domain.Buckets {
		assert.Equal(t, domain.PageState{Page: 1, Limit: domain.DefaultPageLimit}, st.Pagination[b])
	}
	assert.Equal(t, domain.DefaultActiveTab, st.UI.ActiveTab)
	assert.False(t, st.UI.ServiceConfig.IsOpen)
	assert.Empty(t, st.Notifications)
	assert.Nil(t, st.Statistiques)
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s, api := newTestStore(t)
	ctx := context.Background()

	page := &domain.PlaintePage{
		Plaintes: []domain.Plainte{{ID: 1, Titre: "Attente trop longue"}},
		Total:    1,
	}
	api.On("GetPlaintesParStatut", mock.Anything, domain.BucketEnCours, 1, 10).Return(page, nil)
	s.FetchPlaintesEnCours(ctx, 1, 10)

	snap := s.Snapshot()
	snap.Plaintes.EnCours[0].Titre = "modifié"
	snap.UI.ExpandedSections["kpi"] = true
	snap.Pagination[domain.BucketEnCours] = domain.PageState{Page: 9}

	fresh := s.Snapshot()
	require.Len(t, fresh.Plaintes.EnCours, 1)
	assert.Equal(t, "Attente trop longue", fresh.Plaintes.EnCours[0].Titre)
	assert.Empty(t, fresh.UI.ExpandedSections)
	assert.Equal(t, 1, fresh.Pagination[domain.BucketEnCours].Page)
}

func TestStore_PublishesStateChanges(t *testing.T) {
	publisher := mocks.NewRecordingPublisher()
	s, api := newTestStore(t, store.WithPublisher(publisher))

	api.On("GetStatistiques", mock.Anything).Return(&domain.Statistiques{TotalPlaintes: 3}, nil)
	s.FetchStats(context.Background())
	s.OpenExportModal("csv")

	assert.Equal(t, []domain.Topic{
		domain.TopicStats,
		domain.TopicStats,
		domain.TopicUI,
	}, publisher.Topics())
}
