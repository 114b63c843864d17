package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validInput() domain.PlainteInput {
	return domain.PlainteInput{
		Titre:    "Temps d'attente",
		Contenu:  "Quatre heures aux urgences sans information.",
		Service:  "Urgences",
		Priorite: domain.PrioriteHaute,
	}
}

func lastNotification(t *testing.T, list []domain.Notification) domain.Notification {
	t.Helper()
	require.NotEmpty(t, list)
	return list[len(list)-1]
}

func TestStore_CreatePlainte(t *testing.T) {
	ctx := context.Background()

	t.Run("success closes modal and refreshes", func(t *testing.T) {
		s, api := newTestStore(t)
		input := validInput()
		api.On("CreatePlainte", mock.Anything, input).Return(&domain.Plainte{ID: 12, Titre: input.Titre}, nil).Once()
		api.On("GetPlaintesParStatut", mock.Anything, domain.BucketEnAttente, 1, 10).
			Return(&domain.PlaintePage{Plaintes: plaintes(12), Total: 1}, nil).Once()
		api.On("GetStatistiques", mock.Anything).Return(&domain.Statistiques{TotalPlaintes: 1}, nil).Once()

		s.OpenPlainteModal("Urgences")
		created, err := s.CreatePlainte(ctx, input)

		require.NoError(t, err)
		assert.Equal(t, int64(12), created.ID)

		st := s.Snapshot()
		assert.False(t, st.UI.PlainteModal.IsOpen)
		assert.Len(t, st.Plaintes.EnAttente, 1)
		assert.NotNil(t, st.Statistiques)
		assert.Equal(t, domain.NotificationSuccess, lastNotification(t, st.Notifications).Type)
		api.AssertExpectations(t)
	})

	t.Run("failure notifies, returns the error and keeps the modal open", func(t *testing.T) {
		s, api := newTestStore(t)
		input := validInput()
		upstreamErr := errors.New("service indisponible")
		api.On("CreatePlainte", mock.Anything, input).Return(nil, upstreamErr).Once()

		s.OpenPlainteModal("Urgences")
		created, err := s.CreatePlainte(ctx, input)

		assert.Nil(t, created)
		assert.ErrorIs(t, err, upstreamErr)

		st := s.Snapshot()
		assert.True(t, st.UI.PlainteModal.IsOpen)
		n := lastNotification(t, st.Notifications)
		assert.Equal(t, domain.NotificationError, n.Type)
		assert.True(t, strings.HasSuffix(n.Message, "service indisponible"))
		api.AssertNotCalled(t, "GetStatistiques", mock.Anything)
	})

	t.Run("invalid input never reaches the upstream", func(t *testing.T) {
		s, api := newTestStore(t)
		input := validInput()
		input.Titre = "  "

		_, err := s.CreatePlainte(ctx, input)

		assert.ErrorIs(t, err, apperrors.ErrTitreRequired)
		api.AssertNotCalled(t, "CreatePlainte", mock.Anything, mock.Anything)
	})
}

func TestStore_UpdatePlainteStatut(t *testing.T) {
	ctx := context.Background()
	current := domain.Plainte{
		ID:       5,
		Titre:    "Repas froid",
		Contenu:  "Le repas était froid.",
		Service:  "Restauration",
		Priorite: domain.PrioriteBasse,
		Statut:   domain.StatutRecu,
	}

	t.Run("forward transition refreshes both buckets", func(t *testing.T) {
		s, api := newTestStore(t)
		api.On("UpdatePlainte", mock.Anything, int64(5), mock.MatchedBy(func(in domain.PlainteInput) bool {
			return in.Statut == domain.StatutEnCours && in.Titre == current.Titre
		})).Return(&domain.Plainte{ID: 5, Statut: domain.StatutEnCours}, nil).Once()
		api.On("GetPlaintesParStatut", mock.Anything, domain.BucketEnAttente, 1, 10).Return(&domain.PlaintePage{}, nil).Once()
		api.On("GetPlaintesParStatut", mock.Anything, domain.BucketEnCours, 1, 10).Return(&domain.PlaintePage{Plaintes: plaintes(5), Total: 1}, nil).Once()
		api.On("GetStatistiques", mock.Anything).Return(&domain.Statistiques{}, nil).Once()

		updated, err := s.UpdatePlainteStatut(ctx, current, domain.StatutEnCours)

		require.NoError(t, err)
		assert.Equal(t, domain.StatutEnCours, updated.Statut)
		api.AssertExpectations(t)
		api.AssertNotCalled(t, "GetPlaintesParStatut", mock.Anything, domain.BucketTraitees, mock.Anything, mock.Anything)
	})

	t.Run("backward transition is rejected", func(t *testing.T) {
		s, api := newTestStore(t)
		closed := current
		closed.Statut = domain.StatutCloture

		_, err := s.UpdatePlainteStatut(ctx, closed, domain.StatutEnCours)

		assert.ErrorIs(t, err, apperrors.ErrInvalidStatutTransition)
		assert.Equal(t, domain.NotificationError, lastNotification(t, s.Notifications()).Type)
		api.AssertNotCalled(t, "UpdatePlainte", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("change statut loads the current plainte first", func(t *testing.T) {
		s, api := newTestStore(t)
		api.On("GetPlainte", mock.Anything, int64(5)).Return(&current, nil).Once()
		api.On("UpdatePlainte", mock.Anything, int64(5), mock.Anything).
			Return(&domain.Plainte{ID: 5, Statut: domain.StatutTraite}, nil).Once()
		api.On("GetPlaintesParStatut", mock.Anything, mock.Anything, 1, 10).Return(&domain.PlaintePage{}, nil)
		api.On("GetStatistiques", mock.Anything).Return(&domain.Statistiques{}, nil).Once()

		updated, err := s.ChangeStatut(ctx, 5, domain.StatutTraite)

		require.NoError(t, err)
		assert.Equal(t, domain.StatutTraite, updated.Statut)
		api.AssertNumberOfCalls(t, "GetPlaintesParStatut", 2)
	})
}

func TestStore_UpdatePlainte(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore(t)
	input := validInput()

	api.On("GetPlainte", mock.Anything, int64(8)).Return(&domain.Plainte{ID: 8, Titre: "avant"}, nil).Once()
	s.FetchPlainte(ctx, 8)

	api.On("UpdatePlainte", mock.Anything, int64(8), input).Return(&domain.Plainte{ID: 8, Titre: input.Titre}, nil).Once()
	api.On("GetPlaintesParStatut", mock.Anything, mock.Anything, 1, 10).Return(&domain.PlaintePage{}, nil)
	api.On("GetStatistiques", mock.Anything).Return(&domain.Statistiques{}, nil).Once()
	api.On("GetPlainte", mock.Anything, int64(8)).Return(&domain.Plainte{ID: 8, Titre: input.Titre}, nil).Once()

	_, err := s.UpdatePlainte(ctx, 8, input)

	require.NoError(t, err)
	api.AssertNumberOfCalls(t, "GetPlaintesParStatut", 3)
	assert.Equal(t, input.Titre, s.Snapshot().Plaintes.Courante.Titre)
}

func TestStore_SaveService(t *testing.T) {
	ctx := context.Background()

	t.Run("zero id creates", func(t *testing.T) {
		s, api := newTestStore(t)
		svc := domain.Service{Nom: "Oncologie"}
		api.On("CreateService", mock.Anything, svc).Return(&domain.Service{ID: 4, Nom: "Oncologie"}, nil).Once()
		api.On("ListServices", mock.Anything).Return([]domain.Service{{ID: 4, Nom: "Oncologie"}}, nil).Once()

		s.OpenServiceConfigPanel(nil, nil)
		saved, err := s.SaveService(ctx, svc)

		require.NoError(t, err)
		assert.Equal(t, int64(4), saved.ID)
		st := s.Snapshot()
		assert.False(t, st.UI.ServiceConfig.IsOpen)
		assert.Len(t, st.Services, 1)
		api.AssertNotCalled(t, "UpdateService", mock.Anything, mock.Anything)
	})

	t.Run("existing id updates", func(t *testing.T) {
		s, api := newTestStore(t)
		svc := domain.Service{ID: 4, Nom: "Oncologie adulte"}
		api.On("UpdateService", mock.Anything, svc).Return(&svc, nil).Once()
		api.On("ListServices", mock.Anything).Return([]domain.Service{svc}, nil).Once()

		_, err := s.SaveService(ctx, svc)

		require.NoError(t, err)
		api.AssertNotCalled(t, "CreateService", mock.Anything, mock.Anything)
	})

	t.Run("validation failure keeps the panel open", func(t *testing.T) {
		s, api := newTestStore(t)
		s.OpenServiceConfigPanel(nil, nil)

		_, err := s.SaveService(ctx, domain.Service{})

		var verrs *apperrors.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.Errors, "nom")
		assert.True(t, s.Snapshot().UI.ServiceConfig.IsOpen)
		api.AssertNotCalled(t, "CreateService", mock.Anything, mock.Anything)
	})
}

func TestStore_DeleteService(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore(t)
	api.On("DeleteService", mock.Anything, int64(4)).Return(errors.New("service utilisé")).Once()

	err := s.DeleteService(ctx, 4)

	require.Error(t, err)
	assert.Equal(t, domain.NotificationError, lastNotification(t, s.Notifications()).Type)
	api.AssertNotCalled(t, "ListServices", mock.Anything)
}

func TestStore_Utilisateurs(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore(t)
	user := domain.Utilisateur{Nom: "Martin", Email: "c.martin@hopital.fr", Role: domain.RoleAgent}

	api.On("CreateUtilisateur", mock.Anything, user).Return(&domain.Utilisateur{ID: 9, Nom: "Martin"}, nil).Once()
	api.On("DeleteUtilisateur", mock.Anything, int64(9)).Return(nil).Once()
	api.On("ListUtilisateurs", mock.Anything).Return([]domain.Utilisateur{}, nil).Twice()

	s.OpenUserConfigPanel(nil, nil)
	_, err := s.SaveUtilisateur(ctx, user)
	require.NoError(t, err)
	assert.False(t, s.Snapshot().UI.UserConfig.IsOpen)

	require.NoError(t, s.DeleteUtilisateur(ctx, 9))

	for _, n := range s.Notifications() {
		assert.Equal(t, domain.NotificationSuccess, n.Type)
	}
	api.AssertExpectations(t)
}
