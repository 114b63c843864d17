package store

import (
	"context"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// Mutations never update the cache optimistically: they call the upstream,
// then refetch what the change affects. Failures are notified and returned
// to the caller so an open form can stay open.

// CreatePlainte submits a new complaint. On success the complaint form is
// closed and the waiting bucket (page 1) and the statistics are refetched.
func (s *Store) CreatePlainte(ctx context.Context, input domain.PlainteInput) (*domain.Plainte, error) {
	const failure = "Erreur lors de la création de la plainte"

	if err := input.Validate(); err != nil {
		s.notifyError(failure, err)
		return nil, err
	}

	callCtx, cancel := s.callContext(ctx)
	created, err := s.api.CreatePlainte(callCtx, input)
	cancel()
	if err != nil {
		s.logger.Warn("create plainte failed", "error", err)
		s.notifyError(failure, err)
		return nil, err
	}

	s.logger.Info("plainte created", "plainte_id", created.ID)
	s.notifySuccess("Plainte créée avec succès")
	s.ClosePlainteModal()

	_, limit := s.pageOf(domain.BucketEnAttente)
	s.FetchBucket(ctx, domain.BucketEnAttente, 1, limit)
	s.FetchStats(ctx)
	return created, nil
}

// UpdatePlainte saves the edited fields of a complaint and refetches every
// bucket and the statistics.
func (s *Store) UpdatePlainte(ctx context.Context, id int64, input domain.PlainteInput) (*domain.Plainte, error) {
	const failure = "Erreur lors de la mise à jour de la plainte"

	if err := input.Validate(); err != nil {
		s.notifyError(failure, err)
		return nil, err
	}

	callCtx, cancel := s.callContext(ctx)
	updated, err := s.api.UpdatePlainte(callCtx, id, input)
	cancel()
	if err != nil {
		s.logger.Warn("update plainte failed", "plainte_id", id, "error", err)
		s.notifyError(failure, err)
		return nil, err
	}

	s.notifySuccess("Plainte mise à jour avec succès")
	s.refreshAfterPlainteChange(ctx, id, domain.Buckets...)
	return updated, nil
}

// UpdatePlainteStatut moves a complaint forward in its lifecycle and
// refetches the buckets it left and entered.
func (s *Store) UpdatePlainteStatut(ctx context.Context, current domain.Plainte, next domain.Statut) (*domain.Plainte, error) {
	const failure = "Erreur lors du changement de statut"

	if !next.IsValid() {
		s.notifyError(failure, apperrors.ErrInvalidStatut)
		return nil, apperrors.ErrInvalidStatut
	}
	if !current.Statut.CanTransitionTo(next) {
		s.notifyError(failure, apperrors.ErrInvalidStatutTransition)
		return nil, apperrors.ErrInvalidStatutTransition
	}

	input := domain.PlainteInput{
		Titre:            current.Titre,
		Contenu:          current.Contenu,
		Service:          current.Service,
		Priorite:         current.Priorite,
		Statut:           next,
		NomPatient:       current.NomPatient,
		EmailPatient:     current.EmailPatient,
		TelephonePatient: current.TelephonePatient,
	}

	callCtx, cancel := s.callContext(ctx)
	updated, err := s.api.UpdatePlainte(callCtx, current.ID, input)
	cancel()
	if err != nil {
		s.logger.Warn("update statut failed",
			"plainte_id", current.ID,
			"from", current.Statut,
			"to", next,
			"error", err,
		)
		s.notifyError(failure, err)
		return nil, err
	}

	s.logger.Info("plainte statut updated", "plainte_id", current.ID, "from", current.Statut, "to", next)
	s.notifySuccess("Statut de la plainte mis à jour")

	buckets := []domain.Bucket{current.Statut.Bucket()}
	if b := next.Bucket(); b != buckets[0] {
		buckets = append(buckets, b)
	}
	s.refreshAfterPlainteChange(ctx, current.ID, buckets...)
	return updated, nil
}

// ChangeStatut loads the complaint from the upstream and applies
// UpdatePlainteStatut to it.
func (s *Store) ChangeStatut(ctx context.Context, id int64, next domain.Statut) (*domain.Plainte, error) {
	callCtx, cancel := s.callContext(ctx)
	current, err := s.api.GetPlainte(callCtx, id)
	cancel()
	if err != nil {
		s.notifyError("Erreur lors du changement de statut", err)
		return nil, err
	}
	return s.UpdatePlainteStatut(ctx, *current, next)
}

func (s *Store) refreshAfterPlainteChange(ctx context.Context, id int64, buckets ...domain.Bucket) {
	for _, b := range buckets {
		s.RefreshBucket(ctx, b)
	}
	s.FetchStats(ctx)

	s.mu.Lock()
	viewing := s.state.Plaintes.Courante != nil && s.state.Plaintes.Courante.ID == id
	s.mu.Unlock()
	if viewing {
		s.FetchPlainte(ctx, id)
	}
}

// SaveService creates the service when it has no id and updates it otherwise.
// On success the service editor is closed and the list refetched.
func (s *Store) SaveService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	const failure = "Erreur lors de l'enregistrement du service"

	if err := svc.Validate(); err != nil {
		s.notifyError(failure, err)
		return nil, err
	}

	callCtx, cancel := s.callContext(ctx)
	var (
		saved *domain.Service
		err   error
	)
	if svc.IsNew() {
		saved, err = s.api.CreateService(callCtx, svc)
	} else {
		saved, err = s.api.UpdateService(callCtx, svc)
	}
	cancel()
	if err != nil {
		s.logger.Warn("save service failed", "service_id", svc.ID, "error", err)
		s.notifyError(failure, err)
		return nil, err
	}

	s.notifySuccess("Service enregistré avec succès")
	s.CloseServiceConfigPanel()
	s.FetchServices(ctx)
	return saved, nil
}

// DeleteService removes a service and refetches the list.
func (s *Store) DeleteService(ctx context.Context, id int64) error {
	callCtx, cancel := s.callContext(ctx)
	err := s.api.DeleteService(callCtx, id)
	cancel()
	if err != nil {
		s.logger.Warn("delete service failed", "service_id", id, "error", err)
		s.notifyError("Erreur lors de la suppression du service", err)
		return err
	}

	s.notifySuccess("Service supprimé avec succès")
	s.FetchServices(ctx)
	return nil
}

// SaveUtilisateur creates the user when it has no id and updates it otherwise.
// On success the user editor is closed and the list refetched.
func (s *Store) SaveUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error) {
	const failure = "Erreur lors de l'enregistrement de l'utilisateur"

	if err := user.Validate(); err != nil {
		s.notifyError(failure, err)
		return nil, err
	}

	callCtx, cancel := s.callContext(ctx)
	var (
		saved *domain.Utilisateur
		err   error
	)
	if user.IsNew() {
		saved, err = s.api.CreateUtilisateur(callCtx, user)
	} else {
		saved, err = s.api.UpdateUtilisateur(callCtx, user)
	}
	cancel()
	if err != nil {
		s.logger.Warn("save utilisateur failed", "utilisateur_id", user.ID, "error", err)
		s.notifyError(failure, err)
		return nil, err
	}

	s.notifySuccess("Utilisateur enregistré avec succès")
	s.CloseUserConfigPanel()
	s.FetchUtilisateurs(ctx)
	return saved, nil
}

// DeleteUtilisateur removes a user and refetches the list.
func (s *Store) DeleteUtilisateur(ctx context.Context, id int64) error {
	callCtx, cancel := s.callContext(ctx)
	err := s.api.DeleteUtilisateur(callCtx, id)
	cancel()
	if err != nil {
		s.logger.Warn("delete utilisateur failed", "utilisateur_id", id, "error", err)
		s.notifyError("Erreur lors de la suppression de l'utilisateur", err)
		return err
	}

	s.notifySuccess("Utilisateur supprimé avec succès")
	s.FetchUtilisateurs(ctx)
	return nil
}

func (s *Store) pageOf(b domain.Bucket) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.Pagination[b]
	return domain.NormalizePage(p.Page, p.Limit)
}
