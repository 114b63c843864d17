package ports

import (
	"context"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
)

// APIClient is the port to the upstream complaint-management REST API.
// Implementations return validated, typed values or an error; they never
// hand back partially decoded payloads.
type APIClient interface {
	GetStatistiques(ctx context.Context) (*domain.Statistiques, error)

	GetPlaintesParStatut(ctx context.Context, bucket domain.Bucket, page, limit int) (*domain.PlaintePage, error)
	ListPlaintes(ctx context.Context, skip, limit int) ([]domain.Plainte, error)
	GetPlainte(ctx context.Context, id int64) (*domain.Plainte, error)
	CreatePlainte(ctx context.Context, input domain.PlainteInput) (*domain.Plainte, error)
	UpdatePlainte(ctx context.Context, id int64, input domain.PlainteInput) (*domain.Plainte, error)

	ListSuggestions(ctx context.Context) ([]domain.SuggestionIA, error)
	ListSuggestionsPlainte(ctx context.Context, plainteID int64) ([]domain.SuggestionIA, error)
	ProcessFiles(ctx context.Context) error
	ProcessService(ctx context.Context, serviceName string) error

	GetTendances(ctx context.Context, periode domain.Periode) (*domain.Tendances, error)

	ListServices(ctx context.Context) ([]domain.Service, error)
	CreateService(ctx context.Context, svc domain.Service) (*domain.Service, error)
	UpdateService(ctx context.Context, svc domain.Service) (*domain.Service, error)
	DeleteService(ctx context.Context, id int64) error

	ListUtilisateurs(ctx context.Context) ([]domain.Utilisateur, error)
	CreateUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error)
	UpdateUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error)
	DeleteUtilisateur(ctx context.Context, id int64) error

	ListAuditLogs(ctx context.Context, filter domain.AuditFilter) (*domain.AuditPage, error)
}
