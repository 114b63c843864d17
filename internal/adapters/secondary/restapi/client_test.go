package restapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lorrc/complaint-desk-bff/internal/adapters/secondary/restapi"
	"github.com/lorrc/complaint-desk-bff/internal/auth"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *restapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return restapi.NewClient(restapi.Config{
		BaseURL:      srv.URL + "/",
		Timeout:      2 * time.Second,
		ServiceToken: "service-token",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_GetStatistiques(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		writeJSON(w, http.StatusOK, `{
			"total_plaintes": 42,
			"plaintes_en_cours": 10,
			"taux_resolution": 61.5,
			"par_service": [{"service": "Urgences", "count": 12}],
			"par_priorite": {"HAUTE": 4},
			"alertes": {"plaintes_en_retard": 2}
		}`)
	})

	ctx := auth.WithBearerToken(context.Background(), "user-token")
	stats, err := client.GetStatistiques(ctx)

	require.NoError(t, err)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "/statistiques", gotPath)
	assert.Equal(t, int64(42), stats.TotalPlaintes)
	assert.Equal(t, int64(4), stats.ParPriorite[domain.PrioriteHaute])
	require.Len(t, stats.ParService, 1)
	assert.Equal(t, "Urgences", stats.ParService[0].Service)
	assert.Equal(t, int64(2), stats.Alertes.PlaintesEnRetard)
}

func TestClient_UsesServiceTokenWithoutCaller(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `[]`)
	})

	services, err := client.ListServices(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, services)
	assert.Empty(t, services)
	assert.Equal(t, "Bearer service-token", gotAuth)
}

func TestClient_GetPlaintesParStatut(t *testing.T) {
	var gotPath, gotPage, gotLimit string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPage = r.URL.Query().Get("page")
		gotLimit = r.URL.Query().Get("limit")
		writeJSON(w, http.StatusOK, `{
			"plaintes": [{"id": 3, "titre": "Bruit", "description": "Chambre bruyante", "status": "traité", "priorite": "basse"}],
			"total": 21
		}`)
	})

	page, err := client.GetPlaintesParStatut(context.Background(), domain.BucketTraitees, 2, 10)

	require.NoError(t, err)
	assert.Equal(t, "/plaintes/statut/traite", gotPath)
	assert.Equal(t, "2", gotPage)
	assert.Equal(t, "10", gotLimit)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Plaintes, 1)

	p := page.Plaintes[0]
	assert.Equal(t, domain.StatutTraite, p.Statut)
	assert.Equal(t, domain.PrioriteBasse, p.Priorite)
	assert.Equal(t, "Chambre bruyante", p.Contenu)
}

func TestClient_InvalidBucketNeverCallsUpstream(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.GetPlaintesParStatut(context.Background(), domain.Bucket("archives"), 1, 10)

	assert.ErrorIs(t, err, apperrors.ErrInvalidBucket)
	assert.False(t, called)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantNotFnd bool
	}{
		{name: "fastapi detail", status: http.StatusNotFound, body: `{"detail": "Plainte introuvable"}`, wantMsg: "Plainte introuvable", wantNotFnd: true},
		{name: "message field", status: http.StatusBadRequest, body: `{"message": "Titre manquant"}`, wantMsg: "Titre manquant"},
		{name: "validation detail list", status: http.StatusUnprocessableEntity, body: `{"detail": [{"loc": ["body"]}]}`, wantMsg: "Erreur 422 du serveur"},
		{name: "empty body", status: http.StatusInternalServerError, body: ``, wantMsg: "Erreur 500 du serveur"},
		{name: "html body", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMsg: "Erreur 502 du serveur"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.GetPlainte(context.Background(), 7)

			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, apperrors.ErrUpstream)
			assert.Equal(t, tt.wantNotFnd, assertIsNotFound(err))

			statusErr, ok := restapi.AsStatusError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, "/plaintes/7", statusErr.Path)
			assert.Equal(t, tt.status < 500, statusErr.ClientError())
		})
	}
}

func assertIsNotFound(err error) bool {
	statusErr, ok := restapi.AsStatusError(err)
	return ok && statusErr.Is(apperrors.ErrNotFound)
}

func TestClient_MalformedResponses(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"total_plaintes": "beaucoup"}`)
		})

		_, err := client.GetStatistiques(context.Background())

		var decodeErr *restapi.DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
		assert.Equal(t, "/statistiques", decodeErr.Path)
	})

	t.Run("element fails validation", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `[
				{"id": 1, "type": "classification", "confiance": 0.8},
				{"id": 2, "type": "reponse", "confiance": 1.7}
			]`)
		})

		suggestions, err := client.ListSuggestions(context.Background())

		assert.Nil(t, suggestions)
		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
		assert.Contains(t, err.Error(), "element 1")
	})

	t.Run("unknown statut", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"id": 1, "titre": "x", "statut": "PERDU"}`)
		})

		_, err := client.GetPlainte(context.Background(), 1)

		assert.ErrorIs(t, err, apperrors.ErrMalformedResponse)
	})
}

func TestClient_GetTendances(t *testing.T) {
	var gotPeriode string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPeriode = r.URL.Query().Get("periode")
		writeJSON(w, http.StatusOK, `{"volume": {"2024-05-01": 3}, "priorites": {"CRITIQUE": 1}}`)
	})

	tendances, err := client.GetTendances(context.Background(), domain.Periode7j)

	require.NoError(t, err)
	assert.Equal(t, "7j", gotPeriode)
	assert.Equal(t, domain.Periode7j, tendances.Periode)
	assert.Equal(t, int64(3), tendances.Volume["2024-05-01"])

	_, err = client.GetTendances(context.Background(), domain.Periode("1an"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidPeriode)
}

func TestClient_ProcessService(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusAccepted, `{"status": "started"}`)
	})

	err := client.ProcessService(context.Background(), "Cardiologie")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/process-service", gotPath)
	assert.Equal(t, map[string]string{"service_name": "Cardiologie"}, gotBody)
}

func TestClient_Mutations(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody domain.PlainteInput
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, `{"id": 9, "titre": "Accueil", "statut": "EN_COURS"}`)
	})
	input := domain.PlainteInput{Titre: "Accueil", Contenu: "Accueil désagréable", Service: "Urgences", Priorite: domain.PrioriteMoyenne, Statut: domain.StatutEnCours}

	updated, err := client.UpdatePlainte(context.Background(), 9, input)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/plaintes/9", gotPath)
	assert.Equal(t, input, gotBody)
	assert.Equal(t, domain.StatutEnCours, updated.Statut)
}

func TestClient_DeleteIgnoresBody(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.DeleteUtilisateur(context.Background(), 12)

	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/utilisateurs/12", gotPath)
}

func TestClient_ListAuditLogs(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		writeJSON(w, http.StatusOK, `{"logs": [{"id": 1, "action": "CREATE", "objet_type": "plainte"}], "total": 1}`)
	})

	page, err := client.ListAuditLogs(context.Background(), domain.AuditFilter{ObjetType: "plainte", Limit: 1000, Skip: -3})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"objet_type": "plainte", "limit": "500", "skip": "0"}, gotQuery)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, domain.MaxAuditLimit, page.Filter.Limit)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "CREATE", page.Logs[0].Action)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := restapi.NewClient(restapi.Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.GetStatistiques(context.Background())

	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	_, isStatus := restapi.AsStatusError(err)
	assert.False(t, isStatus)
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetStatistiques(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, apperrors.TimeoutMessage, apperrors.Message(err))
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.NoError(t, client.Ping(context.Background()))
}
