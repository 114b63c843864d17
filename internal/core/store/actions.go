package store

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

const (
	keySuggestionsPlainte = "suggestions:plainte"
	keyPlaintesToutes     = "plaintes:toutes"
)

func bucketKey(b domain.Bucket) string {
	return "plaintes:" + string(b)
}

// request is one call of fetch waiting for or holding the guard of its key.
type request[T any] struct {
	ctx   context.Context
	call  func(context.Context) (T, error)
	merge func(*State, T)
}

// fetch runs call under the in-flight guard of key and merges its result.
// params identifies what is asked for. While a call is in flight a request
// with other params is queued, and the running call discards its own result
// to run the latest queued one, so one call runs per key and the last
// request wins. fetch reports whether this caller ran the calls and the
// error of the last one.
func fetch[T any](
	ctx context.Context,
	s *Store,
	res Resource,
	key, params string,
	skip func(*State) bool,
	call func(context.Context) (T, error),
	merge func(*State, T),
) (bool, error) {
	req := &request[T]{ctx: ctx, call: call, merge: merge}
	if !s.begin(res, key, params, skip, req) {
		s.logger.Debug("fetch skipped", "resource", res, "key", key, "params", params)
		return false, nil
	}

	for {
		callCtx, cancel := s.callContext(req.ctx)
		value, err := req.call(callCtx)
		cancel()

		s.mu.Lock()
		if next := s.takeNextLocked(key); next != nil {
			s.mu.Unlock()
			s.logger.Debug("fetch superseded", "resource", res, "key", key, "params", next.params)
			req = next.fetch.(*request[T])
			continue
		}
		if err == nil {
			req.merge(&s.state, value)
		}
		s.finishLocked(res, key, err)
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("fetch failed", "resource", res, "key", key, "error", err)
		}
		s.publishState(res)
		return true, err
	}
}

func pageParams(page, limit int) string {
	return strconv.Itoa(page) + "/" + strconv.Itoa(limit)
}

// FetchStats replaces the dashboard statistics.
func (s *Store) FetchStats(ctx context.Context) {
	_ = s.fetchStats(ctx)
}

func (s *Store) fetchStats(ctx context.Context) error {
	_, err := fetch(ctx, s, ResourceStats, string(ResourceStats), "", nil,
		s.api.GetStatistiques,
		func(st *State, stats *domain.Statistiques) {
			st.Statistiques = stats
		},
	)
	return err
}

// FetchPlaintesEnCours loads one page of the in-progress bucket.
func (s *Store) FetchPlaintesEnCours(ctx context.Context, page, limit int) {
	s.FetchBucket(ctx, domain.BucketEnCours, page, limit)
}

// FetchPlaintesTraitees loads one page of the processed bucket.
func (s *Store) FetchPlaintesTraitees(ctx context.Context, page, limit int) {
	s.FetchBucket(ctx, domain.BucketTraitees, page, limit)
}

// FetchPlaintesEnAttente loads one page of the waiting bucket.
func (s *Store) FetchPlaintesEnAttente(ctx context.Context, page, limit int) {
	s.FetchBucket(ctx, domain.BucketEnAttente, page, limit)
}

// FetchBucket loads one page of bucket. On success the bucket is replaced and
// its pagination set to the requested page, the server total and the limit.
// On failure the previous page stays in place.
func (s *Store) FetchBucket(ctx context.Context, bucket domain.Bucket, page, limit int) {
	_ = s.fetchBucket(ctx, bucket, page, limit)
}

func (s *Store) fetchBucket(ctx context.Context, bucket domain.Bucket, page, limit int) error {
	if !bucket.IsValid() {
		s.logger.Warn("unknown bucket", "bucket", bucket)
		return apperrors.ErrInvalidBucket
	}
	page, limit = domain.NormalizePage(page, limit)

	called, err := fetch(ctx, s, ResourcePlaintes, bucketKey(bucket), pageParams(page, limit), nil,
		func(ctx context.Context) (*domain.PlaintePage, error) {
			return s.api.GetPlaintesParStatut(ctx, bucket, page, limit)
		},
		func(st *State, result *domain.PlaintePage) {
			st.Plaintes.setBucket(bucket, result.Plaintes)
			st.Pagination[bucket] = domain.PageState{
				Page:  page,
				Total: result.Total,
				Limit: limit,
			}
		},
	)
	if called && err == nil {
		s.preferencesChanged()
	}
	return err
}

// RefreshBucket reloads a bucket at its current page.
func (s *Store) RefreshBucket(ctx context.Context, bucket domain.Bucket) {
	s.mu.Lock()
	current := s.state.Pagination[bucket]
	s.mu.Unlock()
	s.FetchBucket(ctx, bucket, current.Page, current.Limit)
}

// FetchPlaintes loads the unfiltered complaint list.
func (s *Store) FetchPlaintes(ctx context.Context, skip, limit int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}
	_, _ = fetch(ctx, s, ResourcePlaintes, keyPlaintesToutes, pageParams(skip, limit), nil,
		func(ctx context.Context) ([]domain.Plainte, error) {
			return s.api.ListPlaintes(ctx, skip, limit)
		},
		func(st *State, plaintes []domain.Plainte) {
			st.Plaintes.Toutes = plaintes
		},
	)
}

// FetchPlainte loads one complaint into plaintes.courante.
func (s *Store) FetchPlainte(ctx context.Context, id int64) {
	if id <= 0 {
		s.mu.Lock()
		s.setErrorLocked(ResourcePlainte, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Identifiant de plainte invalide"))
		s.mu.Unlock()
		s.publishState(ResourcePlainte)
		return
	}
	_, _ = fetch(ctx, s, ResourcePlainte, string(ResourcePlainte), strconv.FormatInt(id, 10), nil,
		func(ctx context.Context) (*domain.Plainte, error) {
			return s.api.GetPlainte(ctx, id)
		},
		func(st *State, plainte *domain.Plainte) {
			st.Plaintes.Courante = plainte
		},
	)
}

// FetchSuggestionsParService loads and groups the AI suggestions once. The call
// is a no-op while suggestions are cached or a fetch is in flight.
func (s *Store) FetchSuggestionsParService(ctx context.Context) {
	_ = s.fetchSuggestionsParService(ctx)
}

func (s *Store) fetchSuggestionsParService(ctx context.Context) error {
	populated := func(st *State) bool {
		return len(st.Suggestions.ParService) > 0
	}
	s.mu.Lock()
	gen := s.suggestionsGen
	s.mu.Unlock()

	_, err := fetch(ctx, s, ResourceSuggestions, string(ResourceSuggestions), strconv.FormatUint(gen, 10), populated,
		s.api.ListSuggestions,
		func(st *State, suggestions []domain.SuggestionIA) {
			// invalidated while the call ran
			if gen != s.suggestionsGen {
				return
			}
			st.Suggestions.ParService = domain.GroupSuggestionsParService(suggestions)
		},
	)
	return err
}

// InvalidateSuggestions drops the cached grouping so the next fetch hits the
// network. A fetch already in flight no longer fills the cache.
func (s *Store) InvalidateSuggestions() {
	s.mu.Lock()
	s.suggestionsGen++
	s.state.Suggestions.ParService = nil
	s.mu.Unlock()

	s.logger.Debug("suggestions invalidated")
	s.publishState(ResourceSuggestions)
}

// FetchSuggestionsPlainte loads the suggestions of one complaint.
func (s *Store) FetchSuggestionsPlainte(ctx context.Context, plainteID int64) {
	_, _ = fetch(ctx, s, ResourceSuggestions, keySuggestionsPlainte, strconv.FormatInt(plainteID, 10), nil,
		func(ctx context.Context) ([]domain.SuggestionIA, error) {
			return s.api.ListSuggestionsPlainte(ctx, plainteID)
		},
		func(st *State, suggestions []domain.SuggestionIA) {
			st.Suggestions.Plainte = suggestions
			st.Suggestions.PlainteID = plainteID
		},
	)
}

// ProcessAllFiles runs the upstream batch job over every file.
func (s *Store) ProcessAllFiles(ctx context.Context) {
	s.process(ctx, domain.AllServices, s.api.ProcessFiles)
}

// ProcessService runs the upstream batch job for one service.
func (s *Store) ProcessService(ctx context.Context, name string) {
	if name == "" {
		s.mu.Lock()
		s.setErrorLocked(ResourceProcessing, apperrors.ErrServiceRequired)
		s.mu.Unlock()
		s.publishState(ResourceProcessing)
		return
	}
	s.process(ctx, name, func(ctx context.Context) error {
		return s.api.ProcessService(ctx, name)
	})
}

// process marks marker as the selected service while the job runs. On
// success the suggestions are invalidated and fetched again exactly once.
// The marker and the loading flag are always cleared.
func (s *Store) process(ctx context.Context, marker string, call func(context.Context) error) {
	key := string(ResourceProcessing)
	if !s.begin(ResourceProcessing, key, "", nil, nil) {
		s.logger.Debug("processing already running", "service", marker)
		return
	}

	s.mu.Lock()
	s.state.UI.SelectedService = marker
	s.mu.Unlock()
	s.publishTopic(domain.TopicUI)

	var err error
	defer func() {
		s.mu.Lock()
		s.state.UI.SelectedService = ""
		s.finishLocked(ResourceProcessing, key, err)
		s.mu.Unlock()

		s.publishState(ResourceProcessing)
		s.publishTopic(domain.TopicUI)
	}()

	callCtx, cancel := s.callContext(ctx)
	err = call(callCtx)
	cancel()
	if err != nil {
		s.logger.Warn("processing failed", "service", marker, "error", err)
		return
	}

	s.logger.Info("processing completed", "service", marker)
	s.InvalidateSuggestions()
	s.FetchSuggestionsParService(ctx)
}

// FetchTendances replaces the trends for periode. An unknown periode records
// a validation error without calling the upstream.
func (s *Store) FetchTendances(ctx context.Context, periode domain.Periode) {
	_ = s.fetchTendances(ctx, periode)
}

func (s *Store) fetchTendances(ctx context.Context, periode domain.Periode) error {
	if !periode.IsValid() {
		err := apperrors.NewBadRequestError(apperrors.ErrInvalidPeriode,
			fmt.Sprintf("Période invalide : %q (7j, 30j ou 90j)", periode))
		s.mu.Lock()
		s.setErrorLocked(ResourceTendances, err)
		s.mu.Unlock()
		s.publishState(ResourceTendances)
		return err
	}

	_, err := fetch(ctx, s, ResourceTendances, string(ResourceTendances), string(periode), nil,
		func(ctx context.Context) (*domain.Tendances, error) {
			return s.api.GetTendances(ctx, periode)
		},
		func(st *State, tendances *domain.Tendances) {
			st.Tendances = tendances
		},
	)
	return err
}

// FetchServices loads the hospital services.
func (s *Store) FetchServices(ctx context.Context) {
	_, _ = fetch(ctx, s, ResourceServices, string(ResourceServices), "", nil,
		s.api.ListServices,
		func(st *State, services []domain.Service) {
			st.Services = services
		},
	)
}

// FetchUtilisateurs loads the staff users.
func (s *Store) FetchUtilisateurs(ctx context.Context) {
	_, _ = fetch(ctx, s, ResourceUtilisateurs, string(ResourceUtilisateurs), "", nil,
		s.api.ListUtilisateurs,
		func(st *State, users []domain.Utilisateur) {
			st.Utilisateurs = users
		},
	)
}

// FetchAuditLog loads one page of the audit log.
func (s *Store) FetchAuditLog(ctx context.Context, filter domain.AuditFilter) {
	filter = filter.Normalize()
	_, _ = fetch(ctx, s, ResourceAudit, string(ResourceAudit), fmt.Sprintf("%+v", filter), nil,
		func(ctx context.Context) (*domain.AuditPage, error) {
			return s.api.ListAuditLogs(ctx, filter)
		},
		func(st *State, page *domain.AuditPage) {
			page.Filter = filter
			st.Audit = page
		},
	)
}

// RefreshDashboard loads the statistics, the trends and the suggestions
// concurrently and returns the first error any of them hit.
func (s *Store) RefreshDashboard(ctx context.Context, periode domain.Periode) error {
	if periode == "" {
		periode = domain.DefaultPeriode
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.fetchStats(gctx)
	})
	g.Go(func() error {
		return s.fetchTendances(gctx, periode)
	})
	g.Go(func() error {
		return s.fetchSuggestionsParService(gctx)
	})
	return g.Wait()
}
