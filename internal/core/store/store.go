// Package store holds the per-user application state: cached upstream
// resources with their loading and error flags, the UI panel slice and the
// notification queue. Every mutation goes through the Store's mutex.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
)

// Resource is the key of a loading/error slot.
type Resource string

const (
	ResourceStats        Resource = "stats"
	ResourcePlaintes     Resource = "plaintes"
	ResourcePlainte      Resource = "plainte"
	ResourceSuggestions  Resource = "suggestions"
	ResourceProcessing   Resource = "processing"
	ResourceTendances    Resource = "tendances"
	ResourceServices     Resource = "services"
	ResourceUtilisateurs Resource = "utilisateurs"
	ResourceAudit        Resource = "audit"
)

// Resources lists every loading/error slot.
var Resources = []Resource{
	ResourceStats,
	ResourcePlaintes,
	ResourcePlainte,
	ResourceSuggestions,
	ResourceProcessing,
	ResourceTendances,
	ResourceServices,
	ResourceUtilisateurs,
	ResourceAudit,
}

// DefaultFetchTimeout bounds every upstream call made by an action.
const DefaultFetchTimeout = 30 * time.Second

// PlaintesState holds the complaint lists and the complaint being viewed.
type PlaintesState struct {
	EnCours   []domain.Plainte `json:"en_cours"`
	Traitees  []domain.Plainte `json:"traitees"`
	EnAttente []domain.Plainte `json:"en_attente"`
	Toutes    []domain.Plainte `json:"toutes"`
	Courante  *domain.Plainte  `json:"courante"`
}

// Bucket returns the cached page of a bucket.
func (p *PlaintesState) Bucket(b domain.Bucket) []domain.Plainte {
	switch b {
	case domain.BucketEnCours:
		return p.EnCours
	case domain.BucketTraitees:
		return p.Traitees
	case domain.BucketEnAttente:
		return p.EnAttente
	}
	return nil
}

func (p *PlaintesState) setBucket(b domain.Bucket, items []domain.Plainte) {
	switch b {
	case domain.BucketEnCours:
		p.EnCours = items
	case domain.BucketTraitees:
		p.Traitees = items
	case domain.BucketEnAttente:
		p.EnAttente = items
	}
}

// SuggestionsState holds the grouped suggestions and those of one complaint.
type SuggestionsState struct {
	ParService []domain.ServiceSuggestion `json:"par_service"`
	Plainte    []domain.SuggestionIA      `json:"plainte"`
	PlainteID  int64                      `json:"plainte_id,omitempty"`
}

// State is the full store content. Snapshot returns a deep copy of it.
type State struct {
	Statistiques  *domain.Statistiques  `json:"statistiques"`
	Plaintes      PlaintesState         `json:"plaintes"`
	Pagination    domain.Pagination     `json:"pagination"`
	Suggestions   SuggestionsState      `json:"suggestions"`
	Tendances     *domain.Tendances     `json:"tendances"`
	Services      []domain.Service      `json:"services"`
	Utilisateurs  []domain.Utilisateur  `json:"utilisateurs"`
	Audit         *domain.AuditPage     `json:"audit"`
	Loading       map[Resource]bool     `json:"loading"`
	Errors        map[Resource]*string  `json:"errors"`
	UI            domain.UIState        `json:"ui"`
	Notifications []domain.Notification `json:"notifications"`
}

func newState() State {
	st := State{
		Pagination:    domain.NewPagination(),
		Loading:       make(map[Resource]bool, len(Resources)),
		Errors:        make(map[Resource]*string, len(Resources)),
		UI:            domain.NewUIState(),
		Notifications: []domain.Notification{},
	}
	for _, r := range Resources {
		st.Loading[r] = false
		st.Errors[r] = nil
	}
	return st
}

// Store is the application state of one user.
type Store struct {
	api                 ports.APIClient
	logger              *slog.Logger
	publisher           ports.EventPublisher
	fetchTimeout        time.Duration
	notificationTimeout time.Duration
	now                 func() time.Time
	onPreferences       func(domain.UIPreferences)

	mu             sync.Mutex
	state          State
	inFlight       map[string]*flight
	active         map[Resource]int
	timers         map[int64]*time.Timer
	lastID         int64
	suggestionsGen uint64
	closed         bool
}

// flight is the call running under a guard key. next holds the latest
// request made with other parameters while it ran.
type flight struct {
	params string
	next   *queuedFetch
}

type queuedFetch struct {
	params string
	fetch  any
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher sets where change events are sent.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Store) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithFetchTimeout bounds each upstream call. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.fetchTimeout = d
		}
	}
}

// WithNotificationDuration sets the lifetime of notifications shown without one.
func WithNotificationDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.notificationTimeout = d
		}
	}
}

// WithClock overrides the time source used for notification ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPreferencesHook registers fn to receive the persisted preferences
// every time the active tab, the expanded sections or a pagination changes.
func WithPreferencesHook(fn func(domain.UIPreferences)) Option {
	return func(s *Store) {
		s.onPreferences = fn
	}
}

// New creates a store backed by the given upstream client.
func New(api ports.APIClient, opts ...Option) *Store {
	s := &Store{
		api:                 api,
		logger:              slog.Default(),
		publisher:           noopPublisher{},
		fetchTimeout:        DefaultFetchTimeout,
		notificationTimeout: domain.DefaultNotificationDuration,
		now:                 time.Now,
		state:               newState(),
		inFlight:            make(map[string]*flight),
		active:              make(map[Resource]int),
		timers:              make(map[int64]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Close stops every pending notification timer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// begin marks key as in flight with params unless skip reports the resource
// does not need fetching. It clears the resource error.
//
// When key is already in flight begin returns false. A request with the
// running params cancels any queued one; a request with other params
// replaces the queued one with queued so the running call picks it up.
func (s *Store) begin(res Resource, key, params string, skip func(*State) bool, queued any) bool {
	s.mu.Lock()
	if f, ok := s.inFlight[key]; ok {
		switch {
		case params == f.params:
			f.next = nil
		case queued != nil:
			f.next = &queuedFetch{params: params, fetch: queued}
		}
		s.mu.Unlock()
		return false
	}
	if skip != nil && skip(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.inFlight[key] = &flight{params: params}
	s.active[res]++
	s.state.Loading[res] = true
	s.state.Errors[res] = nil
	s.mu.Unlock()

	s.publishState(res)
	return true
}

// takeNextLocked pops the request queued behind key, which becomes the
// running one. Callers hold s.mu.
func (s *Store) takeNextLocked(key string) *queuedFetch {
	f := s.inFlight[key]
	if f == nil || f.next == nil {
		return nil
	}
	next := f.next
	f.params, f.next = next.params, nil
	return next
}

// finishLocked releases key and records err. Callers hold s.mu.
func (s *Store) finishLocked(res Resource, key string, err error) {
	delete(s.inFlight, key)
	if s.active[res] > 0 {
		s.active[res]--
	}
	s.state.Loading[res] = s.active[res] > 0
	if err != nil {
		msg := apperrors.Message(err)
		s.state.Errors[res] = &msg
	}
}

// setErrorLocked records a failure that never reached the network.
func (s *Store) setErrorLocked(res Resource, err error) {
	msg := apperrors.Message(err)
	s.state.Errors[res] = &msg
}

// callContext detaches the call from the caller's cancellation and bounds it.
func (s *Store) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.fetchTimeout > 0 {
		return context.WithTimeout(detached, s.fetchTimeout)
	}
	return context.WithCancel(detached)
}

func (s *Store) publishState(res Resource) {
	s.publishTopic(domain.Topic(res))
}

func (s *Store) publishTopic(topic domain.Topic) {
	s.publish(domain.NewStateChangedEvent(topic))
}

func (s *Store) publish(event domain.Event) {
	s.publisher.Publish(event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}

func (st State) clone() State {
	out := State{
		Statistiques:  st.Statistiques.Clone(),
		Plaintes:      st.Plaintes.clone(),
		Pagination:    st.Pagination.Clone(),
		Suggestions:   st.Suggestions.clone(),
		Tendances:     st.Tendances.Clone(),
		Services:      cloneSlice(st.Services),
		Utilisateurs:  cloneSlice(st.Utilisateurs),
		Loading:       make(map[Resource]bool, len(st.Loading)),
		Errors:        make(map[Resource]*string, len(st.Errors)),
		UI:            st.UI.Clone(),
		Notifications: append([]domain.Notification{}, st.Notifications...),
	}
	if st.Audit != nil {
		audit := *st.Audit
		audit.Logs = cloneSlice(st.Audit.Logs)
		out.Audit = &audit
	}
	for k, v := range st.Loading {
		out.Loading[k] = v
	}
	for k, v := range st.Errors {
		if v != nil {
			msg := *v
			out.Errors[k] = &msg
		} else {
			out.Errors[k] = nil
		}
	}
	return out
}

func (p PlaintesState) clone() PlaintesState {
	out := PlaintesState{
		EnCours:   cloneSlice(p.EnCours),
		Traitees:  cloneSlice(p.Traitees),
		EnAttente: cloneSlice(p.EnAttente),
		Toutes:    cloneSlice(p.Toutes),
	}
	if p.Courante != nil {
		courante := *p.Courante
		out.Courante = &courante
	}
	return out
}

func (s SuggestionsState) clone() SuggestionsState {
	out := SuggestionsState{
		Plainte:   cloneSlice(s.Plainte),
		PlainteID: s.PlainteID,
	}
	if s.ParService != nil {
		out.ParService = make([]domain.ServiceSuggestion, len(s.ParService))
		for i, group := range s.ParService {
			out.ParService[i] = group.Clone()
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
