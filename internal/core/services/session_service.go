package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
	"github.com/lorrc/complaint-desk-bff/internal/core/store"
)

// SessionConfig tunes the stores created by the SessionManager.
type SessionConfig struct {
	FetchTimeout         time.Duration
	NotificationDuration time.Duration
	IdleTimeout          time.Duration
	PersistTimeout       time.Duration
}

// SessionManager keeps one store per authenticated user, restores their
// saved preferences on first use and persists them as they change.
type SessionManager struct {
	api         ports.APIClient
	prefsRepo   ports.PreferencesRepository
	broadcaster ports.EventBroadcaster
	cfg         SessionConfig
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	wg       sync.WaitGroup
}

type session struct {
	store    *store.Store
	lastSeen time.Time

	// pending holds the latest preferences not yet written; saving is true
	// while a writer goroutine runs for this session.
	pending *domain.UIPreferences
	saving  bool
}

var _ ports.ClientCommandHandler = (*SessionManager)(nil)

// NewSessionManager creates a new session manager. prefsRepo may be nil, in
// which case preferences live only as long as the session.
func NewSessionManager(
	api ports.APIClient,
	prefsRepo ports.PreferencesRepository,
	broadcaster ports.EventBroadcaster,
	cfg SessionConfig,
	logger *slog.Logger,
) *SessionManager {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &SessionManager{
		api:         api,
		prefsRepo:   prefsRepo,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger.With("component", "session_manager"),
		sessions:    make(map[uuid.UUID]*session),
	}
}

// Session returns the store of userID, creating and restoring it on first use.
func (m *SessionManager) Session(ctx context.Context, userID uuid.UUID) (*store.Store, error) {
	if userID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	m.mu.Lock()
	if sess, ok := m.sessions[userID]; ok {
		sess.lastSeen = time.Now()
		m.mu.Unlock()
		return sess.store, nil
	}
	m.mu.Unlock()

	// Restore outside the lock; a concurrent first request may race us here,
	// the first one to register wins.
	prefs := m.loadPreferences(ctx, userID)
	st := m.newStore(userID)
	st.ApplyPreferences(prefs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		st.Close()
		sess.lastSeen = time.Now()
		return sess.store, nil
	}
	m.sessions[userID] = &session{store: st, lastSeen: time.Now()}

	m.logger.Info("session created", "user_id", userID, "active_sessions", len(m.sessions))
	return st, nil
}

// Lookup returns an existing store without creating one.
func (m *SessionManager) Lookup(userID uuid.UUID) (*store.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	sess.lastSeen = time.Now()
	return sess.store, nil
}

// HandleClientCommand applies a command received over the change feed.
// Escape and outside-click both close every panel.
func (m *SessionManager) HandleClientCommand(ctx context.Context, userID uuid.UUID, command domain.ClientMessageType) error {
	switch command {
	case domain.ClientEscape, domain.ClientOutsideClick:
		st, err := m.Lookup(userID)
		if err != nil {
			return err
		}
		st.CloseAllPanels()
		return nil
	default:
		return apperrors.ErrBadRequest
	}
}

// ResetPreferences deletes the saved preferences and restores the defaults.
func (m *SessionManager) ResetPreferences(ctx context.Context, userID uuid.UUID) error {
	if m.prefsRepo != nil {
		if err := m.prefsRepo.Delete(ctx, userID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
	}

	st, err := m.Lookup(userID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	st.ApplyPreferences(domain.DefaultUIPreferences())
	return nil
}

// EvictIdle closes the sessions not used for longer than maxIdle and
// returns how many were removed.
func (m *SessionManager) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var evicted []*store.Store
	for userID, sess := range m.sessions {
		if sess.lastSeen.Before(cutoff) {
			evicted = append(evicted, sess.store)
			delete(m.sessions, userID)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	for _, st := range evicted {
		st.Close()
	}
	if len(evicted) > 0 {
		m.logger.Info("idle sessions evicted", "evicted", len(evicted), "active_sessions", remaining)
	}
	return len(evicted)
}

// Run evicts idle sessions until ctx is done. This MUST be run as a goroutine.
func (m *SessionManager) Run(ctx context.Context) {
	if m.cfg.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(m.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(m.cfg.IdleTimeout)
		}
	}
}

// ActiveSessions returns the number of live stores.
func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every store and waits for pending preference writes.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	for userID, sess := range m.sessions {
		sess.store.Close()
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *SessionManager) newStore(userID uuid.UUID) *store.Store {
	logger := m.logger.With("user_id", userID.String())
	return store.New(m.api,
		store.WithLogger(logger),
		store.WithPublisher(&userPublisher{broadcaster: m.broadcaster, userID: userID, logger: logger}),
		store.WithFetchTimeout(m.cfg.FetchTimeout),
		store.WithNotificationDuration(m.cfg.NotificationDuration),
		store.WithPreferencesHook(func(prefs domain.UIPreferences) {
			m.schedulePersist(userID, prefs)
		}),
	)
}

func (m *SessionManager) loadPreferences(ctx context.Context, userID uuid.UUID) domain.UIPreferences {
	if m.prefsRepo == nil {
		return domain.DefaultUIPreferences()
	}

	prefs, err := m.prefsRepo.Get(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return domain.DefaultUIPreferences()
	case err != nil:
		m.logger.Warn("failed to load preferences, using defaults", "user_id", userID, "error", err)
		return domain.DefaultUIPreferences()
	case !prefs.IsCurrent():
		m.logger.Info("stored preferences have an old version, using defaults",
			"user_id", userID,
			"version", prefs.Version,
		)
		return domain.DefaultUIPreferences()
	}
	return *prefs
}

// schedulePersist queues prefs for writing. Writes for one user are
// serialised and coalesced so only the latest value is kept.
func (m *SessionManager) schedulePersist(userID uuid.UUID, prefs domain.UIPreferences) {
	if m.prefsRepo == nil {
		return
	}

	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return
	}
	sess.pending = &prefs
	if sess.saving {
		m.mu.Unlock()
		return
	}
	sess.saving = true
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		for {
			m.mu.Lock()
			next := sess.pending
			sess.pending = nil
			if next == nil {
				sess.saving = false
				m.mu.Unlock()
				return
			}
			m.mu.Unlock()

			// Use background context since the HTTP request may be done
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
			if err := m.prefsRepo.Save(ctx, userID, *next); err != nil {
				m.logger.Error("failed to persist preferences", "user_id", userID, "error", err)
			}
			cancel()
		}
	}()
}

// userPublisher binds a store's events to the connections of one user.
type userPublisher struct {
	broadcaster ports.EventBroadcaster
	userID      uuid.UUID
	logger      *slog.Logger
}

func (p *userPublisher) Publish(event domain.Event) {
	if p.broadcaster == nil {
		return
	}
	if err := p.broadcaster.Broadcast(p.userID, event); err != nil {
		p.logger.Warn("failed to broadcast event", "event_type", event.Type, "topic", event.Topic, "error", err)
	}
}
