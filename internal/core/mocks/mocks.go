package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockAPIClient is a mock implementation of ports.APIClient
type MockAPIClient struct {
	mock.Mock
}

var _ ports.APIClient = (*MockAPIClient)(nil)

func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) GetStatistiques(ctx context.Context) (*domain.Statistiques, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statistiques), args.Error(1)
}

func (m *MockAPIClient) GetPlaintesParStatut(ctx context.Context, bucket domain.Bucket, page, limit int) (*domain.PlaintePage, error) {
	args := m.Called(ctx, bucket, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlaintePage), args.Error(1)
}

func (m *MockAPIClient) ListPlaintes(ctx context.Context, skip, limit int) ([]domain.Plainte, error) {
	args := m.Called(ctx, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Plainte), args.Error(1)
}

func (m *MockAPIClient) GetPlainte(ctx context.Context, id int64) (*domain.Plainte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plainte), args.Error(1)
}

func (m *MockAPIClient) CreatePlainte(ctx context.Context, input domain.PlainteInput) (*domain.Plainte, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plainte), args.Error(1)
}

func (m *MockAPIClient) UpdatePlainte(ctx context.Context, id int64, input domain.PlainteInput) (*domain.Plainte, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plainte), args.Error(1)
}

func (m *MockAPIClient) ListSuggestions(ctx context.Context) ([]domain.SuggestionIA, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SuggestionIA), args.Error(1)
}

func (m *MockAPIClient) ListSuggestionsPlainte(ctx context.Context, plainteID int64) ([]domain.SuggestionIA, error) {
	args := m.Called(ctx, plainteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SuggestionIA), args.Error(1)
}

func (m *MockAPIClient) ProcessFiles(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAPIClient) ProcessService(ctx context.Context, serviceName string) error {
	args := m.Called(ctx, serviceName)
	return args.Error(0)
}

func (m *MockAPIClient) GetTendances(ctx context.Context, periode domain.Periode) (*domain.Tendances, error) {
	args := m.Called(ctx, periode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tendances), args.Error(1)
}

func (m *MockAPIClient) ListServices(ctx context.Context) ([]domain.Service, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Service), args.Error(1)
}

func (m *MockAPIClient) CreateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	args := m.Called(ctx, svc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockAPIClient) UpdateService(ctx context.Context, svc domain.Service) (*domain.Service, error) {
	args := m.Called(ctx, svc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockAPIClient) DeleteService(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIClient) ListUtilisateurs(ctx context.Context) ([]domain.Utilisateur, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Utilisateur), args.Error(1)
}

func (m *MockAPIClient) CreateUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Utilisateur), args.Error(1)
}

func (m *MockAPIClient) UpdateUtilisateur(ctx context.Context, user domain.Utilisateur) (*domain.Utilisateur, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Utilisateur), args.Error(1)
}

func (m *MockAPIClient) DeleteUtilisateur(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIClient) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) (*domain.AuditPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditPage), args.Error(1)
}

// MockPreferencesRepository is a mock implementation of ports.PreferencesRepository
type MockPreferencesRepository struct {
	mock.Mock
}

var _ ports.PreferencesRepository = (*MockPreferencesRepository)(nil)

func NewMockPreferencesRepository() *MockPreferencesRepository {
	return &MockPreferencesRepository{}
}

func (m *MockPreferencesRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.UIPreferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UIPreferences), args.Error(1)
}

func (m *MockPreferencesRepository) Save(ctx context.Context, userID uuid.UUID, prefs domain.UIPreferences) error {
	args := m.Called(ctx, userID, prefs)
	return args.Error(0)
}

func (m *MockPreferencesRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

var _ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(userID uuid.UUID, event domain.Event) error {
	args := m.Called(userID, event)
	return args.Error(0)
}

// RecordingPublisher is a ports.EventPublisher that keeps every event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

var _ ports.EventPublisher = (*RecordingPublisher)(nil)

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

// Topics returns the topics of the recorded STATE_CHANGED events.
func (p *RecordingPublisher) Topics() []domain.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	var topics []domain.Topic
	for _, e := range p.events {
		if e.Type == domain.EventStateChanged {
			topics = append(topics, e.Topic)
		}
	}
	return topics
}
