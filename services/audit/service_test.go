package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAuditRepository is a mock implementation of AuditRepository
type MockAuditRepository struct {
	mock.Mock
	mu           sync.Mutex
	insertedLogs []*models.AuditLog
}

func (m *MockAuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	m.mu.Lock()
	m.insertedLogs = append(m.insertedLogs, log)
	m.mu.Unlock()
	return args.Error(0)
}

func (m *MockAuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, resourceType, resourceID, limit)
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuditRepository) GetInsertedLogs() []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AuditLog, len(m.insertedLogs))
	copy(out, m.insertedLogs)
	return out
}

func startService(t *testing.T, repo *MockAuditRepository, cfg Config) *AuditService {
	t.Helper()
	service := NewAuditService(repo, zap.NewNop(), cfg)
	require.NoError(t, service.Start())
	return service
}

func TestAuditService_StartStop(t *testing.T) {
	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, service.Start())

	stats := service.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, service.Start())

	require.NoError(t, service.Stop(5*time.Second))
	assert.False(t, service.GetStats().Started)
	assert.Error(t, service.Stop(time.Second))
}

func TestAuditService_DefaultsForZeroConfig(t *testing.T) {
	service := NewAuditService(new(MockAuditRepository), zap.NewNop(), Config{})
	stats := service.GetStats()
	assert.Equal(t, DefaultConfig().BufferSize, stats.BufferSize)
	assert.Equal(t, DefaultConfig().WorkerCount, stats.WorkerCount)
}

func TestAuditService_LogEventRejectedWhenNotRunning(t *testing.T) {
	repo := new(MockAuditRepository)
	service := NewAuditService(repo, zap.NewNop(), DefaultConfig())
	log := models.NewAuditLog(models.AuditActionRoleAssigned, ResourceUserRole)

	assert.Error(t, service.LogEvent(&AuditEvent{Log: log}))

	require.NoError(t, service.Start())
	require.NoError(t, service.Stop(time.Second))
	assert.Error(t, service.LogEvent(&AuditEvent{Log: log}))
}

func TestAuditService_StopDrainsQueuedEvents(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := startService(t, repo, Config{BufferSize: 100, WorkerCount: 3})

	for i := 0; i < 50; i++ {
		log := models.NewAuditLog(models.AuditActionSubmissionCreated, ResourceSubmission)
		require.NoError(t, service.LogEvent(&AuditEvent{Log: log}))
	}

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.GetInsertedLogs(), 50)
}

func TestAuditService_ConcurrentLogging(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := startService(t, repo, Config{BufferSize: 1000, WorkerCount: 5})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				log := models.NewAuditLog(models.AuditActionRoleAssigned, ResourceUserRole)
				_ = service.LogEvent(&AuditEvent{Log: log})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, service.Stop(5*time.Second))
	assert.Len(t, repo.GetInsertedLogs(), 100)
}

func TestAuditService_LogRoleAssigned(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := startService(t, repo, DefaultConfig())

	actor := uuid.New()
	assignment := models.NewRoleAssignment(uuid.New(), uuid.New())
	ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "req-42")

	require.NoError(t, service.LogRoleAssigned(ctx, actor, assignment, models.RoleNameModerator))
	require.NoError(t, service.Stop(5*time.Second))

	logs := repo.GetInsertedLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionRoleAssigned, logs[0].Action)
	assert.Equal(t, actor, *logs[0].ActorID)
	assert.Equal(t, assignment.UserID, *logs[0].ResourceID)
	assert.Equal(t, "req-42", logs[0].RequestID)
	assert.Contains(t, string(logs[0].Details), models.RoleNameModerator)
}

func TestAuditService_LogSubmissionReviewed(t *testing.T) {
	repo := new(MockAuditRepository)
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil)
	service := startService(t, repo, DefaultConfig())

	reviewer := uuid.New()
	sub, err := models.NewSubmission(models.SubmissionKindPolish, uuid.New(), "k", models.PolishPayload{})
	require.NoError(t, err)
	sub.Status = models.SubmissionStatusApproved

	require.NoError(t, service.LogSubmissionReviewed(context.Background(), reviewer, sub, models.SubmissionStatusPending))
	require.NoError(t, service.Stop(5*time.Second))

	logs := repo.GetInsertedLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionSubmissionReviewed, logs[0].Action)
	assert.Equal(t, sub.ID, *logs[0].ResourceID)
	assert.JSONEq(t, `{"kind":"polish","from":"pending","to":"approved"}`, string(logs[0].Details))
}

func TestAuditService_BufferFull(t *testing.T) {
	repo := new(MockAuditRepository)
	release := make(chan struct{})
	repo.On("Insert", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		<-release
	})
	service := startService(t, repo, Config{BufferSize: 2, WorkerCount: 1})

	accepted, dropped := 0, 0
	for i := 0; i < 10; i++ {
		log := models.NewAuditLog(models.AuditActionSubmissionCreated, ResourceSubmission)
		if err := service.LogEvent(&AuditEvent{Log: log}); err != nil {
			dropped++
		} else {
			accepted++
		}
	}

	close(release)
	require.NoError(t, service.Stop(5*time.Second))

	assert.Greater(t, dropped, 0)
	assert.LessOrEqual(t, accepted, 3)
	assert.Len(t, repo.GetInsertedLogs(), accepted)
}
