package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
)

// Resource types recorded in audit_logs.resource_type
const (
	ResourceUser       = "user"
	ResourceUserRole   = "user_role"
	ResourceSubmission = "submission"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	started     bool
	stopped     bool
	mu          sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop stops accepting events and waits for queued ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an event without blocking. When the buffer is full the
// event is dropped and an error returned.
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("resource_type", event.Log.ResourceType))
		return fmt.Errorf("audit event buffer full")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for logging common events

// LogUserRegistered logs a self-registration
func (s *AuditService) LogUserRegistered(ctx context.Context, user *models.User) error {
	log := models.NewAuditLog(models.AuditActionUserRegistered, ResourceUser).
		WithActor(user.ID).
		WithResource(user.ID).
		WithDetails(map[string]interface{}{"username": user.Username}).
		WithRequest(chimiddleware.GetReqID(ctx))

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogRoleAssigned logs a role assignment or overwrite
func (s *AuditService) LogRoleAssigned(ctx context.Context, actorID uuid.UUID, assignment *models.RoleAssignment, roleName string) error {
	log := models.NewAuditLog(models.AuditActionRoleAssigned, ResourceUserRole).
		WithActor(actorID).
		WithResource(assignment.UserID).
		WithDetails(map[string]interface{}{
			"role_id":   assignment.RoleID,
			"role_name": roleName,
		}).
		WithRequest(chimiddleware.GetReqID(ctx))

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogRoleRevoked logs a role revocation
func (s *AuditService) LogRoleRevoked(ctx context.Context, actorID, userID uuid.UUID, roleName string) error {
	log := models.NewAuditLog(models.AuditActionRoleRevoked, ResourceUserRole).
		WithActor(actorID).
		WithResource(userID).
		WithDetails(map[string]interface{}{"role_name": roleName}).
		WithRequest(chimiddleware.GetReqID(ctx))

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogSubmissionCreated logs a new pending submission
func (s *AuditService) LogSubmissionCreated(ctx context.Context, sub *models.Submission) error {
	log := models.NewAuditLog(models.AuditActionSubmissionCreated, ResourceSubmission).
		WithActor(sub.SubmitterID).
		WithResource(sub.ID).
		WithDetails(map[string]interface{}{"kind": sub.Kind}).
		WithRequest(chimiddleware.GetReqID(ctx))

	return s.LogEvent(&AuditEvent{Log: log})
}

// LogSubmissionReviewed logs a moderator decision
func (s *AuditService) LogSubmissionReviewed(ctx context.Context, reviewerID uuid.UUID, sub *models.Submission, from models.SubmissionStatus) error {
	log := models.NewAuditLog(models.AuditActionSubmissionReviewed, ResourceSubmission).
		WithActor(reviewerID).
		WithResource(sub.ID).
		WithDetails(map[string]interface{}{
			"kind": sub.Kind,
			"from": from,
			"to":   sub.Status,
		}).
		WithRequest(chimiddleware.GetReqID(ctx))

	return s.LogEvent(&AuditEvent{Log: log})
}
