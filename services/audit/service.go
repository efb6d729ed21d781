package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/repositories"
)

var (
	// ErrNotStarted is returned when events are sent before Start or after Stop
	ErrNotStarted = errors.New("audit service not started")

	// ErrBufferFull is returned when an event is dropped because the queue is full
	ErrBufferFull = errors.New("audit event buffer full")
)

// RequestMeta carries the HTTP request details attached to an audit entry
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// Actor identifies who performed an audited action
type Actor struct {
	ID    string
	Email string
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *models.AuditLog
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
		BufferSize:  256,
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
		eventChan:   make(chan *models.AuditLog, config.BufferSize),
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
	if s.stopped {
		return fmt.Errorf("audit service already stopped")
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

// Stop closes the queue and waits for pending events to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return ErrNotStarted
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

// Record queues an entry without blocking. A full queue drops the entry with a warning.
func (s *AuditService) Record(log *models.AuditLog) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return ErrNotStarted
	}

	select {
	case s.eventChan <- log:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(log.Action)),
			zap.String("target_id", log.TargetID))
		return ErrBufferFull
	}
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for log := range s.eventChan {
		if err := s.processEvent(log); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(log.Action)),
				zap.String("target_id", log.TargetID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(log *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, log); err != nil {
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

// LogUserSignedUp records a self-service registration
func (s *AuditService) LogUserSignedUp(profile *models.UserProfile, meta RequestMeta) error {
	log := models.NewAuditLog(models.AuditActionUserSignedUp, profile.ID).
		WithActor(profile.ID, profile.Email).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent).
		WithDetails(map[string]interface{}{
			"email": profile.Email,
			"role":  profile.Role,
		})
	return s.Record(log)
}

// LogRoleUpdated records a role change made by actor
func (s *AuditService) LogRoleUpdated(actor Actor, targetID string, from, to models.Role, meta RequestMeta) error {
	log := models.NewAuditLog(models.AuditActionRoleUpdated, targetID).
		WithActor(actor.ID, actor.Email).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent).
		WithDetails(map[string]interface{}{
			"from": from,
			"to":   to,
		})
	return s.Record(log)
}

// LogUserDeleted records the removal of a user's credential and profile
func (s *AuditService) LogUserDeleted(actor Actor, targetID string, meta RequestMeta) error {
	log := models.NewAuditLog(models.AuditActionUserDeleted, targetID).
		WithActor(actor.ID, actor.Email).
		WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	return s.Record(log)
}

type metaKey struct{}

// WithRequestMeta attaches request details for audit entries recorded further down the call chain
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// MetaFromContext returns the request details set by WithRequestMeta, or the zero value
func MetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(metaKey{}).(RequestMeta)
	return meta
}
