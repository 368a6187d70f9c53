package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-tracker/internal/domain"
	"github.com/spec-kit/support-tracker/internal/events"
	"github.com/spec-kit/support-tracker/internal/persistence"
)

const respondedKeyPrefix = "sla:responded:"

// respondedKeyTTL bounds Redis growth; a ticket unanswered for this
// long has long since alerted.
const respondedKeyTTL = 30 * 24 * time.Hour

// SLAService watches newly created tickets and raises an alert when no
// first response arrives within the configured window. Timers live in
// memory per instance; the responded-thread set is kept in Redis so a
// restart does not re-alert tickets answered meanwhile, with an
// in-memory fallback when Redis is unreachable.
type SLAService struct {
	redis    *persistence.Redis
	notifier *NotificationService
	logger   *zap.Logger
	timeout  time.Duration

	mu        sync.Mutex
	timers    map[string]*time.Timer
	responded map[string]struct{}
}

// NewSLAService constructs the service. A non-positive timeout
// disables alerting entirely.
func NewSLAService(redis *persistence.Redis, notifier *NotificationService, logger *zap.Logger, timeout time.Duration) *SLAService {
	return &SLAService{
		redis:     redis,
		notifier:  notifier,
		logger:    logger,
		timeout:   timeout,
		timers:    make(map[string]*time.Timer),
		responded: make(map[string]struct{}),
	}
}

// RegisterHandlers subscribes to reducer events.
func (s *SLAService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.timeout <= 0 {
		return
	}
	dispatcher.Subscribe(events.EventRecordCreated, s.handleRecordCreated)
	dispatcher.Subscribe(events.EventFirstResponse, s.handleFirstResponse)
}

func (s *SLAService) handleRecordCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RecordCreatedPayload)
	if !ok {
		return nil
	}
	s.schedule(event.ThreadID, SLAAlert{
		ThreadID:      event.ThreadID,
		Title:         payload.Title,
		RaisedBy:      payload.RaisedBy,
		IsEngineering: payload.IsEngineering,
		Link:          payload.Link,
		Waiting:       domain.FormatDuration(s.timeout),
	})
	return nil
}

func (s *SLAService) handleFirstResponse(ctx context.Context, event events.Event) error {
	s.cancel(event.ThreadID)
	s.markResponded(ctx, event.ThreadID)
	return nil
}

func (s *SLAService) schedule(threadID string, alert SLAAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[threadID]; ok {
		existing.Stop()
	}
	s.timers[threadID] = time.AfterFunc(s.timeout, func() {
		s.fire(threadID, alert)
	})
	s.logger.Info("SLA timer started",
		zap.String("thread_id", threadID),
		zap.Duration("window", s.timeout))
}

func (s *SLAService) cancel(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[threadID]; ok {
		timer.Stop()
		delete(s.timers, threadID)
		s.logger.Info("SLA timer cancelled", zap.String("thread_id", threadID))
	}
}

func (s *SLAService) fire(threadID string, alert SLAAlert) {
	s.mu.Lock()
	delete(s.timers, threadID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if s.hasResponded(ctx, threadID) {
		s.logger.Info("thread answered before SLA window elapsed, skipping alert",
			zap.String("thread_id", threadID))
		return
	}
	if err := s.notifier.SendSLAAlert(ctx, alert); err != nil {
		s.logger.Error("SLA alert not delivered",
			zap.String("thread_id", threadID),
			zap.Error(err))
	}
}

func (s *SLAService) markResponded(ctx context.Context, threadID string) {
	s.mu.Lock()
	s.responded[threadID] = struct{}{}
	s.mu.Unlock()

	if s.redis == nil || s.redis.Client == nil {
		return
	}
	if err := s.redis.Client.Set(ctx, respondedKeyPrefix+threadID, "1", respondedKeyTTL).Err(); err != nil {
		s.logger.Warn("unable to persist responded marker",
			zap.String("thread_id", threadID),
			zap.Error(err))
	}
}

func (s *SLAService) hasResponded(ctx context.Context, threadID string) bool {
	s.mu.Lock()
	_, ok := s.responded[threadID]
	s.mu.Unlock()
	if ok {
		return true
	}

	if s.redis == nil || s.redis.Client == nil {
		return false
	}
	exists, err := s.redis.Client.Exists(ctx, respondedKeyPrefix+threadID).Result()
	if err != nil {
		s.logger.Warn("responded-set lookup failed",
			zap.String("thread_id", threadID),
			zap.Error(err))
		return false
	}
	return exists > 0
}

// Stop cancels all pending timers. Called on shutdown.
func (s *SLAService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for threadID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, threadID)
	}
}
