package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-tracker/internal/domain"
	"github.com/spec-kit/support-tracker/internal/events"
	"github.com/spec-kit/support-tracker/internal/observability"
	"github.com/spec-kit/support-tracker/internal/repository"
	apperrors "github.com/spec-kit/support-tracker/pkg/util"
)

// OutcomeAction classifies what applying an event did.
type OutcomeAction string

const (
	ActionCreated  OutcomeAction = "created"
	ActionUpdated  OutcomeAction = "updated"
	ActionSkipped  OutcomeAction = "skipped"
	ActionResolved OutcomeAction = "resolved"
	ActionReopened OutcomeAction = "reopened"
)

// Skip reasons reported in outcomes. A skip is an acknowledged no-op,
// not a failure: events race with record creation and may be delivered
// more than once.
const (
	ReasonAlreadyExists    = "already_exists"
	ReasonThreadNotFound   = "thread_not_found"
	ReasonAlreadyResponded = "already_responded"
)

// Outcome is the structured result of applying one event.
type Outcome struct {
	Action            OutcomeAction
	Reason            string
	Record            *domain.TicketRecord
	ReopenCount       int
	ClosedReopenCycle bool
}

// ReducerService owns the per-event state transitions over ticket
// records. It is the only writer of the record store.
type ReducerService struct {
	records    repository.RecordRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	locks      *threadLocks
	now        func() time.Time
}

// ReducerDependencies bundles collaborators for the reducer.
type ReducerDependencies struct {
	RecordRepo repository.RecordRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewReducerService constructs the service.
func NewReducerService(deps ReducerDependencies) *ReducerService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReducerService{
		records:    deps.RecordRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		locks:      newThreadLocks(),
		now:        time.Now,
	}
}

// ApplyEvent routes one normalized event through its handler while
// holding the target ticket's lock, persists the result and publishes
// the matching domain event. Persistence failures propagate; handler
// logic itself never fails hard.
func (s *ReducerService) ApplyEvent(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	threadID := domain.NormalizeThreadID(payload.ThreadID)
	if threadID == "" {
		return Outcome{}, apperrors.NewValidationError("thread_id required", nil)
	}
	payload.ThreadID = threadID

	unlock := s.locks.lock(threadID)
	defer unlock()

	var (
		outcome Outcome
		err     error
	)
	switch payload.Type {
	case domain.EventThreadCreated:
		outcome, err = s.applyCreate(ctx, payload)
	case domain.EventFirstResponse:
		outcome, err = s.applyFirstResponse(ctx, payload)
	case domain.EventTagsChanged:
		outcome, err = s.applyTagsChanged(ctx, payload)
	case domain.EventTitleChanged:
		outcome, err = s.applyTitleChanged(ctx, payload)
	case domain.EventResolved:
		outcome, err = s.applyResolve(ctx, payload)
	case domain.EventReopened:
		outcome, err = s.applyReopen(ctx, payload)
	default:
		return Outcome{}, apperrors.NewValidationError("unknown event_type", map[string]any{
			"event_type": string(payload.Type),
		})
	}
	if err != nil {
		return Outcome{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordEvent(string(payload.Type), string(outcome.Action))
	}
	s.logger.Info("event applied",
		zap.String("event_type", string(payload.Type)),
		zap.String("thread_id", threadID),
		zap.String("action", string(outcome.Action)),
		zap.String("reason", outcome.Reason))

	s.publishOutcome(ctx, payload, outcome)
	return outcome, nil
}

func (s *ReducerService) applyCreate(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	existing, err := s.records.GetByThreadID(ctx, payload.ThreadID)
	if err == nil {
		return Outcome{Action: ActionSkipped, Reason: ReasonAlreadyExists, Record: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return Outcome{}, err
	}

	record := &domain.TicketRecord{
		ThreadID:             payload.ThreadID,
		Title:                payload.Title,
		CategoryTags:         payload.CategoryTags,
		RaisedBy:             payload.RaisedBy,
		CreatedAt:            s.timeOrNow(payload.CreatedAt),
		Link:                 payload.Link,
		IsEngineering:        payload.IsEngineering,
		OutsideBusinessHours: payload.OutsideBusinessHours,
	}
	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Outcome{Action: ActionSkipped, Reason: ReasonAlreadyExists, Record: record}, nil
		}
		return Outcome{}, err
	}
	return Outcome{Action: ActionCreated, Record: record}, nil
}

func (s *ReducerService) applyFirstResponse(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	record, outcome, err := s.fetch(ctx, payload.ThreadID)
	if record == nil {
		return outcome, err
	}

	if strings.TrimSpace(record.FirstResponder) != "" {
		return Outcome{Action: ActionSkipped, Reason: ReasonAlreadyResponded, Record: record}, nil
	}

	// Both fields are taken from the payload verbatim: the producer
	// owns the first-response duration because only it knows the exact
	// creation anchor.
	record.FirstResponder = payload.FirstResponder
	record.TimeToFirstResponse = payload.TimeToFirstResponse
	if err := s.records.Update(ctx, record); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionUpdated, Record: record}, nil
}

func (s *ReducerService) applyTagsChanged(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	record, outcome, err := s.fetch(ctx, payload.ThreadID)
	if record == nil {
		return outcome, err
	}

	// Last write wins, including clearing to empty.
	record.CategoryTags = payload.CategoryTags
	if err := s.records.Update(ctx, record); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionUpdated, Record: record}, nil
}

func (s *ReducerService) applyTitleChanged(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	record, outcome, err := s.fetch(ctx, payload.ThreadID)
	if record == nil {
		return outcome, err
	}

	record.Title = payload.Title
	if err := s.records.Update(ctx, record); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionUpdated, Record: record}, nil
}

func (s *ReducerService) applyResolve(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	record, outcome, err := s.fetch(ctx, payload.ThreadID)
	if record == nil {
		return outcome, err
	}

	resolvedAt := s.timeOrNow(payload.ResolutionDate)
	timeToResolution := payload.TimeToResolution
	closedCycle := false

	if record.ReopenCount > 0 {
		// This resolve closes the most recent reopen cycle. The true
		// duration is recomputed from the cycle's own anchor; the
		// caller-supplied string is anchored at creation and would
		// overstate every cycle after the first.
		if entry := record.LastReopenEntry(); entry != nil && entry.Pending() {
			duration := domain.FormatDuration(resolvedAt.Sub(entry.ReopenedAt))
			entry.ResolvedAt = &resolvedAt
			entry.Duration = duration
			timeToResolution = duration
			closedCycle = true
		}
		// Otherwise the history is malformed or the cycle was already
		// closed by an earlier delivery; keep the caller-supplied
		// duration rather than failing the resolve.
	}

	record.ResolutionDate = &resolvedAt
	record.TimeToResolution = timeToResolution
	record.PendingNotification = payload.WarningMessageID
	if payload.HasCategoryTags {
		record.CategoryTags = payload.CategoryTags
	}

	if err := s.records.Update(ctx, record); err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Action:            ActionResolved,
		Record:            record,
		ReopenCount:       record.ReopenCount,
		ClosedReopenCycle: closedCycle,
	}, nil
}

func (s *ReducerService) applyReopen(ctx context.Context, payload domain.EventPayload) (Outcome, error) {
	record, outcome, err := s.fetch(ctx, payload.ThreadID)
	if record == nil {
		return outcome, err
	}

	record.ReopenCount++
	record.ReopenHistory = append(record.ReopenHistory, domain.ReopenEntry{
		Sequence:   record.ReopenCount,
		ReopenedAt: s.timeOrNow(payload.ReopenedAt),
	})
	// ResolutionDate and TimeToResolution keep reflecting the most
	// recent completed resolution until a new resolve closes this
	// cycle.

	if err := s.records.Update(ctx, record); err != nil {
		return Outcome{}, err
	}
	return Outcome{Action: ActionReopened, Record: record, ReopenCount: record.ReopenCount}, nil
}

// fetch resolves the target record. A miss yields the skipped outcome
// used by every non-create handler.
func (s *ReducerService) fetch(ctx context.Context, threadID string) (*domain.TicketRecord, Outcome, error) {
	record, err := s.records.GetByThreadID(ctx, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, Outcome{Action: ActionSkipped, Reason: ReasonThreadNotFound}, nil
		}
		return nil, Outcome{}, err
	}
	return record, Outcome{}, nil
}

// timeOrNow returns the payload timestamp or the current time at the
// canonical second precision.
func (s *ReducerService) timeOrNow(t *time.Time) time.Time {
	if t != nil {
		return t.UTC().Truncate(time.Second)
	}
	return s.now().UTC().Truncate(time.Second)
}

func (s *ReducerService) publishOutcome(ctx context.Context, payload domain.EventPayload, outcome Outcome) {
	if s.dispatcher == nil || outcome.Action == ActionSkipped {
		return
	}

	event := events.Event{
		ID:        uuid.NewString(),
		ThreadID:  payload.ThreadID,
		Timestamp: s.now().UTC(),
	}

	switch outcome.Action {
	case ActionCreated:
		event.Type = events.EventRecordCreated
		event.Payload = events.RecordCreatedPayload{
			Title:                outcome.Record.Title,
			RaisedBy:             outcome.Record.RaisedBy,
			Link:                 outcome.Record.Link,
			IsEngineering:        outcome.Record.IsEngineering,
			OutsideBusinessHours: outcome.Record.OutsideBusinessHours,
		}
	case ActionResolved:
		event.Type = events.EventRecordResolved
		event.Payload = events.RecordResolvedPayload{
			ResolutionDate:    *outcome.Record.ResolutionDate,
			TimeToResolution:  outcome.Record.TimeToResolution,
			ClosedReopenCycle: outcome.ClosedReopenCycle,
			ReopenCount:       outcome.ReopenCount,
		}
	case ActionReopened:
		entry := outcome.Record.LastReopenEntry()
		event.Type = events.EventRecordReopened
		event.Payload = events.RecordReopenedPayload{
			ReopenCount: outcome.ReopenCount,
			ReopenedAt:  entry.ReopenedAt,
		}
	case ActionUpdated:
		switch payload.Type {
		case domain.EventFirstResponse:
			event.Type = events.EventFirstResponse
			event.Payload = events.FirstResponsePayload{
				Responder:           outcome.Record.FirstResponder,
				TimeToFirstResponse: outcome.Record.TimeToFirstResponse,
			}
		case domain.EventTagsChanged:
			event.Type = events.EventRecordUpdated
			event.Payload = events.RecordUpdatedPayload{Field: "category_tags", Value: outcome.Record.CategoryTags}
		case domain.EventTitleChanged:
			event.Type = events.EventRecordUpdated
			event.Payload = events.RecordUpdatedPayload{Field: "title", Value: outcome.Record.Title}
		default:
			return
		}
	default:
		return
	}

	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publication failed",
			zap.String("thread_id", payload.ThreadID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}
