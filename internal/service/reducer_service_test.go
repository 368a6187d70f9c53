package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/support-tracker/internal/domain"
	"github.com/spec-kit/support-tracker/internal/repository"
)

func newTestReducer() (*ReducerService, repository.RecordRepository) {
	repo := repository.NewMemoryRecordRepository()
	svc := NewReducerService(ReducerDependencies{RecordRepo: repo})
	return svc, repo
}

func timePtr(t time.Time) *time.Time { return &t }

var t0 = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

func createPayload(threadID string) domain.EventPayload {
	return domain.EventPayload{
		Type:          domain.EventThreadCreated,
		ThreadID:      threadID,
		Title:         "dbt run fails on incremental model",
		RaisedBy:      "analyst#4821",
		CreatedAt:     timePtr(t0),
		Link:          "https://discord.com/channels/1/42",
		IsEngineering: true,
	}
}

func mustApply(t *testing.T, svc *ReducerService, payload domain.EventPayload) Outcome {
	t.Helper()
	outcome, err := svc.ApplyEvent(context.Background(), payload)
	if err != nil {
		t.Fatalf("ApplyEvent(%s): %v", payload.Type, err)
	}
	return outcome
}

func TestIdempotentCreation(t *testing.T) {
	svc, repo := newTestReducer()

	first := mustApply(t, svc, createPayload("42"))
	if first.Action != ActionCreated {
		t.Fatalf("first create action = %s, want created", first.Action)
	}

	second := mustApply(t, svc, createPayload("42"))
	if second.Action != ActionSkipped || second.Reason != ReasonAlreadyExists {
		t.Fatalf("second create = %s/%s, want skipped/already_exists", second.Action, second.Reason)
	}

	records, err := repo.List(context.Background(), repository.RecordFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("record count = %d, want exactly 1", len(records))
	}
}

func TestNumericAndStringThreadIDsMatch(t *testing.T) {
	svc, _ := newTestReducer()

	mustApply(t, svc, createPayload("123"))
	// Same id arriving with surrounding whitespace, as a numeric
	// payload would after flexible decoding.
	dup := createPayload(" 123 ")
	outcome := mustApply(t, svc, dup)
	if outcome.Action != ActionSkipped || outcome.Reason != ReasonAlreadyExists {
		t.Errorf("duplicate by normalized id = %s/%s, want skipped/already_exists", outcome.Action, outcome.Reason)
	}
}

func TestWriteOnceFirstResponse(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	first := mustApply(t, svc, domain.EventPayload{
		Type:                domain.EventFirstResponse,
		ThreadID:            "42",
		FirstResponder:      "support#0001",
		TimeToFirstResponse: "12m 30s",
	})
	if first.Action != ActionUpdated {
		t.Fatalf("first response action = %s, want updated", first.Action)
	}

	second := mustApply(t, svc, domain.EventPayload{
		Type:                domain.EventFirstResponse,
		ThreadID:            "42",
		FirstResponder:      "support#0002",
		TimeToFirstResponse: "55m 0s",
	})
	if second.Action != ActionSkipped || second.Reason != ReasonAlreadyResponded {
		t.Fatalf("second response = %s/%s, want skipped/already_responded", second.Action, second.Reason)
	}
	if second.Record.FirstResponder != "support#0001" || second.Record.TimeToFirstResponse != "12m 30s" {
		t.Errorf("first-applied values lost: %q / %q",
			second.Record.FirstResponder, second.Record.TimeToFirstResponse)
	}
}

func TestHandlersSkipUnknownThread(t *testing.T) {
	svc, _ := newTestReducer()

	payloads := []domain.EventPayload{
		{Type: domain.EventFirstResponse, ThreadID: "nope", FirstResponder: "a"},
		{Type: domain.EventTagsChanged, ThreadID: "nope", CategoryTags: "bug", HasCategoryTags: true},
		{Type: domain.EventTitleChanged, ThreadID: "nope", Title: "t"},
		{Type: domain.EventResolved, ThreadID: "nope", ResolutionDate: timePtr(t0)},
		{Type: domain.EventReopened, ThreadID: "nope"},
	}
	for _, payload := range payloads {
		outcome := mustApply(t, svc, payload)
		if outcome.Action != ActionSkipped || outcome.Reason != ReasonThreadNotFound {
			t.Errorf("%s on unknown thread = %s/%s, want skipped/thread_not_found",
				payload.Type, outcome.Action, outcome.Reason)
		}
	}
}

func TestTagsAndTitleLastWriteWins(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	mustApply(t, svc, domain.EventPayload{
		Type: domain.EventTagsChanged, ThreadID: "42",
		CategoryTags: "bug, ingest", HasCategoryTags: true,
	})
	cleared := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventTagsChanged, ThreadID: "42",
		CategoryTags: "", HasCategoryTags: true,
	})
	if cleared.Record.CategoryTags != "" {
		t.Errorf("tags after clear = %q, want empty", cleared.Record.CategoryTags)
	}

	renamed := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventTitleChanged, ThreadID: "42", Title: "renamed",
	})
	if renamed.Record.Title != "renamed" {
		t.Errorf("title = %q, want %q", renamed.Record.Title, "renamed")
	}
}

func TestMonotonicReopenCount(t *testing.T) {
	svc, repo := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	const n = 5
	for i := 1; i <= n; i++ {
		outcome := mustApply(t, svc, domain.EventPayload{
			Type:       domain.EventReopened,
			ThreadID:   "42",
			ReopenedAt: timePtr(t0.Add(time.Duration(i) * time.Hour)),
		})
		if outcome.Action != ActionReopened || outcome.ReopenCount != i {
			t.Fatalf("reopen %d = %s count %d", i, outcome.Action, outcome.ReopenCount)
		}
	}

	record, err := repo.GetByThreadID(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetByThreadID: %v", err)
	}
	if record.ReopenCount != n {
		t.Errorf("reopen_count = %d, want %d", record.ReopenCount, n)
	}
	if len(record.ReopenHistory) != n {
		t.Fatalf("history entries = %d, want %d", len(record.ReopenHistory), n)
	}
	for i, entry := range record.ReopenHistory {
		if entry.Sequence != i+1 {
			t.Errorf("entry %d sequence = %d, want %d", i, entry.Sequence, i+1)
		}
	}
}

func TestResolutionAnchoring(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	reopenedAt := t0.Add(2 * time.Hour)
	resolvedAt := t0.Add(2*time.Hour + 42*time.Minute + 10*time.Second)

	mustApply(t, svc, domain.EventPayload{
		Type: domain.EventReopened, ThreadID: "42", ReopenedAt: timePtr(reopenedAt),
	})
	outcome := mustApply(t, svc, domain.EventPayload{
		Type:             domain.EventResolved,
		ThreadID:         "42",
		ResolutionDate:   timePtr(resolvedAt),
		TimeToResolution: "999d 23h 59m", // untrusted caller estimate, anchored at creation
	})

	if !outcome.ClosedReopenCycle {
		t.Fatal("expected resolve to close the reopen cycle")
	}
	want := domain.FormatDuration(resolvedAt.Sub(reopenedAt))
	entry := outcome.Record.LastReopenEntry()
	if entry.Duration != want {
		t.Errorf("cycle duration = %q, want recomputed %q", entry.Duration, want)
	}
	if entry.ResolvedAt == nil || !entry.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("entry resolved_at = %v, want %v", entry.ResolvedAt, resolvedAt)
	}
	if outcome.Record.TimeToResolution != want {
		t.Errorf("time_to_resolution = %q, want recomputed %q", outcome.Record.TimeToResolution, want)
	}
}

func TestFirstResolutionTrustsCallerDuration(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	resolvedAt := t0.Add(45 * time.Minute)
	outcome := mustApply(t, svc, domain.EventPayload{
		Type:             domain.EventResolved,
		ThreadID:         "42",
		ResolutionDate:   timePtr(resolvedAt),
		TimeToResolution: "45m 0s",
		WarningMessageID: "msg-900",
	})

	if outcome.Action != ActionResolved || outcome.ClosedReopenCycle {
		t.Fatalf("outcome = %s closed=%v, want resolved closed=false", outcome.Action, outcome.ClosedReopenCycle)
	}
	if outcome.Record.TimeToResolution != "45m 0s" {
		t.Errorf("time_to_resolution = %q, want caller-supplied %q", outcome.Record.TimeToResolution, "45m 0s")
	}
	if outcome.Record.PendingNotification != "msg-900" {
		t.Errorf("pending notification = %q, want msg-900", outcome.Record.PendingNotification)
	}
	if outcome.Record.ResolutionDate == nil || !outcome.Record.ResolutionDate.Equal(resolvedAt) {
		t.Errorf("resolution_date = %v, want %v", outcome.Record.ResolutionDate, resolvedAt)
	}
}

func TestNegativeIntervalClamp(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	mustApply(t, svc, domain.EventPayload{
		Type: domain.EventReopened, ThreadID: "42",
		ReopenedAt: timePtr(t0.Add(2 * time.Hour)),
	})
	// Resolve timestamp earlier than the reopen anchor.
	outcome := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventResolved, ThreadID: "42",
		ResolutionDate: timePtr(t0.Add(time.Hour)),
	})

	if entry := outcome.Record.LastReopenEntry(); entry.Duration != domain.ZeroDuration {
		t.Errorf("clamped duration = %q, want %q", entry.Duration, domain.ZeroDuration)
	}
}

func TestResolveWithMalformedHistoryFallsBack(t *testing.T) {
	svc, repo := newTestReducer()

	// A record whose history text was corrupted: the count says one
	// cycle exists but no entry survived decoding.
	if err := repo.Create(context.Background(), &domain.TicketRecord{
		ThreadID:    "42",
		Title:       "imported row",
		CreatedAt:   t0,
		ReopenCount: 1,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	outcome := mustApply(t, svc, domain.EventPayload{
		Type:             domain.EventResolved,
		ThreadID:         "42",
		ResolutionDate:   timePtr(t0.Add(3 * time.Hour)),
		TimeToResolution: "3h 0m",
	})

	if outcome.Action != ActionResolved {
		t.Fatalf("action = %s, want resolved", outcome.Action)
	}
	if outcome.ClosedReopenCycle {
		t.Error("malformed history must not report a closed cycle")
	}
	if outcome.Record.TimeToResolution != "3h 0m" {
		t.Errorf("time_to_resolution = %q, want caller fallback %q", outcome.Record.TimeToResolution, "3h 0m")
	}
}

func TestDoubleResolveKeepsClosedCycle(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	reopenedAt := t0.Add(time.Hour)
	mustApply(t, svc, domain.EventPayload{
		Type: domain.EventReopened, ThreadID: "42", ReopenedAt: timePtr(reopenedAt),
	})
	first := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventResolved, ThreadID: "42",
		ResolutionDate: timePtr(reopenedAt.Add(30 * time.Minute)),
	})
	if !first.ClosedReopenCycle {
		t.Fatal("first resolve should close the cycle")
	}

	redelivered := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventResolved, ThreadID: "42",
		ResolutionDate:   timePtr(reopenedAt.Add(31 * time.Minute)),
		TimeToResolution: "1h 31m",
	})
	if redelivered.ClosedReopenCycle {
		t.Error("re-delivered resolve must not close an already-closed cycle")
	}
	if entry := redelivered.Record.LastReopenEntry(); entry.Duration != "30m 0s" {
		t.Errorf("closed entry duration = %q, want untouched %q", entry.Duration, "30m 0s")
	}
}

func TestResolveAppliesTagUpdate(t *testing.T) {
	svc, _ := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	withTags := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventResolved, ThreadID: "42",
		ResolutionDate:  timePtr(t0.Add(time.Hour)),
		CategoryTags:    "resolved, billing",
		HasCategoryTags: true,
	})
	if withTags.Record.CategoryTags != "resolved, billing" {
		t.Errorf("tags = %q, want applied update", withTags.Record.CategoryTags)
	}

	// A resolve without a tags field leaves tags alone.
	without := mustApply(t, svc, domain.EventPayload{
		Type: domain.EventResolved, ThreadID: "42",
		ResolutionDate: timePtr(t0.Add(2 * time.Hour)),
	})
	if without.Record.CategoryTags != "resolved, billing" {
		t.Errorf("tags = %q, want unchanged", without.Record.CategoryTags)
	}
}

func TestConcurrentReopensDoNotLoseIncrements(t *testing.T) {
	svc, repo := newTestReducer()
	mustApply(t, svc, createPayload("42"))

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := svc.ApplyEvent(context.Background(), domain.EventPayload{
				Type:       domain.EventReopened,
				ThreadID:   "42",
				ReopenedAt: timePtr(t0.Add(time.Duration(i) * time.Minute)),
			})
			if err != nil {
				t.Errorf("concurrent reopen: %v", err)
			}
		}(i)
	}
	wg.Wait()

	record, err := repo.GetByThreadID(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetByThreadID: %v", err)
	}
	if record.ReopenCount != workers {
		t.Errorf("reopen_count = %d, want %d (lost increments)", record.ReopenCount, workers)
	}
	if len(record.ReopenHistory) != workers {
		t.Errorf("history entries = %d, want %d", len(record.ReopenHistory), workers)
	}
}

func TestEndToEndScenario(t *testing.T) {
	svc, repo := newTestReducer()
	ctx := context.Background()

	mustApply(t, svc, createPayload("T1"))

	// Resolve 45 minutes in: first-ever resolution trusts the caller.
	first := mustApply(t, svc, domain.EventPayload{
		Type:             domain.EventResolved,
		ThreadID:         "T1",
		ResolutionDate:   timePtr(t0.Add(45 * time.Minute)),
		TimeToResolution: "45m 0s",
	})
	if first.Record.TimeToResolution != "45m 0s" || first.ReopenCount != 0 {
		t.Fatalf("after first resolve: ttr=%q count=%d", first.Record.TimeToResolution, first.ReopenCount)
	}

	// Reopen at +2h.
	reopened := mustApply(t, svc, domain.EventPayload{
		Type:       domain.EventReopened,
		ThreadID:   "T1",
		ReopenedAt: timePtr(t0.Add(2 * time.Hour)),
	})
	if reopened.ReopenCount != 1 {
		t.Fatalf("reopen_count = %d, want 1", reopened.ReopenCount)
	}
	record, _ := repo.GetByThreadID(ctx, "T1")
	if len(record.ReopenHistory) != 1 || !record.ReopenHistory[0].Pending() {
		t.Fatalf("history = %+v, want one pending entry", record.ReopenHistory)
	}
	// The prior resolution still stands while the cycle is open.
	if record.ResolutionDate == nil || record.TimeToResolution != "45m 0s" {
		t.Error("resolution fields must survive a reopen")
	}

	// Resolve at +2h30m: closes the cycle with the recomputed 30m.
	final := mustApply(t, svc, domain.EventPayload{
		Type:           domain.EventResolved,
		ThreadID:       "T1",
		ResolutionDate: timePtr(t0.Add(2*time.Hour + 30*time.Minute)),
	})
	if !final.ClosedReopenCycle {
		t.Fatal("final resolve should close the reopen cycle")
	}

	record, _ = repo.GetByThreadID(ctx, "T1")
	entry := record.ReopenHistory[0]
	if entry.Pending() {
		t.Fatal("cycle still pending after resolve")
	}
	if entry.Duration != "30m 0s" {
		t.Errorf("cycle duration = %q, want %q", entry.Duration, "30m 0s")
	}
	if !record.ResolutionDate.Equal(t0.Add(2*time.Hour + 30*time.Minute)) {
		t.Errorf("resolution_date = %v, want +2h30m", record.ResolutionDate)
	}
}

func TestUnknownEventTypeRejected(t *testing.T) {
	svc, _ := newTestReducer()
	if _, err := svc.ApplyEvent(context.Background(), domain.EventPayload{
		Type: "thread_archived", ThreadID: "42",
	}); err == nil {
		t.Error("expected unknown event type to be rejected")
	}
}

func TestMissingThreadIDRejected(t *testing.T) {
	svc, _ := newTestReducer()
	if _, err := svc.ApplyEvent(context.Background(), domain.EventPayload{
		Type: domain.EventThreadCreated, ThreadID: "   ",
	}); err == nil {
		t.Error("expected blank thread id to be rejected")
	}
}
