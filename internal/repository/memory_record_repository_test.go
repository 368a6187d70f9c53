package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/support-tracker/internal/domain"
)

func newRecord(threadID string, createdAt time.Time) *domain.TicketRecord {
	return &domain.TicketRecord{
		ThreadID:  threadID,
		Title:     "title " + threadID,
		RaisedBy:  "user#1234",
		CreatedAt: createdAt,
	}
}

func TestMemoryCreateAndGet(t *testing.T) {
	repo := NewMemoryRecordRepository()
	ctx := context.Background()
	created := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, newRecord("100", created)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, newRecord("100", created)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second Create err = %v, want ErrDuplicate", err)
	}

	got, err := repo.GetByThreadID(ctx, "100")
	if err != nil {
		t.Fatalf("GetByThreadID: %v", err)
	}
	if got.Title != "title 100" || !got.CreatedAt.Equal(created) {
		t.Errorf("got %+v", got)
	}

	if _, err := repo.GetByThreadID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing lookup err = %v, want ErrNotFound", err)
	}
}

func TestMemoryUpdateRoundTripsHistory(t *testing.T) {
	repo := NewMemoryRecordRepository()
	ctx := context.Background()
	created := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	record := newRecord("200", created)
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create: %v", err)
	}

	record.ReopenCount = 1
	record.ReopenHistory = []domain.ReopenEntry{
		{Sequence: 1, ReopenedAt: created.Add(2 * time.Hour)},
	}
	if err := repo.Update(ctx, record); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetByThreadID(ctx, "200")
	if err != nil {
		t.Fatalf("GetByThreadID: %v", err)
	}
	if len(got.ReopenHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(got.ReopenHistory))
	}
	entry := got.ReopenHistory[0]
	if entry.Sequence != 1 || !entry.Pending() || !entry.ReopenedAt.Equal(created.Add(2*time.Hour)) {
		t.Errorf("round-tripped entry = %+v", entry)
	}

	// Mutating the returned record must not leak into the store.
	got.Title = "mutated"
	again, _ := repo.GetByThreadID(ctx, "200")
	if again.Title == "mutated" {
		t.Error("store aliases returned records")
	}
}

func TestMemoryUpdateMissing(t *testing.T) {
	repo := NewMemoryRecordRepository()
	err := repo.Update(context.Background(), newRecord("300", time.Now()))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
}

func TestMemoryListFilters(t *testing.T) {
	repo := NewMemoryRecordRepository()
	ctx := context.Background()
	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	eng := newRecord("1", base)
	eng.IsEngineering = true
	resolvedAt := base.Add(time.Hour)
	done := newRecord("2", base.Add(time.Minute))
	done.ResolutionDate = &resolvedAt
	open := newRecord("3", base.Add(2*time.Minute))

	for _, rec := range []*domain.TicketRecord{eng, done, open} {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create %s: %v", rec.ThreadID, err)
		}
	}

	truth := true
	tests := []struct {
		name   string
		filter RecordFilter
		want   []string
	}{
		{"All", RecordFilter{}, []string{"3", "2", "1"}},
		{"Engineering", RecordFilter{IsEngineering: &truth}, []string{"1"}},
		{"Resolved", RecordFilter{Resolved: &truth}, []string{"2"}},
		{"Paged", RecordFilter{Limit: 2, Offset: 1}, []string{"2", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List returned %d records, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ThreadID != id {
					t.Errorf("record %d = %s, want %s", i, got[i].ThreadID, id)
				}
			}
		})
	}
}
