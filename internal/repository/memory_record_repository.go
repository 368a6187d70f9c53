package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/support-tracker/internal/domain"
)

// memoryRecordRepository is a map-backed store used in tests and when
// no Postgres DSN is configured. It mirrors the SQL store's contract,
// including the serialize-on-write/decode-on-read round trip for the
// reopen history, so codec behavior is exercised on both paths.
type memoryRecordRepository struct {
	mu      sync.RWMutex
	records map[string]*storedRecord
}

type storedRecord struct {
	record  domain.TicketRecord
	history string
}

// NewMemoryRecordRepository builds the in-memory store.
func NewMemoryRecordRepository() RecordRepository {
	return &memoryRecordRepository{records: make(map[string]*storedRecord)}
}

func (r *memoryRecordRepository) Create(ctx context.Context, record *domain.TicketRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ThreadID]; exists {
		return ErrDuplicate
	}
	record.UpdatedAt = time.Now().UTC()
	r.records[record.ThreadID] = store(record)
	return nil
}

func (r *memoryRecordRepository) Update(ctx context.Context, record *domain.TicketRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ThreadID]; !exists {
		return ErrNotFound
	}
	record.UpdatedAt = time.Now().UTC()
	r.records[record.ThreadID] = store(record)
	return nil
}

func (r *memoryRecordRepository) GetByThreadID(ctx context.Context, threadID string) (*domain.TicketRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.records[threadID]
	if !exists {
		return nil, ErrNotFound
	}
	return load(stored), nil
}

func (r *memoryRecordRepository) List(ctx context.Context, filter RecordFilter) ([]domain.TicketRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.TicketRecord
	for _, stored := range r.records {
		record := load(stored)
		if filter.IsEngineering != nil && record.IsEngineering != *filter.IsEngineering {
			continue
		}
		if filter.Resolved != nil && (record.ResolutionDate != nil) != *filter.Resolved {
			continue
		}
		result = append(result, *record)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	if end := offset + limit; end < len(result) {
		return result[offset:end], nil
	}
	return result[offset:], nil
}

func store(record *domain.TicketRecord) *storedRecord {
	clone := *record
	clone.ReopenHistory = nil
	return &storedRecord{record: clone, history: domain.EncodeReopenHistory(record.ReopenHistory)}
}

func load(stored *storedRecord) *domain.TicketRecord {
	record := stored.record
	record.ReopenHistory = domain.DecodeReopenHistory(stored.history)
	return &record
}
