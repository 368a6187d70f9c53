package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-tracker/internal/domain"
)

// ErrNotFound signals a lookup miss for a thread id. Reducer handlers
// translate it into a skipped outcome, never a hard failure.
var ErrNotFound = errors.New("ticket record not found")

// ErrDuplicate signals an insert for an already-tracked thread id.
var ErrDuplicate = errors.New("ticket record already exists")

// RecordFilter captures reporting read parameters.
type RecordFilter struct {
	IsEngineering *bool
	Resolved      *bool
	Limit         int
	Offset        int
}

// RecordRepository is the record store plus lookup index: one row per
// thread id, created once, mutated in place afterwards.
type RecordRepository interface {
	Create(ctx context.Context, record *domain.TicketRecord) error
	Update(ctx context.Context, record *domain.TicketRecord) error
	GetByThreadID(ctx context.Context, threadID string) (*domain.TicketRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]domain.TicketRecord, error)
}

type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository instantiates the Postgres-backed store.
func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &recordRepository{pool: pool}
}

// Column order is stable and load-bearing: reporting consumers read the
// row positionally by name and new columns may only be appended.
const recordColumns = `
        thread_id, title, category_tags, raised_by, created_at,
        first_responder, time_to_first_response, resolution_date,
        time_to_resolution, link, is_engineering, outside_business_hours,
        reopen_count, pending_notification_ref, reopen_history, updated_at`

func (r *recordRepository) Create(ctx context.Context, record *domain.TicketRecord) error {
	const query = `
        INSERT INTO ticket_records (thread_id, title, category_tags, raised_by, created_at,
            first_responder, time_to_first_response, resolution_date, time_to_resolution,
            link, is_engineering, outside_business_hours, reopen_count,
            pending_notification_ref, reopen_history)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		record.ThreadID,
		record.Title,
		record.CategoryTags,
		record.RaisedBy,
		record.CreatedAt,
		record.FirstResponder,
		record.TimeToFirstResponse,
		record.ResolutionDate,
		record.TimeToResolution,
		record.Link,
		record.IsEngineering,
		record.OutsideBusinessHours,
		record.ReopenCount,
		record.PendingNotification,
		domain.EncodeReopenHistory(record.ReopenHistory),
	).Scan(&record.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *recordRepository) Update(ctx context.Context, record *domain.TicketRecord) error {
	const query = `
        UPDATE ticket_records SET title=$1, category_tags=$2, raised_by=$3,
            first_responder=$4, time_to_first_response=$5, resolution_date=$6,
            time_to_resolution=$7, reopen_count=$8, pending_notification_ref=$9,
            reopen_history=$10, updated_at=NOW()
        WHERE thread_id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		record.Title,
		record.CategoryTags,
		record.RaisedBy,
		record.FirstResponder,
		record.TimeToFirstResponse,
		record.ResolutionDate,
		record.TimeToResolution,
		record.ReopenCount,
		record.PendingNotification,
		domain.EncodeReopenHistory(record.ReopenHistory),
		record.ThreadID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recordRepository) GetByThreadID(ctx context.Context, threadID string) (*domain.TicketRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ticket_records WHERE thread_id=$1`
	record, err := scanRecord(r.pool.QueryRow(ctx, query, threadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *recordRepository) List(ctx context.Context, filter RecordFilter) ([]domain.TicketRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ticket_records WHERE 1=1`
	args := []any{}

	if filter.IsEngineering != nil {
		args = append(args, *filter.IsEngineering)
		query += ` AND is_engineering=$1`
	}
	if filter.Resolved != nil {
		if *filter.Resolved {
			query += ` AND resolution_date IS NOT NULL`
		} else {
			query += ` AND resolution_date IS NULL`
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.TicketRecord, error) {
	var record domain.TicketRecord
	var history string
	if err := row.Scan(
		&record.ThreadID,
		&record.Title,
		&record.CategoryTags,
		&record.RaisedBy,
		&record.CreatedAt,
		&record.FirstResponder,
		&record.TimeToFirstResponse,
		&record.ResolutionDate,
		&record.TimeToResolution,
		&record.Link,
		&record.IsEngineering,
		&record.OutsideBusinessHours,
		&record.ReopenCount,
		&record.PendingNotification,
		&history,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	record.ReopenHistory = domain.DecodeReopenHistory(history)
	return &record, nil
}
