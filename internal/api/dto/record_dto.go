package dto

import (
	"github.com/spec-kit/support-tracker/internal/domain"
	"github.com/spec-kit/support-tracker/internal/service"
)

// ReopenEntryResponse is one reopen cycle in a record response.
type ReopenEntryResponse struct {
	Sequence   int    `json:"sequence"`
	ReopenedAt string `json:"reopened_at"`
	ResolvedAt string `json:"resolved_at,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Pending    bool   `json:"pending"`
}

// RecordResponse is the read form of a ticket record. Timestamps use
// the canonical second precision layout.
type RecordResponse struct {
	ThreadID             string                `json:"thread_id"`
	Title                string                `json:"title"`
	CategoryTags         string                `json:"category_tags"`
	RaisedBy             string                `json:"raised_by"`
	CreatedAt            string                `json:"created_at"`
	FirstResponder       string                `json:"first_responder,omitempty"`
	TimeToFirstResponse  string                `json:"time_to_first_response,omitempty"`
	ResolutionDate       string                `json:"resolution_date,omitempty"`
	TimeToResolution     string                `json:"time_to_resolution,omitempty"`
	Link                 string                `json:"link,omitempty"`
	IsEngineering        bool                  `json:"is_engineering"`
	OutsideBusinessHours bool                  `json:"outside_business_hours"`
	ReopenCount          int                   `json:"reopen_count"`
	PendingNotification  string                `json:"pending_notification_ref,omitempty"`
	ReopenHistory        []ReopenEntryResponse `json:"reopen_history"`
	UpdatedAt            string                `json:"updated_at"`
}

// NewRecordResponse maps a domain record to its wire form.
func NewRecordResponse(record *domain.TicketRecord) RecordResponse {
	resp := RecordResponse{
		ThreadID:             record.ThreadID,
		Title:                record.Title,
		CategoryTags:         record.CategoryTags,
		RaisedBy:             record.RaisedBy,
		CreatedAt:            domain.FormatTimestamp(record.CreatedAt),
		FirstResponder:       record.FirstResponder,
		TimeToFirstResponse:  record.TimeToFirstResponse,
		TimeToResolution:     record.TimeToResolution,
		Link:                 record.Link,
		IsEngineering:        record.IsEngineering,
		OutsideBusinessHours: record.OutsideBusinessHours,
		ReopenCount:          record.ReopenCount,
		PendingNotification:  record.PendingNotification,
		ReopenHistory:        make([]ReopenEntryResponse, 0, len(record.ReopenHistory)),
		UpdatedAt:            domain.FormatTimestamp(record.UpdatedAt),
	}
	if record.ResolutionDate != nil {
		resp.ResolutionDate = domain.FormatTimestamp(*record.ResolutionDate)
	}
	for _, entry := range record.ReopenHistory {
		item := ReopenEntryResponse{
			Sequence:   entry.Sequence,
			ReopenedAt: domain.FormatTimestamp(entry.ReopenedAt),
			Duration:   entry.Duration,
			Pending:    entry.Pending(),
		}
		if entry.ResolvedAt != nil {
			item.ResolvedAt = domain.FormatTimestamp(*entry.ResolvedAt)
		}
		resp.ReopenHistory = append(resp.ReopenHistory, item)
	}
	return resp
}

// RecordListResponse wraps a filtered page of records.
type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
}

// OutcomeResponse reports what the reducer did with one event.
type OutcomeResponse struct {
	Action            string          `json:"action"`
	Reason            string          `json:"reason,omitempty"`
	ReopenCount       int             `json:"reopen_count,omitempty"`
	ClosedReopenCycle bool            `json:"closed_reopen_cycle,omitempty"`
	Record            *RecordResponse `json:"record,omitempty"`
}

// NewOutcomeResponse maps a reducer outcome to its wire form.
func NewOutcomeResponse(outcome service.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Action:            string(outcome.Action),
		Reason:            outcome.Reason,
		ReopenCount:       outcome.ReopenCount,
		ClosedReopenCycle: outcome.ClosedReopenCycle,
	}
	if outcome.Record != nil {
		record := NewRecordResponse(outcome.Record)
		resp.Record = &record
	}
	return resp
}
