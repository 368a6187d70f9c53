package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/support-tracker/internal/domain"
	apperrors "github.com/spec-kit/support-tracker/pkg/util"
)

// FlexString accepts either a JSON string or a JSON number. Producers
// send numeric thread and message ids interchangeably as either.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// EventRequest is the wire form of one inbound lifecycle event.
// Pointer fields distinguish absent from empty, which the reducer
// needs for tag updates on resolve.
type EventRequest struct {
	Type     string     `json:"event_type"`
	ThreadID FlexString `json:"thread_id"`

	Title                *string `json:"title,omitempty"`
	RaisedBy             *string `json:"raised_by,omitempty"`
	CreatedAt            *string `json:"date_created,omitempty"`
	Link                 *string `json:"thread_link,omitempty"`
	IsEngineering        *bool   `json:"is_engineering,omitempty"`
	OutsideBusinessHours *bool   `json:"outside_business_hours,omitempty"`

	// The producer's tag field is historically named "type".
	CategoryTags *string `json:"type,omitempty"`

	FirstResponder      *string `json:"first_responded_by,omitempty"`
	TimeToFirstResponse *string `json:"time_to_first_response,omitempty"`

	ResolutionDate   *string     `json:"resolution_date,omitempty"`
	TimeToResolution *string     `json:"time_to_resolution,omitempty"`
	WarningMessageID *FlexString `json:"warning_message_id,omitempty"`

	ReopenedAt *string `json:"reopened_at,omitempty"`
}

// Normalize validates the request and converts it into the reducer's
// payload form. Timestamps outside the canonical layout are rejected
// here rather than silently dropped.
func (r EventRequest) Normalize() (domain.EventPayload, error) {
	eventType := domain.EventType(strings.TrimSpace(r.Type))
	if !domain.KnownEventType(eventType) {
		return domain.EventPayload{}, apperrors.NewValidationError("unknown event type", nil)
	}

	threadID := domain.NormalizeThreadID(string(r.ThreadID))
	if threadID == "" {
		return domain.EventPayload{}, apperrors.NewValidationError("thread_id is required", nil)
	}

	payload := domain.EventPayload{
		Type:     eventType,
		ThreadID: threadID,
	}

	if r.Title != nil {
		payload.Title = strings.TrimSpace(*r.Title)
	}
	if r.RaisedBy != nil {
		payload.RaisedBy = strings.TrimSpace(*r.RaisedBy)
	}
	if r.Link != nil {
		payload.Link = strings.TrimSpace(*r.Link)
	}
	if r.IsEngineering != nil {
		payload.IsEngineering = *r.IsEngineering
	}
	if r.OutsideBusinessHours != nil {
		payload.OutsideBusinessHours = *r.OutsideBusinessHours
	}
	if r.CategoryTags != nil {
		payload.CategoryTags = strings.TrimSpace(*r.CategoryTags)
		payload.HasCategoryTags = true
	}
	if r.FirstResponder != nil {
		payload.FirstResponder = strings.TrimSpace(*r.FirstResponder)
	}
	if r.TimeToFirstResponse != nil {
		payload.TimeToFirstResponse = strings.TrimSpace(*r.TimeToFirstResponse)
	}
	if r.TimeToResolution != nil {
		payload.TimeToResolution = strings.TrimSpace(*r.TimeToResolution)
	}
	if r.WarningMessageID != nil {
		payload.WarningMessageID = strings.TrimSpace(string(*r.WarningMessageID))
	}

	var err error
	if payload.CreatedAt, err = parseOptionalTimestamp(r.CreatedAt, "created_at"); err != nil {
		return domain.EventPayload{}, err
	}
	if payload.ResolutionDate, err = parseOptionalTimestamp(r.ResolutionDate, "resolution_date"); err != nil {
		return domain.EventPayload{}, err
	}
	if payload.ReopenedAt, err = parseOptionalTimestamp(r.ReopenedAt, "reopened_at"); err != nil {
		return domain.EventPayload{}, err
	}

	return payload, nil
}

func parseOptionalTimestamp(raw *string, field string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	parsed, ok := domain.ParseTimestamp(value)
	if !ok {
		return nil, apperrors.NewValidationError("invalid "+field+" timestamp", nil)
	}
	return &parsed, nil
}
