package events

import "time"

// EventType enumerates domain events published after a reducer outcome
// has been persisted.
type EventType string

const (
	EventRecordCreated  EventType = "record_created"
	EventFirstResponse  EventType = "first_response_recorded"
	EventRecordResolved EventType = "record_resolved"
	EventRecordReopened EventType = "record_reopened"
	EventRecordUpdated  EventType = "record_updated"
)

// Event represents a domain event emitted by the reducer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ThreadID  string      `json:"thread_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RecordCreatedPayload payload.
type RecordCreatedPayload struct {
	Title                string `json:"title"`
	RaisedBy             string `json:"raised_by"`
	Link                 string `json:"link"`
	IsEngineering        bool   `json:"is_engineering"`
	OutsideBusinessHours bool   `json:"outside_business_hours"`
}

// FirstResponsePayload payload.
type FirstResponsePayload struct {
	Responder           string `json:"responder"`
	TimeToFirstResponse string `json:"time_to_first_response"`
}

// RecordResolvedPayload payload.
type RecordResolvedPayload struct {
	ResolutionDate    time.Time `json:"resolution_date"`
	TimeToResolution  string    `json:"time_to_resolution"`
	ClosedReopenCycle bool      `json:"closed_reopen_cycle"`
	ReopenCount       int       `json:"reopen_count"`
}

// RecordReopenedPayload payload.
type RecordReopenedPayload struct {
	ReopenCount int       `json:"reopen_count"`
	ReopenedAt  time.Time `json:"reopened_at"`
}

// RecordUpdatedPayload payload for title and tag overwrites.
type RecordUpdatedPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}
