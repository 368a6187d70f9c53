package domain

import "time"

// EventType enumerates the lifecycle events emitted by the forum
// producer.
type EventType string

const (
	EventThreadCreated EventType = "thread_created"
	EventFirstResponse EventType = "first_response"
	EventTagsChanged   EventType = "tags_changed"
	EventTitleChanged  EventType = "title_changed"
	EventResolved      EventType = "resolved"
	EventReopened      EventType = "reopened"
)

// KnownEventType reports whether t is one of the supported kinds.
func KnownEventType(t EventType) bool {
	switch t {
	case EventThreadCreated, EventFirstResponse, EventTagsChanged,
		EventTitleChanged, EventResolved, EventReopened:
		return true
	}
	return false
}

// EventPayload is the normalized form of one inbound event. String
// fields are already trimmed; missing booleans are explicit false;
// timestamps are parsed to UTC or nil when absent. The transport layer
// guarantees Type and ThreadID are set before the reducer ever sees
// the payload.
type EventPayload struct {
	Type     EventType
	ThreadID string

	// thread_created
	Title                string
	RaisedBy             string
	CreatedAt            *time.Time
	Link                 string
	IsEngineering        bool
	OutsideBusinessHours bool

	// tags are shared by thread_created, tags_changed and resolved.
	// HasCategoryTags distinguishes "field absent" from "cleared to
	// empty", which matters for resolve events.
	CategoryTags    string
	HasCategoryTags bool

	// first_response
	FirstResponder      string
	TimeToFirstResponse string

	// resolved
	ResolutionDate      *time.Time
	TimeToResolution    string
	WarningMessageID    string

	// reopened
	ReopenedAt *time.Time
}
