// Package events provides the in-process event bus used to decouple handlers,
// workflows and the live event stream.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	UserCreated      EventType = "USER_CREATED"
	WatchlistChanged EventType = "WATCHLIST_CHANGED"
	DigestRequested  EventType = "DIGEST_REQUESTED"
	DigestCompleted  EventType = "DIGEST_COMPLETED"
	EmailSent        EventType = "EMAIL_SENT"
	EmailFailed      EventType = "EMAIL_FAILED"
	SettingsChanged  EventType = "SETTINGS_CHANGED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the bus carries.
var AllEventTypes = []EventType{
	UserCreated,
	WatchlistChanged,
	DigestRequested,
	DigestCompleted,
	EmailSent,
	EmailFailed,
	SettingsChanged,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
