package events

import (
	"encoding/json"

	"github.com/aristath/signalist/internal/domain"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// UserCreatedData wraps the signup payload
type UserCreatedData struct {
	domain.UserCreatedData
}

// EventType returns the event type for UserCreatedData
func (d *UserCreatedData) EventType() EventType {
	return UserCreated
}

// WatchlistChangedData contains data for WatchlistChanged events
type WatchlistChangedData struct {
	Email  string `json:"email"`
	Symbol string `json:"symbol"`
	Action string `json:"action"` // "added" or "removed"
}

// EventType returns the event type for WatchlistChangedData
func (d *WatchlistChangedData) EventType() EventType {
	return WatchlistChanged
}

// DigestRequestedData contains data for DigestRequested events
type DigestRequestedData struct {
	Reason string `json:"reason"` // "cron", "manual", ...
}

// EventType returns the event type for DigestRequestedData
func (d *DigestRequestedData) EventType() EventType {
	return DigestRequested
}

// DigestCompletedData summarizes a finished digest run
type DigestCompletedData struct {
	Users   int    `json:"users"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Message string `json:"message"`
}

// EventType returns the event type for DigestCompletedData
func (d *DigestCompletedData) EventType() EventType {
	return DigestCompleted
}

// EmailData contains data for EmailSent and EmailFailed events
type EmailData struct {
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Error     string `json:"error,omitempty"`
}

// EventType returns EmailFailed when an error is set, EmailSent otherwise
func (d *EmailData) EventType() EventType {
	if d.Error != "" {
		return EmailFailed
	}
	return EmailSent
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key string `json:"key"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// MarshalJSON customizes JSON serialization for Event
func (e *Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for Event
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case UserCreated:
		eventData = &UserCreatedData{}
	case WatchlistChanged:
		eventData = &WatchlistChangedData{}
	case DigestRequested:
		eventData = &DigestRequestedData{}
	case DigestCompleted:
		eventData = &DigestCompletedData{}
	case EmailSent, EmailFailed:
		eventData = &EmailData{}
	case SettingsChanged:
		eventData = &SettingsChangedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		generic := &GenericEventData{Type: aux.Type}
		if err := json.Unmarshal(aux.Data, &generic.Data); err != nil {
			return err
		}
		e.Data = generic
		return nil
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}
