package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/domain"
)

func TestEmailData_EventType(t *testing.T) {
	assert.Equal(t, EmailSent, (&EmailData{Recipient: "a@b.c"}).EventType())
	assert.Equal(t, EmailFailed, (&EmailData{Recipient: "a@b.c", Error: "timeout"}).EventType())
}

func TestEvent_JSONRoundTripKeepsTypedData(t *testing.T) {
	original := &Event{
		Type:      UserCreated,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Module:    "users",
		Data: &UserCreatedData{UserCreatedData: domain.UserCreatedData{
			Email:         "ada@example.com",
			RiskTolerance: "Low",
		}},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"riskTolerance":"Low"`)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	data, ok := decoded.Data.(*UserCreatedData)
	require.True(t, ok, "expected *UserCreatedData, got %T", decoded.Data)
	assert.Equal(t, "ada@example.com", data.Email)
	assert.Equal(t, "users", decoded.Module)
}

func TestEvent_UnknownTypeFallsBackToGeneric(t *testing.T) {
	raw := `{"type":"SOMETHING_NEW","module":"x","timestamp":"2025-01-01T00:00:00Z","data":{"answer":42}}`

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))

	generic, ok := decoded.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("SOMETHING_NEW"), generic.EventType())
	assert.Equal(t, float64(42), generic.Data["answer"])
}

func TestEvent_NoData(t *testing.T) {
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"DIGEST_REQUESTED","module":"api"}`), &decoded))
	assert.Nil(t, decoded.Data)
}
