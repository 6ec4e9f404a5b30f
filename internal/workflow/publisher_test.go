package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/inngest/inngestgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
)

type fakeSender struct {
	events []inngestgo.Event
	err    error
}

func (f *fakeSender) Send(_ context.Context, evt any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, evt.(inngestgo.Event))
	return "01JEVENT", nil
}

func TestEnginePublisher_UserCreated(t *testing.T) {
	sender := &fakeSender{}
	bus := events.NewBus(zerolog.Nop())
	var mirrored int
	bus.Subscribe(events.UserCreated, func(*events.Event) { mirrored++ })

	p := NewEnginePublisher(sender, bus, zerolog.Nop())
	err := p.PublishUserCreated(context.Background(), domain.UserCreatedData{
		Email:           "ada@example.com",
		Name:            "Ada",
		InvestmentGoals: "Growth",
	})
	require.NoError(t, err)

	require.Len(t, sender.events, 1)
	evt := sender.events[0]
	assert.Equal(t, "app/user.created", evt.Name)
	assert.Equal(t, "ada@example.com", evt.Data["email"])
	assert.Equal(t, "Growth", evt.Data["investmentGoals"])
	assert.Equal(t, "", evt.Data["preferredIndustry"])
	assert.Equal(t, 1, mirrored)
}

func TestEnginePublisher_DailyNews(t *testing.T) {
	sender := &fakeSender{}
	p := NewEnginePublisher(sender, nil, zerolog.Nop())

	require.NoError(t, p.PublishDailyNews(context.Background(), "manual"))

	require.Len(t, sender.events, 1)
	assert.Equal(t, "app/send.daily.news", sender.events[0].Name)
	assert.Equal(t, "manual", sender.events[0].Data["reason"])
}

func TestEnginePublisher_SendError(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var mirrored int
	bus.Subscribe(events.DigestRequested, func(*events.Event) { mirrored++ })

	p := NewEnginePublisher(&fakeSender{err: errors.New("401")}, bus, zerolog.Nop())
	err := p.PublishDailyNews(context.Background(), "manual")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "app/send.daily.news")
	assert.Zero(t, mirrored)
}

func TestLocalPublisher(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	var got []*events.Event
	bus.Subscribe(events.UserCreated, func(e *events.Event) { got = append(got, e) })
	bus.Subscribe(events.DigestRequested, func(e *events.Event) { got = append(got, e) })

	p := NewLocalPublisher(bus)
	require.NoError(t, p.PublishUserCreated(context.Background(), domain.UserCreatedData{Email: "ada@example.com"}))
	require.NoError(t, p.PublishDailyNews(context.Background(), "manual"))

	require.Len(t, got, 2)
	assert.Equal(t, "ada@example.com", got[0].Data.(*events.UserCreatedData).Email)
	assert.Equal(t, "manual", got[1].Data.(*events.DigestRequestedData).Reason)
}
