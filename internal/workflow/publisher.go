package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inngest/inngestgo"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
)

// Publisher starts workflows by publishing their trigger events
type Publisher interface {
	PublishUserCreated(ctx context.Context, data domain.UserCreatedData) error
	PublishDailyNews(ctx context.Context, reason string) error
}

// EventSender is the part of inngestgo.Client used to publish events
type EventSender interface {
	Send(ctx context.Context, evt any) (string, error)
}

// EnginePublisher sends events to the workflow engine.
// The optional bus only mirrors them for the live event stream.
type EnginePublisher struct {
	sender EventSender
	bus    *events.Bus
	log    zerolog.Logger
}

// NewEnginePublisher creates a publisher backed by the engine
func NewEnginePublisher(sender EventSender, bus *events.Bus, log zerolog.Logger) *EnginePublisher {
	return &EnginePublisher{
		sender: sender,
		bus:    bus,
		log:    log.With().Str("publisher", "inngest").Logger(),
	}
}

// PublishUserCreated implements Publisher
func (p *EnginePublisher) PublishUserCreated(ctx context.Context, data domain.UserCreatedData) error {
	payload, err := toMap(data)
	if err != nil {
		return err
	}
	if err := p.send(ctx, domain.EventUserCreated, payload); err != nil {
		return err
	}
	if p.bus != nil {
		p.bus.Emit(events.UserCreated, "workflow", &events.UserCreatedData{UserCreatedData: data})
	}
	return nil
}

// PublishDailyNews implements Publisher
func (p *EnginePublisher) PublishDailyNews(ctx context.Context, reason string) error {
	if err := p.send(ctx, domain.EventSendDailyNews, map[string]any{"reason": reason}); err != nil {
		return err
	}
	if p.bus != nil {
		p.bus.Emit(events.DigestRequested, "workflow", &events.DigestRequestedData{Reason: reason})
	}
	return nil
}

func (p *EnginePublisher) send(ctx context.Context, name string, data map[string]any) error {
	id, err := p.sender.Send(ctx, inngestgo.Event{Name: name, Data: data})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	p.log.Debug().Str("event", name).Str("id", id).Msg("Event sent")
	return nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode event data: %w", err)
	}
	return out, nil
}

// LocalPublisher routes trigger events over the in-process bus.
// Listeners registered by the local scheduler run the workflows.
type LocalPublisher struct {
	bus *events.Bus
}

// NewLocalPublisher creates a bus-backed publisher
func NewLocalPublisher(bus *events.Bus) *LocalPublisher {
	return &LocalPublisher{bus: bus}
}

// PublishUserCreated implements Publisher
func (p *LocalPublisher) PublishUserCreated(_ context.Context, data domain.UserCreatedData) error {
	p.bus.Emit(events.UserCreated, "workflow", &events.UserCreatedData{UserCreatedData: data})
	return nil
}

// PublishDailyNews implements Publisher
func (p *LocalPublisher) PublishDailyNews(_ context.Context, reason string) error {
	p.bus.Emit(events.DigestRequested, "workflow", &events.DigestRequestedData{Reason: reason})
	return nil
}
