// Package notifications implements the welcome email and daily news digest workflows.
//
// Every operation is a plain function so it can run in-process or be wrapped
// in a workflow engine step.
package notifications

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
	"github.com/aristath/signalist/internal/mailer"
	"github.com/aristath/signalist/internal/metrics"
)

const defaultConcurrency = 8

// DigestArchiver stores rendered digests. Archive errors never block a send.
type DigestArchiver interface {
	Store(ctx context.Context, date time.Time, userID, html string) (string, error)
}

// Deps are the collaborators of a Service. Deliveries, Archive, Events and
// Metrics are optional.
type Deps struct {
	Users      domain.UserStore
	Watchlists domain.WatchlistStore
	News       domain.NewsProvider
	Summarizer domain.Summarizer
	Sender     mailer.Sender
	Deliveries domain.DeliveryRecorder
	Archive    DigestArchiver
	Events     *events.Bus
	Metrics    *metrics.Metrics
	Clock      clockwork.Clock
}

// Options tune a Service
type Options struct {
	Concurrency  int    // Max users processed in parallel per stage
	FromName     string // Display name of the sender
	DashboardURL string // Link shown in the welcome email, optional
}

// Service runs the notification workflows
type Service struct {
	deps Deps
	opts Options
	log  zerolog.Logger
}

// NewService creates a notification service
func NewService(deps Deps, opts Options, log zerolog.Logger) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.FromName == "" {
		opts.FromName = mailer.DefaultFromName
	}

	return &Service{
		deps: deps,
		opts: opts,
		log:  log.With().Str("service", "notifications").Logger(),
	}
}

// deliver sends one message and records the attempt everywhere it is tracked
func (s *Service) deliver(ctx context.Context, kind domain.DeliveryKind, msg mailer.Message) error {
	msg.FromName = s.opts.FromName
	sendErr := s.deps.Sender.Send(ctx, msg)

	d := domain.Delivery{
		Kind:      kind,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Status:    domain.DeliverySent,
		CreatedAt: s.deps.Clock.Now(),
	}
	if sendErr != nil {
		d.Status = domain.DeliveryFailed
		d.Error = sendErr.Error()
	}

	if s.deps.Deliveries != nil {
		if err := s.deps.Deliveries.Record(ctx, d); err != nil {
			s.log.Warn().Err(err).Str("email", msg.To).Msg("Failed to record delivery")
		}
	}

	s.deps.Metrics.EmailSent(string(kind), sendErr)

	if s.deps.Events != nil {
		data := &events.EmailData{
			Kind:      string(kind),
			Recipient: msg.To,
			Subject:   msg.Subject,
			Error:     d.Error,
		}
		s.deps.Events.Emit(data.EventType(), "notifications", data)
	}

	return sendErr
}
