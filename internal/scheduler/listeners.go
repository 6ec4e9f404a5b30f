package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
)

// welcomeTimeout bounds a single in-process welcome email
const welcomeTimeout = 2 * time.Minute

// WelcomeSender sends the signup email
type WelcomeSender interface {
	SendWelcome(ctx context.Context, data domain.UserCreatedData) (domain.WorkflowResult, error)
}

// RegisterListeners routes workflow trigger events from the bus to the
// in-process workflows. Bus handlers must not block, so each workflow runs on
// its own goroutine. The returned function unsubscribes both listeners.
func RegisterListeners(bus *events.Bus, welcome WelcomeSender, digest *DigestJob, log zerolog.Logger) func() {
	log = log.With().Str("component", "listeners").Logger()

	unsubWelcome := bus.Subscribe(events.UserCreated, func(event *events.Event) {
		data, ok := event.Data.(*events.UserCreatedData)
		if !ok {
			log.Warn().Str("event_type", string(event.Type)).Msg("Unexpected event payload")
			return
		}

		go func(payload domain.UserCreatedData) {
			ctx, cancel := context.WithTimeout(context.Background(), welcomeTimeout)
			defer cancel()

			if _, err := welcome.SendWelcome(ctx, payload); err != nil {
				log.Error().Err(err).Str("email", payload.Email).Msg("Welcome email workflow failed")
			}
		}(data.UserCreatedData)
	})

	unsubDigest := bus.Subscribe(events.DigestRequested, func(event *events.Event) {
		reason := ""
		if data, ok := event.Data.(*events.DigestRequestedData); ok {
			reason = data.Reason
		}

		go func() {
			log.Info().Str("reason", reason).Msg("Daily digest requested")
			if err := digest.Run(); err != nil && !errors.Is(err, ErrDigestRunning) {
				log.Error().Err(err).Str("reason", reason).Msg("Daily digest workflow failed")
			}
		}()
	})

	log.Info().Msg("Workflow listeners registered")

	return func() {
		unsubWelcome()
		unsubDigest()
	}
}
