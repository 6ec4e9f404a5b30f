package mailer

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("mailer", "log").Logger()}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	s.log.Info().
		Str("to", msg.To).
		Str("to_name", msg.ToName).
		Str("from_name", msg.fromName()).
		Str("subject", msg.Subject).
		Int("html_bytes", len(msg.HTML)).
		Msg("Email (not delivered)")
	return nil
}
