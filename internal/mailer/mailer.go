// Package mailer delivers Signalist emails through the configured provider.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/config"
)

// DefaultFromName is the display name used when a message sets none
const DefaultFromName = "Signalist"

// ErrNoRecipient is returned when a message has no To address
var ErrNoRecipient = errors.New("message has no recipient")

// Message is a fully rendered email
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTML     string
	Text     string
	FromName string
}

// Sender delivers a message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func (m Message) fromName() string {
	if m.FromName == "" {
		return DefaultFromName
	}
	return m.FromName
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	return nil
}

// New returns the sender for cfg.Provider
func New(cfg config.MailConfig, log zerolog.Logger) (Sender, error) {
	switch cfg.Provider {
	case config.MailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromAddress, log), nil
	case config.MailProviderSMTP:
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required for the smtp provider")
		}
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.FromAddress,
		}, log), nil
	case config.MailProviderLog, "":
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
