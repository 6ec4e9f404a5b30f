package mailer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSender sends through the SendGrid v3 mail API
type SendGridSender struct {
	apiKey string
	from   string
	host   string
	log    zerolog.Logger
}

// NewSendGridSender creates a SendGrid sender
func NewSendGridSender(apiKey, from string, log zerolog.Logger) *SendGridSender {
	return &SendGridSender{
		apiKey: apiKey,
		from:   from,
		log:    log.With().Str("mailer", "sendgrid").Logger(),
	}
}

// WithHost points the sender at a different API host
func (s *SendGridSender) WithHost(host string) *SendGridSender {
	s.host = host
	return s
}

// Send implements Sender. Any non-2xx answer is an error.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	var contents []*mail.Content
	if msg.Text != "" {
		contents = append(contents, mail.NewContent("text/plain", msg.Text))
	}
	contents = append(contents, mail.NewContent("text/html", msg.HTML))

	email := mail.NewV3MailInit(
		mail.NewEmail(msg.fromName(), s.from),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		contents...,
	)

	// The client keeps the request body on itself, one per send.
	client := sendgrid.NewSendClient(s.apiKey)
	if s.host != "" {
		client.BaseURL = s.host + sendGridEndpoint
	}

	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	s.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}
