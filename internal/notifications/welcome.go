package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/mailer"
	"github.com/aristath/signalist/internal/templates"
)

// WelcomeCompletedMessage is the result message of a welcome run
const WelcomeCompletedMessage = "Welcome email process completed"

// SendWelcome renders and sends the signup email.
// A missing email is a validation error and nothing is sent.
func (s *Service) SendWelcome(ctx context.Context, data domain.UserCreatedData) (domain.WorkflowResult, error) {
	email := strings.TrimSpace(data.Email)
	if email == "" {
		return domain.WorkflowResult{}, fmt.Errorf("welcome email: %w", domain.ErrInvalidEmail)
	}

	intro := templates.WelcomeIntro(data)
	html, err := templates.RenderWelcome(templates.WelcomeData{
		Name:         data.Name,
		Intro:        intro,
		DashboardURL: s.opts.DashboardURL,
	})
	if err != nil {
		return domain.WorkflowResult{}, err
	}

	msg := mailer.Message{
		To:      email,
		ToName:  data.Name,
		Subject: templates.WelcomeSubject,
		HTML:    html,
		Text:    welcomeText(data.Name, intro),
	}
	if err := s.deliver(ctx, domain.DeliveryWelcome, msg); err != nil {
		return domain.WorkflowResult{}, fmt.Errorf("failed to send welcome email to %s: %w", email, err)
	}

	s.log.Info().Str("email", email).Msg("Welcome email sent")

	return domain.WorkflowResult{Success: true, Message: WelcomeCompletedMessage}, nil
}

func welcomeText(name, intro string) string {
	if name == "" {
		return intro
	}
	return "Hi " + name + ",\n\n" + intro
}
