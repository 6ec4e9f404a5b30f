// Package workflow binds the notification workflows to the Inngest engine.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/notifications"
)

// Function IDs registered with the engine
const (
	FunctionSignUpEmail              = "sign-up-email"
	FunctionDailyNewsSummary         = "daily-news-summary"
	FunctionDailyNewsSummaryOnDemand = "daily-news-summary-on-demand"
)

// Step IDs
const (
	StepSendWelcomeEmail = "send-welcome-email"
	StepGetAllUsers      = "get-all-users"
	StepFetchUserNews    = "fetch-user-news"
	StepSummarizeNews    = "summarize-news"
	StepSendNewsEmails   = "send-news-emails"
)

// Notifier is the workflow logic the functions drive
type Notifier interface {
	SendWelcome(ctx context.Context, data domain.UserCreatedData) (domain.WorkflowResult, error)
	Users(ctx context.Context) ([]domain.User, error)
	CollectNews(ctx context.Context, users []domain.User) []domain.UserNews
	Summarize(ctx context.Context, news []domain.UserNews) []domain.UserDigest
	SendDigests(ctx context.Context, digests []domain.UserDigest, date time.Time) (notifications.DispatchReport, error)
	Complete(users int, report notifications.DispatchReport)
}

// Functions holds the engine function handlers
type Functions struct {
	svc   Notifier
	clock clockwork.Clock
	log   zerolog.Logger

	// inline runs steps as plain calls instead of engine steps
	inline bool
}

// NewFunctions creates the function handlers
func NewFunctions(svc Notifier, clock clockwork.Clock, log zerolog.Logger) *Functions {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Functions{
		svc:   svc,
		clock: clock,
		log:   log.With().Str("component", "workflow").Logger(),
	}
}

func run[T any](ctx context.Context, inline bool, id string, f func(context.Context) (T, error)) (T, error) {
	if inline {
		return f(ctx)
	}
	return step.Run(ctx, id, f)
}

// SignUpEmail handles app/user.created
func (f *Functions) SignUpEmail(ctx context.Context, input inngestgo.Input[domain.UserCreatedData]) (any, error) {
	data := input.Event.Data

	result, err := run(ctx, f.inline, StepSendWelcomeEmail, func(ctx context.Context) (domain.WorkflowResult, error) {
		return f.svc.SendWelcome(ctx, data)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DailyNewsSummary handles both the daily cron and app/send.daily.news
func (f *Functions) DailyNewsSummary(ctx context.Context, _ inngestgo.Input[map[string]any]) (any, error) {
	users, err := run(ctx, f.inline, StepGetAllUsers, func(ctx context.Context) ([]domain.User, error) {
		return f.svc.Users(ctx)
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return domain.WorkflowResult{Success: false, Message: notifications.NoUsersMessage}, nil
	}

	news, err := run(ctx, f.inline, StepFetchUserNews, func(ctx context.Context) ([]domain.UserNews, error) {
		return f.svc.CollectNews(ctx, users), nil
	})
	if err != nil {
		return nil, err
	}

	digests, err := run(ctx, f.inline, StepSummarizeNews, func(ctx context.Context) ([]domain.UserDigest, error) {
		return f.svc.Summarize(ctx, news), nil
	})
	if err != nil {
		return nil, err
	}

	report, err := run(ctx, f.inline, StepSendNewsEmails, func(ctx context.Context) (notifications.DispatchReport, error) {
		return f.svc.SendDigests(ctx, digests, f.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	f.svc.Complete(len(users), report)
	return domain.WorkflowResult{Success: true, Message: notifications.DigestSentMessage}, nil
}

// Register creates every function on the client
func Register(client inngestgo.Client, f *Functions, cron string) ([]inngestgo.ServableFunction, error) {
	signUp, err := inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: FunctionSignUpEmail, Name: "Sign-up email"},
		inngestgo.EventTrigger(domain.EventUserCreated, nil),
		f.SignUpEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", FunctionSignUpEmail, err)
	}

	daily, err := inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: FunctionDailyNewsSummary, Name: "Daily news summary"},
		inngestgo.CronTrigger(cron),
		f.DailyNewsSummary,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", FunctionDailyNewsSummary, err)
	}

	onDemand, err := inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{ID: FunctionDailyNewsSummaryOnDemand, Name: "Daily news summary (on demand)"},
		inngestgo.EventTrigger(domain.EventSendDailyNews, nil),
		f.DailyNewsSummary,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", FunctionDailyNewsSummaryOnDemand, err)
	}

	f.log.Info().
		Str("cron", cron).
		Strs("functions", []string{FunctionSignUpEmail, FunctionDailyNewsSummary, FunctionDailyNewsSummaryOnDemand}).
		Msg("Workflow functions registered")

	return []inngestgo.ServableFunction{signUp, daily, onDemand}, nil
}
