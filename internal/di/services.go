package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/archive"
	"github.com/aristath/signalist/internal/clients/finnhub"
	"github.com/aristath/signalist/internal/clients/llm"
	"github.com/aristath/signalist/internal/config"
	"github.com/aristath/signalist/internal/events"
	"github.com/aristath/signalist/internal/mailer"
	"github.com/aristath/signalist/internal/metrics"
	"github.com/aristath/signalist/internal/notifications"
	"github.com/aristath/signalist/internal/workflow"
)

// InitializeServices creates the external clients, the notification service
// and its workflow binding. Repositories must already be initialized.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, slogger *slog.Logger, clock clockwork.Clock, log zerolog.Logger) error {
	if container.UserRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	container.EventBus = events.NewBus(log)
	container.Metrics = metrics.New().WithUserCounter(container.UserRepo)

	// News
	if cfg.Finnhub.APIKey == "" {
		log.Warn().Msg("FINNHUB_API_KEY not set, digests will contain no news")
	}
	container.NewsClient = finnhub.NewClient(
		cfg.Finnhub.BaseURL,
		cfg.Finnhub.APIKey,
		container.ClientDataRepo,
		log,
		finnhub.WithClock(clock),
	)

	// Summarizer
	summarizer, err := llm.NewSummarizerFromConfig(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("failed to create %s summarizer: %w", cfg.LLM.Summarizer, err)
	}
	container.Summarizer = summarizer

	// Mail
	sender, err := mailer.New(cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("failed to create %s mailer: %w", cfg.Mail.Provider, err)
	}
	container.Mailer = sender

	// Archive (optional)
	arch, err := archive.NewFromConfig(ctx, cfg.Archive, log)
	if err != nil {
		return fmt.Errorf("failed to create digest archive: %w", err)
	}
	container.Archive = arch

	deps := notifications.Deps{
		Users:      container.UserRepo,
		Watchlists: container.WatchlistRepo,
		News:       container.NewsClient,
		Summarizer: container.Summarizer,
		Sender:     container.Mailer,
		Deliveries: container.DeliveryRepo,
		Events:     container.EventBus,
		Metrics:    container.Metrics,
		Clock:      clock,
	}
	// A typed nil would make the archiver look configured
	if arch != nil {
		deps.Archive = arch
	}

	container.Notifications = notifications.NewService(deps, notifications.Options{
		Concurrency:  cfg.Digest.Concurrency,
		DashboardURL: cfg.DashboardURL,
	}, log)

	if !cfg.Inngest.Enabled {
		container.Publisher = workflow.NewLocalPublisher(container.EventBus)
		log.Info().Msg("Workflow engine disabled, running workflows in-process")
		return nil
	}

	client, err := workflow.NewClient(cfg.Inngest, slogger)
	if err != nil {
		return err
	}
	functions, err := workflow.Register(client, workflow.NewFunctions(container.Notifications, clock, log), cfg.Digest.Cron)
	if err != nil {
		return err
	}

	container.Inngest = client
	container.Functions = functions
	container.Publisher = workflow.NewEnginePublisher(client, container.EventBus, log)

	log.Info().
		Str("app_id", client.AppID()).
		Bool("dev", cfg.Inngest.Dev).
		Msg("Workflow engine client initialized")

	return nil
}
