package workflow

import (
	"fmt"
	"log/slog"

	"github.com/inngest/inngestgo"

	"github.com/aristath/signalist/internal/config"
)

// ServePath is where the engine reaches the app
const ServePath = "/api/inngest"

// NewClient creates the Inngest client described by cfg
func NewClient(cfg config.InngestConfig, logger *slog.Logger) (inngestgo.Client, error) {
	opts := inngestgo.ClientOpts{
		AppID:  cfg.AppID,
		Logger: logger,
		Dev:    inngestgo.BoolPtr(cfg.Dev),
	}
	if cfg.EventKey != "" {
		opts.EventKey = inngestgo.StrPtr(cfg.EventKey)
	}
	if cfg.SigningKey != "" {
		opts.SigningKey = inngestgo.StrPtr(cfg.SigningKey)
	}

	client, err := inngestgo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create inngest client: %w", err)
	}
	return client, nil
}
