// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Supported mail providers.
const (
	MailProviderLog      = "log"
	MailProviderSendGrid = "sendgrid"
	MailProviderSMTP     = "smtp"
)

// Supported summarizers.
const (
	SummarizerTemplate = "template"
	SummarizerOpenAI   = "openai"
	SummarizerGemini   = "gemini"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the SQLite databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	DashboardURL string // Linked from the welcome email, optional

	Inngest InngestConfig
	Digest  DigestConfig
	Finnhub FinnhubConfig
	Mail    MailConfig
	LLM     LLMConfig
	Archive ArchiveConfig
}

// InngestConfig configures the connection to the workflow engine.
// When Enabled is false the workflows run in-process on a local cron scheduler.
type InngestConfig struct {
	Enabled    bool
	AppID      string
	Dev        bool
	EventKey   string
	SigningKey string
}

// DigestConfig configures the daily news digest.
type DigestConfig struct {
	Cron        string // Standard 5-field cron expression, evaluated in UTC
	Concurrency int    // Max users processed in parallel
}

// FinnhubConfig configures the market news API.
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
}

// MailConfig configures outbound email.
type MailConfig struct {
	Provider       string
	FromAddress    string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
}

// LLMConfig configures the optional AI news summarizer.
type LLMConfig struct {
	Summarizer   string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

// ArchiveConfig configures S3-compatible storage for rendered digests.
// An empty Bucket disables archiving.
type ArchiveConfig struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SettingsReader is the subset of the settings repository used to override
// environment configuration at startup.
type SettingsReader interface {
	Get(key string) (*string, error)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("SIGNALIST_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		DashboardURL: getEnv("SIGNALIST_DASHBOARD_URL", ""),
		Inngest: InngestConfig{
			Enabled:    getEnvAsBool("INNGEST_ENABLED", true),
			AppID:      getEnv("INNGEST_APP_ID", "signalist"),
			Dev:        getEnvAsBool("INNGEST_DEV", false),
			EventKey:   getEnv("INNGEST_EVENT_KEY", ""),
			SigningKey: getEnv("INNGEST_SIGNING_KEY", ""),
		},
		Digest: DigestConfig{
			Cron:        getEnv("DIGEST_CRON", "0 12 * * *"),
			Concurrency: getEnvAsInt("DIGEST_CONCURRENCY", 8),
		},
		Finnhub: FinnhubConfig{
			APIKey:  getEnv("FINNHUB_API_KEY", ""),
			BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		},
		Mail: MailConfig{
			Provider:       strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderLog)),
			FromAddress:    getEnv("MAIL_FROM_ADDRESS", "signalist@example.com"),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		},
		LLM: LLMConfig{
			Summarizer:   strings.ToLower(getEnv("SUMMARIZER", SummarizerTemplate)),
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash-lite"),
		},
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UpdateFromSettings updates configuration from the settings database.
// Settings DB values take precedence over environment variables, empty values are ignored.
func (c *Config) UpdateFromSettings(repo SettingsReader) error {
	overrides := []struct {
		key    string
		target *string
	}{
		{"finnhub_api_key", &c.Finnhub.APIKey},
		{"sendgrid_api_key", &c.Mail.SendGridAPIKey},
		{"smtp_password", &c.Mail.SMTPPassword},
		{"openai_api_key", &c.LLM.OpenAIAPIKey},
		{"gemini_api_key", &c.LLM.GeminiAPIKey},
		{"inngest_event_key", &c.Inngest.EventKey},
		{"inngest_signing_key", &c.Inngest.SigningKey},
	}

	for _, o := range overrides {
		value, err := repo.Get(o.key)
		if err != nil {
			return fmt.Errorf("failed to get %s from settings: %w", o.key, err)
		}
		if value != nil && *value != "" {
			*o.target = *value
		}
	}

	return nil
}

// Validate checks if required configuration is present and well-formed
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if _, err := cron.ParseStandard(c.Digest.Cron); err != nil {
		return fmt.Errorf("invalid DIGEST_CRON %q: %w", c.Digest.Cron, err)
	}
	if c.Digest.Concurrency < 1 {
		return fmt.Errorf("DIGEST_CONCURRENCY must be at least 1, got %d", c.Digest.Concurrency)
	}

	switch c.Mail.Provider {
	case MailProviderLog, MailProviderSendGrid, MailProviderSMTP:
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}

	switch c.LLM.Summarizer {
	case SummarizerTemplate, SummarizerOpenAI, SummarizerGemini:
	default:
		return fmt.Errorf("unknown SUMMARIZER %q", c.LLM.Summarizer)
	}

	if c.Inngest.Enabled && c.Inngest.AppID == "" {
		return fmt.Errorf("INNGEST_APP_ID is required when INNGEST_ENABLED is true")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
