package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aristath/signalist/internal/clients/llm"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"

	defaultModel       = "gpt-3.5-turbo"
	defaultGeminiModel = "gemini-2.5-flash-lite"

	systemPrompt = "You are a helpful assistant that writes personalized welcome emails for a stock market app called Signalist."
	userPrompt   = "Write a warm, personalized welcome message for a new user who just signed up for a stock market tracking app. " +
		"The user is interested in technology stocks and has a moderate risk tolerance. " +
		"Keep it under 100 words and make it friendly and encouraging."

	maxTokens   = 200
	temperature = 0.7

	// USD per 1K tokens
	inputPricePer1K  = 0.0015
	outputPricePer1K = 0.002

	requestTimeout = 60 * time.Second
)

// errCheckFailed is returned after the failure has already been explained on stdout
var errCheckFailed = errors.New("completion API check failed")

type checkOptions struct {
	provider string
	model    string
	baseURL  string
}

// keyEnv returns the environment variable holding the provider's API key
func keyEnv(provider string) string {
	if provider == providerGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func newRootCommand(getenv func(string) string) *cobra.Command {
	opts := checkOptions{}

	cmd := &cobra.Command{
		Use:           "llmcheck",
		Short:         "Check that the completion API key works",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			// .env is optional
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), opts, getenv)
		},
	}

	cmd.Flags().StringVar(&opts.provider, "provider", providerOpenAI, "completion provider (openai or gemini)")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name (default gpt-3.5-turbo, or gemini-2.5-flash-lite for gemini)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "override the API base URL")
	_ = cmd.Flags().MarkHidden("base-url")

	return cmd
}

func runCheck(ctx context.Context, out io.Writer, opts checkOptions, getenv func(string) string) error {
	provider := strings.ToLower(strings.TrimSpace(opts.provider))
	if provider != providerOpenAI && provider != providerGemini {
		return fmt.Errorf("unknown provider %q (want openai or gemini)", opts.provider)
	}

	envName := keyEnv(provider)
	apiKey := strings.TrimSpace(getenv(envName))

	fmt.Fprintf(out, "Testing %s API...\n\n", providerLabel(provider))

	if apiKey == "" {
		printMissingKey(out, provider, envName)
		return errCheckFailed
	}
	fmt.Fprintf(out, "API key found: %s\n", maskKey(apiKey))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	client, err := newCompleter(ctx, provider, apiKey, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nMaking request to %s...\n", providerLabel(provider))

	completion, err := client.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Prompt:      userPrompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		printFailure(out, provider, err)
		return errCheckFailed
	}

	fmt.Fprintf(out, "Response status: %d %s\n", http.StatusOK, http.StatusText(http.StatusOK))
	fmt.Fprintln(out, "\nSuccess! Generated text:")
	fmt.Fprintln(out, strings.Repeat("─", 70))

	if completion.Text == "" {
		fmt.Fprintln(out, "(the model returned no text)")
	} else {
		fmt.Fprintln(out, completion.Text)
	}

	fmt.Fprintln(out, "\nToken usage:")
	fmt.Fprintf(out, "   Prompt: %d tokens\n", completion.PromptTokens)
	fmt.Fprintf(out, "   Completion: %d tokens\n", completion.CompletionTokens)
	fmt.Fprintf(out, "   Total: %d tokens\n", completion.TotalTokens())
	fmt.Fprintf(out, "   Estimated cost: $%.6f\n", estimateCost(completion.PromptTokens, completion.CompletionTokens))
	fmt.Fprintln(out, strings.Repeat("─", 70))

	fmt.Fprintf(out, "\nYour %s API is working correctly (model %s).\n", providerLabel(provider), completion.Model)
	return nil
}

func newCompleter(ctx context.Context, provider, apiKey string, opts checkOptions) (llm.Completer, error) {
	model := opts.model
	if provider == providerGemini {
		if model == "" {
			model = defaultGeminiModel
		}
		return llm.NewGeminiClient(ctx, apiKey, model, opts.baseURL)
	}

	if model == "" {
		model = defaultModel
	}
	return llm.NewOpenAIClient(apiKey, model, opts.baseURL)
}

// estimateCost uses gpt-3.5-turbo pricing
func estimateCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1000*inputPricePer1K + float64(completionTokens)/1000*outputPricePer1K
}

func providerLabel(provider string) string {
	if provider == providerGemini {
		return "Gemini"
	}
	return "OpenAI"
}

// maskKey shows only the start of a key
func maskKey(key string) string {
	const visible = 20
	if len(key) <= visible {
		if len(key) <= 4 {
			return "..."
		}
		return key[:4] + "..."
	}
	return key[:visible] + "..."
}

func printMissingKey(out io.Writer, provider, envName string) {
	fmt.Fprintf(out, "%s not found in environment variables\n", envName)
	fmt.Fprintln(out, "   Add it to your .env file:")
	if provider == providerGemini {
		fmt.Fprintf(out, "   %s=AIza...\n", envName)
		fmt.Fprintln(out, "\n   Get your API key at: https://aistudio.google.com/apikey")
		return
	}
	fmt.Fprintf(out, "   %s=sk-proj-...\n", envName)
	fmt.Fprintln(out, "\n   Get your API key at: https://platform.openai.com/api-keys")
}

func printFailure(out io.Writer, provider string, err error) {
	status := llm.StatusCode(err)
	if status != 0 {
		fmt.Fprintf(out, "Response status: %d %s\n", status, http.StatusText(status))
	}
	fmt.Fprintln(out, "\nAPI error:")
	fmt.Fprintf(out, "   %v\n", err)

	if hint := errorHint(provider, status, llm.IsQuotaError(err)); hint != "" {
		fmt.Fprintf(out, "\n%s\n", hint)
		return
	}

	if status == 0 {
		fmt.Fprintln(out, "\nTroubleshooting tips:")
		fmt.Fprintln(out, "   1. Check your internet connection")
		fmt.Fprintln(out, "   2. Verify your API key")
		fmt.Fprintln(out, "   3. Make sure your account has credits")
		fmt.Fprintln(out, "   4. Check whether a firewall blocks the API")
	}
}

// errorHint explains the common failure statuses.
// A 429 caused by an exhausted quota is reported as a quota problem.
func errorHint(provider string, status int, quota bool) string {
	usage, billing, keys := "https://platform.openai.com/usage", "https://platform.openai.com/account/billing", "https://platform.openai.com/api-keys"
	if provider == providerGemini {
		usage, billing, keys = "https://aistudio.google.com/usage", "https://aistudio.google.com/billing", "https://aistudio.google.com/apikey"
	}

	switch {
	case status == http.StatusUnauthorized:
		return "401 Unauthorized - Your API key is invalid or expired.\n   Get a new one at: " + keys
	case status == http.StatusPaymentRequired:
		return "402 Payment Required - You need to add credits to your account.\n   Add credits at: " + billing
	case quota:
		return "Insufficient Quota - You need to add credits to your account.\n   Add credits at: " + billing
	case status == http.StatusTooManyRequests:
		return "429 Rate Limit - You've exceeded your quota or rate limit.\n   Check your usage at: " + usage
	default:
		return ""
	}
}
