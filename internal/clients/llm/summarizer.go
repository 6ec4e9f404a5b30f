package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/config"
	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/templates"
)

const summarySystemPrompt = "You write the daily market news email for Signalist, a stock watchlist app. " +
	"Answer with an HTML fragment only: no <html>, <head> or <body> tags and no markdown."

const summaryPromptTemplate = `Summarize the following market news for %s.
Their investment goal is %q, their risk tolerance is %q and they follow the %s industry.

For each article write a short heading that links to its url, then two or three plain sentences
explaining what happened and why it matters to an investor. Finish with a one sentence takeaway.

Articles (JSON):
%s`

// Summarizer turns articles into a digest body with a completion API.
// The generated HTML is trusted as-is.
type Summarizer struct {
	completer Completer
	maxTokens int
	log       zerolog.Logger
}

// NewSummarizer wraps a Completer as a domain.Summarizer
func NewSummarizer(c Completer, log zerolog.Logger) *Summarizer {
	return &Summarizer{
		completer: c,
		maxTokens: 1500,
		log:       log.With().Str("summarizer", c.Provider()).Logger(),
	}
}

// Summarize implements domain.Summarizer
func (s *Summarizer) Summarize(ctx context.Context, user domain.User, articles []domain.MarketNewsArticle) (template.HTML, error) {
	prompt, err := buildSummaryPrompt(user, articles)
	if err != nil {
		return "", err
	}

	resp, err := s.completer.Complete(ctx, CompletionRequest{
		System:      summarySystemPrompt,
		Prompt:      prompt,
		MaxTokens:   s.maxTokens,
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}

	s.log.Debug().
		Str("email", user.Email).
		Int("prompt_tokens", resp.PromptTokens).
		Int("completion_tokens", resp.CompletionTokens).
		Msg("News summarized")

	body := stripCodeFence(resp.Text)
	if body == "" {
		return templates.NoNewsHTML, nil
	}
	return template.HTML(body), nil
}

func buildSummaryPrompt(user domain.User, articles []domain.MarketNewsArticle) (string, error) {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode articles: %w", err)
	}

	name := user.Name
	if name == "" {
		name = "a Signalist investor"
	}
	industry := user.PreferredIndustry
	if industry == "" {
		industry = "broader"
	}

	return fmt.Sprintf(summaryPromptTemplate, name, user.InvestmentGoals, user.RiskTolerance, industry, data), nil
}

// stripCodeFence removes a ```html fence some models wrap their answer in
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NewSummarizerFromConfig returns the summarizer selected by cfg.Summarizer
func NewSummarizerFromConfig(ctx context.Context, cfg config.LLMConfig, log zerolog.Logger) (domain.Summarizer, error) {
	switch cfg.Summarizer {
	case config.SummarizerOpenAI:
		c, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
		if err != nil {
			return nil, err
		}
		return NewSummarizer(c, log), nil
	case config.SummarizerGemini:
		c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		return NewSummarizer(c, log), nil
	case config.SummarizerTemplate, "":
		return templates.NewSummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q", cfg.Summarizer)
	}
}
