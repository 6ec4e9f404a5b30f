package templates

import (
	"context"
	"html/template"

	"github.com/aristath/signalist/internal/domain"
)

// NoNewsHTML is the digest body used when a summarizer produces nothing
const NoNewsHTML template.HTML = "No market news."

// Summarizer renders the article list without any external service
type Summarizer struct{}

// NewSummarizer creates a template summarizer
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize implements domain.Summarizer
func (s *Summarizer) Summarize(_ context.Context, _ domain.User, articles []domain.MarketNewsArticle) (template.HTML, error) {
	if len(articles) == 0 {
		return NoNewsHTML, nil
	}
	return RenderNewsList(articles)
}
