package finnhub

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc/pool"

	"github.com/aristath/signalist/internal/domain"
)

const (
	companyNewsLookback    = 5 * 24 * time.Hour
	maxGeneralCandidates   = 20
	companySummaryLimit    = 200
	generalSummaryLimit    = 150
	maxConcurrentSymbols   = 4
	defaultCompanySource   = "Company News"
	defaultGeneralSource   = "Market News"
	defaultGeneralCategory = "general"
)

// News returns up to six formatted articles.
// With symbols it picks company news round-robin across the symbols so every
// symbol gets a turn before any gets a second article. When no symbols are
// given, or none of them has news, it falls back to general market news.
func (c *Client) News(ctx context.Context, symbols []string) ([]domain.MarketNewsArticle, error) {
	clean := CleanSymbols(symbols)

	if len(clean) > 0 {
		perSymbol := c.fetchCompanyNews(ctx, clean)
		if collected := pickRoundRobin(clean, perSymbol, domain.MaxArticlesPerDigest); len(collected) > 0 {
			sort.SliceStable(collected, func(i, j int) bool {
				return collected[i].Datetime > collected[j].Datetime
			})
			return collected, nil
		}
		c.log.Debug().Strs("symbols", clean).Msg("No company news, falling back to general news")
	}

	raw, err := c.GeneralNews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch general news: %w", err)
	}

	return selectGeneral(raw, domain.MaxArticlesPerDigest), nil
}

// CleanSymbols trims and upper-cases symbols and drops empty ones
func CleanSymbols(symbols []string) []string {
	clean := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			clean = append(clean, s)
		}
	}
	return clean
}

type symbolNews struct {
	symbol   string
	articles []domain.RawArticle
}

// fetchCompanyNews loads valid articles for each symbol.
// A failing symbol contributes an empty list.
func (c *Client) fetchCompanyNews(ctx context.Context, symbols []string) map[string][]domain.RawArticle {
	now := c.clock.Now().UTC()
	from := now.Add(-companyNewsLookback).Format("2006-01-02")
	to := now.Format("2006-01-02")

	p := pool.NewWithResults[symbolNews]().WithMaxGoroutines(maxConcurrentSymbols)
	for _, symbol := range symbols {
		p.Go(func() symbolNews {
			articles, err := c.CompanyNews(ctx, symbol, from, to)
			if err != nil {
				c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch company news")
				return symbolNews{symbol: symbol}
			}
			return symbolNews{symbol: symbol, articles: filterValid(articles)}
		})
	}

	result := make(map[string][]domain.RawArticle, len(symbols))
	for _, sn := range p.Wait() {
		result[sn.symbol] = sn.articles
	}
	return result
}

func pickRoundRobin(symbols []string, perSymbol map[string][]domain.RawArticle, limit int) []domain.MarketNewsArticle {
	collected := make([]domain.MarketNewsArticle, 0, limit)
	for round := 0; round < limit; round++ {
		for _, symbol := range symbols {
			list := perSymbol[symbol]
			if round >= len(list) {
				continue
			}
			collected = append(collected, formatArticle(list[round], true, symbol))
			if len(collected) >= limit {
				return collected
			}
		}
	}
	return collected
}

func selectGeneral(raw []domain.RawArticle, limit int) []domain.MarketNewsArticle {
	seen := make(map[string]bool)
	unique := make([]domain.RawArticle, 0, maxGeneralCandidates)
	for _, a := range raw {
		if !isValid(a) {
			continue
		}
		key := fmt.Sprintf("%d-%s-%s", a.ID, a.URL, a.Headline)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, a)
		if len(unique) >= maxGeneralCandidates {
			break
		}
	}

	if len(unique) > limit {
		unique = unique[:limit]
	}

	formatted := make([]domain.MarketNewsArticle, 0, len(unique))
	for _, a := range unique {
		formatted = append(formatted, formatArticle(a, false, ""))
	}
	return formatted
}

func filterValid(articles []domain.RawArticle) []domain.RawArticle {
	valid := make([]domain.RawArticle, 0, len(articles))
	for _, a := range articles {
		if isValid(a) {
			valid = append(valid, a)
		}
	}
	return valid
}

// isValid reports whether an article has everything a digest entry needs
func isValid(a domain.RawArticle) bool {
	return strings.TrimSpace(a.Headline) != "" &&
		strings.TrimSpace(a.Summary) != "" &&
		strings.TrimSpace(a.URL) != "" &&
		a.Datetime != 0
}

func formatArticle(a domain.RawArticle, company bool, symbol string) domain.MarketNewsArticle {
	out := domain.MarketNewsArticle{
		ID:       a.ID,
		Headline: strings.TrimSpace(a.Headline),
		Source:   a.Source,
		URL:      a.URL,
		Datetime: a.Datetime,
		Image:    a.Image,
	}

	if company {
		out.Summary = truncate(strings.TrimSpace(a.Summary), companySummaryLimit)
		out.Category = "company"
		out.Related = symbol
		if out.Source == "" {
			out.Source = defaultCompanySource
		}
		return out
	}

	out.Summary = truncate(strings.TrimSpace(a.Summary), generalSummaryLimit)
	out.Category = a.Category
	if out.Category == "" {
		out.Category = defaultGeneralCategory
	}
	out.Related = a.Related
	if out.Source == "" {
		out.Source = defaultGeneralSource
	}
	return out
}

// truncate cuts s to at most limit runes and always appends an ellipsis
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return s + "..."
}
