package testing

import (
	"fmt"
	"time"

	"github.com/aristath/signalist/internal/domain"
)

// NewUserFixtures returns a set of test users with distinct profiles
func NewUserFixtures() []domain.User {
	created := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	return []domain.User{
		{
			ID:                "user-ada",
			Email:             "ada@example.com",
			Name:              "Ada Lovelace",
			Country:           "GB",
			InvestmentGoals:   string(domain.GoalGrowth),
			RiskTolerance:     string(domain.RiskHigh),
			PreferredIndustry: "Technology",
			CreatedAt:         created,
		},
		{
			ID:                "user-grace",
			Email:             "grace@example.com",
			Name:              "Grace Hopper",
			Country:           "US",
			InvestmentGoals:   string(domain.GoalIncome),
			RiskTolerance:     string(domain.RiskLow),
			PreferredIndustry: "Finance",
			CreatedAt:         created.Add(time.Hour),
		},
		{
			ID:                "user-alan",
			Email:             "alan@example.com",
			Name:              "Alan Turing",
			Country:           "GB",
			InvestmentGoals:   string(domain.GoalBalanced),
			RiskTolerance:     string(domain.RiskMedium),
			PreferredIndustry: "",
			CreatedAt:         created.Add(2 * time.Hour),
		},
	}
}

// NewArticleFixtures returns n formatted articles related to symbol,
// newest first, one hour apart.
func NewArticleFixtures(symbol string, n int) []domain.MarketNewsArticle {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	articles := make([]domain.MarketNewsArticle, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, domain.MarketNewsArticle{
			ID:       int64(1000 + i),
			Headline: fmt.Sprintf("%s headline %d", symbol, i+1),
			Summary:  fmt.Sprintf("%s summary %d...", symbol, i+1),
			Source:   "Company News",
			URL:      fmt.Sprintf("https://news.example.com/%s/%d", symbol, i+1),
			Datetime: base.Add(-time.Duration(i) * time.Hour).Unix(),
			Category: "company",
			Related:  symbol,
		})
	}
	return articles
}

// NewGeneralNewsFixtures returns n general market articles
func NewGeneralNewsFixtures(n int) []domain.MarketNewsArticle {
	articles := NewArticleFixtures("MARKET", n)
	for i := range articles {
		articles[i].Source = "Market News"
		articles[i].Category = "general"
		articles[i].Related = ""
	}
	return articles
}
