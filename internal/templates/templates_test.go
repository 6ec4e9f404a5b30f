package templates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/domain"
)

func TestGoalPhrase(t *testing.T) {
	tests := []struct {
		goal     string
		expected string
	}{
		{"Growth", "maximize long-term growth"},
		{"Income", "generate steady income"},
		{"Preservation", "preserve and protect your capital"},
		{"Balanced", "balance growth with stability"},
		{"growth", "investment goals"},
		{"", "investment goals"},
		{"Speculation", "investment goals"},
	}

	for _, tt := range tests {
		t.Run(tt.goal, func(t *testing.T) {
			assert.Equal(t, tt.expected, GoalPhrase(tt.goal))
		})
	}
}

func TestRiskPhrase(t *testing.T) {
	tests := []struct {
		risk     string
		expected string
	}{
		{"Low", "conservative approach"},
		{"Medium", "balanced strategy"},
		{"High", "growth-focused mindset"},
		{"", "investment approach"},
		{"Extreme", "investment approach"},
	}

	for _, tt := range tests {
		t.Run(tt.risk, func(t *testing.T) {
			assert.Equal(t, tt.expected, RiskPhrase(tt.risk))
		})
	}
}

func TestWelcomeIntro(t *testing.T) {
	intro := WelcomeIntro(domain.UserCreatedData{
		InvestmentGoals:   "Income",
		RiskTolerance:     "Low",
		PreferredIndustry: "Technology",
	})

	assert.Equal(t,
		"Welcome to Signalist! As an investor focused on Technology with a conservative approach to generate steady income, "+
			"you now have access to real-time market insights and smart investment tools. "+
			"Track your watchlist, receive personalized alerts, and make confident decisions backed by data.",
		intro)
}

func TestWelcomeIntro_Fallbacks(t *testing.T) {
	intro := WelcomeIntro(domain.UserCreatedData{PreferredIndustry: "   "})

	assert.Contains(t, intro, "focused on the markets with a investment approach to investment goals")
}

func TestRenderWelcome(t *testing.T) {
	html, err := RenderWelcome(WelcomeData{
		Name:  "Ada <script>",
		Intro: "Hello & welcome",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Ada &lt;script&gt;")
	assert.Contains(t, html, "Hello &amp; welcome")
	assert.NotContains(t, html, "Go to Dashboard")
}

func TestRenderWelcome_DashboardLink(t *testing.T) {
	html, err := RenderWelcome(WelcomeData{Name: "Ada", Intro: "hi", DashboardURL: "https://signalist.app"})
	require.NoError(t, err)

	assert.Contains(t, html, `href="https://signalist.app"`)
}

func TestRenderNewsList(t *testing.T) {
	articles := []domain.MarketNewsArticle{
		{
			ID:       1,
			Headline: "Apple <beats> estimates",
			Summary:  "Revenue up...",
			Source:   "Reuters",
			URL:      "https://example.com/a",
			Datetime: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC).Unix(),
			Related:  "AAPL",
		},
		{
			ID:       2,
			Headline: "Bad link",
			Summary:  "s",
			Source:   "Market News",
			URL:      "javascript:alert(1)",
			Datetime: 1,
		},
	}

	html, err := RenderNewsList(articles)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "Apple &lt;beats&gt; estimates")
	assert.Contains(t, out, `href="https://example.com/a"`)
	assert.Contains(t, out, "Reuters &middot; AAPL &middot; Mar 10, 2025 14:30 UTC")
	assert.NotContains(t, out, "javascript:")
}

func TestRenderDigest_ContentNotEscaped(t *testing.T) {
	html, err := RenderDigest(DigestData{
		Name:    "Ada",
		Date:    "Monday, March 10, 2025",
		Content: "<p>raw</p>",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "<p>raw</p>")
	assert.Contains(t, html, "Monday, March 10, 2025")
	assert.Contains(t, html, "Hi Ada")
}

func TestDigestDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 02:00 on the 11th at UTC+10 is still the 10th in UTC
	ts := time.Date(2025, 3, 11, 2, 0, 0, 0, loc)

	assert.Equal(t, "Monday, March 10, 2025", DigestDate(ts))
}

func TestSummarizer(t *testing.T) {
	s := NewSummarizer()

	empty, err := s.Summarize(context.Background(), domain.User{}, nil)
	require.NoError(t, err)
	assert.Equal(t, NoNewsHTML, empty)

	html, err := s.Summarize(context.Background(), domain.User{}, []domain.MarketNewsArticle{
		{Headline: "h", Summary: "s", URL: "https://x", Source: "src", Datetime: 1},
	})
	require.NoError(t, err)
	assert.Contains(t, string(html), "src")
}
