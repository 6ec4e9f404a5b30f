package templates

import (
	"fmt"
	"strings"

	"github.com/aristath/signalist/internal/domain"
)

// WelcomeSubject is the subject line of the signup email
const WelcomeSubject = "Welcome to Signalist - your stock market toolkit is ready!"

var goalPhrases = map[domain.InvestmentGoal]string{
	domain.GoalGrowth:       "maximize long-term growth",
	domain.GoalIncome:       "generate steady income",
	domain.GoalPreservation: "preserve and protect your capital",
	domain.GoalBalanced:     "balance growth with stability",
}

var riskPhrases = map[domain.RiskTolerance]string{
	domain.RiskLow:    "conservative approach",
	domain.RiskMedium: "balanced strategy",
	domain.RiskHigh:   "growth-focused mindset",
}

// GoalPhrase returns the phrase describing an investment goal
func GoalPhrase(goal string) string {
	if p, ok := goalPhrases[domain.InvestmentGoal(goal)]; ok {
		return p
	}
	return "investment goals"
}

// RiskPhrase returns the phrase describing a risk tolerance
func RiskPhrase(risk string) string {
	if p, ok := riskPhrases[domain.RiskTolerance(risk)]; ok {
		return p
	}
	return "investment approach"
}

// WelcomeIntro builds the personalized opening paragraph of the welcome email
func WelcomeIntro(d domain.UserCreatedData) string {
	industry := strings.TrimSpace(d.PreferredIndustry)
	if industry == "" {
		industry = "the markets"
	}

	return fmt.Sprintf(
		"Welcome to Signalist! As an investor focused on %s with a %s to %s, "+
			"you now have access to real-time market insights and smart investment tools. "+
			"Track your watchlist, receive personalized alerts, and make confident decisions backed by data.",
		industry, RiskPhrase(d.RiskTolerance), GoalPhrase(d.InvestmentGoals),
	)
}
