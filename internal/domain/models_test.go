package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketNewsArticleTime(t *testing.T) {
	article := MarketNewsArticle{Datetime: 1700000000}
	assert.Equal(t, time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC), article.Time())
}

func TestUserCreatedDataFrom(t *testing.T) {
	u := User{
		ID:                "u-1",
		Email:             "ada@example.com",
		Name:              "Ada",
		Country:           "UK",
		InvestmentGoals:   string(GoalGrowth),
		RiskTolerance:     string(RiskHigh),
		PreferredIndustry: "Technology",
	}

	data := UserCreatedDataFrom(u)
	assert.Equal(t, "ada@example.com", data.Email)
	assert.Equal(t, "Growth", data.InvestmentGoals)
	assert.Equal(t, "High", data.RiskTolerance)
	assert.Equal(t, "Technology", data.PreferredIndustry)
}

func TestUserCreatedData_JSONFieldNames(t *testing.T) {
	// Field names must match the event payload produced by the web app
	payload := `{"email":"a@b.c","name":"A","country":"US","investmentGoals":"Income","riskTolerance":"Low","preferredIndustry":"Energy"}`

	var data UserCreatedData
	require.NoError(t, json.Unmarshal([]byte(payload), &data))

	assert.Equal(t, UserCreatedData{
		Email:             "a@b.c",
		Name:              "A",
		Country:           "US",
		InvestmentGoals:   "Income",
		RiskTolerance:     "Low",
		PreferredIndustry: "Energy",
	}, data)
}
