// Package domain provides core domain models and types.
package domain

import (
	"html/template"
	"time"
)

// Workflow event names published to the workflow engine.
const (
	EventUserCreated   = "app/user.created"
	EventSendDailyNews = "app/send.daily.news"
)

// MaxArticlesPerDigest caps the number of articles in a single digest email.
const MaxArticlesPerDigest = 6

// InvestmentGoal represents the goal selected at signup
type InvestmentGoal string

const (
	GoalGrowth       InvestmentGoal = "Growth"
	GoalIncome       InvestmentGoal = "Income"
	GoalPreservation InvestmentGoal = "Preservation"
	GoalBalanced     InvestmentGoal = "Balanced"
)

// RiskTolerance represents the risk appetite selected at signup
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "Low"
	RiskMedium RiskTolerance = "Medium"
	RiskHigh   RiskTolerance = "High"
)

// User is a Signalist account that can receive notifications
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Country           string    `json:"country"`
	InvestmentGoals   string    `json:"investmentGoals"`
	RiskTolerance     string    `json:"riskTolerance"`
	PreferredIndustry string    `json:"preferredIndustry"`
	CreatedAt         time.Time `json:"createdAt"`
}

// WatchlistItem is a symbol a user follows
type WatchlistItem struct {
	UserID  string    `json:"userId"`
	Symbol  string    `json:"symbol"`
	Company string    `json:"company"`
	AddedAt time.Time `json:"addedAt"`
}

// RawArticle is a news item as returned by the news API
type RawArticle struct {
	ID       int64  `json:"id" msgpack:"id"`
	Category string `json:"category" msgpack:"category"`
	Datetime int64  `json:"datetime" msgpack:"datetime"` // Unix seconds
	Headline string `json:"headline" msgpack:"headline"`
	Image    string `json:"image" msgpack:"image"`
	Related  string `json:"related" msgpack:"related"`
	Source   string `json:"source" msgpack:"source"`
	Summary  string `json:"summary" msgpack:"summary"`
	URL      string `json:"url" msgpack:"url"`
}

// MarketNewsArticle is a news item formatted for a digest
type MarketNewsArticle struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
	Category string `json:"category"`
	Related  string `json:"related"`
	Image    string `json:"image,omitempty"`
}

// Time returns the publication time in UTC
func (a MarketNewsArticle) Time() time.Time {
	return time.Unix(a.Datetime, 0).UTC()
}

// UserNews is the news collected for one user
type UserNews struct {
	User     User                `json:"user"`
	Articles []MarketNewsArticle `json:"articles"`
	Err      string              `json:"error,omitempty"`
}

// UserDigest is the rendered digest for one user. Empty Content means no email is sent.
type UserDigest struct {
	User     User          `json:"user"`
	Content  template.HTML `json:"content"`
	Articles int           `json:"articles"`
}

// UserCreatedData is the payload of the app/user.created event
type UserCreatedData struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

// UserCreatedDataFrom builds the signup event payload for a stored user
func UserCreatedDataFrom(u User) UserCreatedData {
	return UserCreatedData{
		Email:             u.Email,
		Name:              u.Name,
		Country:           u.Country,
		InvestmentGoals:   u.InvestmentGoals,
		RiskTolerance:     u.RiskTolerance,
		PreferredIndustry: u.PreferredIndustry,
	}
}

// WorkflowResult is returned by every workflow run
type WorkflowResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeliveryKind identifies the email a delivery record belongs to
type DeliveryKind string

const (
	DeliveryWelcome DeliveryKind = "welcome"
	DeliveryDigest  DeliveryKind = "digest"
)

// DeliveryStatus is the outcome of a send attempt
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// Delivery records a single email send attempt
type Delivery struct {
	ID        string         `json:"id"`
	Kind      DeliveryKind   `json:"kind"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Status    DeliveryStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
