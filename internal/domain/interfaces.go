package domain

import (
	"context"
	"errors"
	"html/template"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidEmail is returned when an email address is missing or malformed
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrUserExists is returned when signing up with an email that is already registered
	ErrUserExists = errors.New("user already exists")
)

// UserStore provides read access to users
type UserStore interface {
	// ListForNewsEmail returns every user that has an email address
	ListForNewsEmail(ctx context.Context) ([]User, error)
}

// WatchlistStore provides read access to watchlists
type WatchlistStore interface {
	// SymbolsByEmail returns the watchlist symbols of the user with the given email.
	// An unknown user yields an empty slice, not an error.
	SymbolsByEmail(ctx context.Context, email string) ([]string, error)
}

// NewsProvider fetches market news.
// With symbols it returns company news for those symbols, otherwise general market news.
type NewsProvider interface {
	News(ctx context.Context, symbols []string) ([]MarketNewsArticle, error)
}

// Summarizer turns a list of articles into the HTML body of a digest
type Summarizer interface {
	Summarize(ctx context.Context, user User, articles []MarketNewsArticle) (template.HTML, error)
}

// DeliveryRecorder stores the outcome of send attempts
type DeliveryRecorder interface {
	Record(ctx context.Context, d Delivery) error
}
