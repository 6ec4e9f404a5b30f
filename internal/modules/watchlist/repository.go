// Package watchlist provides storage for the symbols each user follows.
package watchlist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
)

// Repository handles watchlist database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new watchlist repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "watchlist").Logger(),
		now: time.Now,
	}
}

// CleanSymbol trims and upper-cases a ticker symbol
func CleanSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Add puts a symbol on the watchlist of the user with the given email.
// Adding a symbol twice updates the company name.
func (r *Repository) Add(ctx context.Context, email, symbol, company string) (domain.WatchlistItem, error) {
	symbol = CleanSymbol(symbol)
	if symbol == "" {
		return domain.WatchlistItem{}, fmt.Errorf("symbol is required")
	}

	userID, err := r.userID(ctx, email)
	if err != nil {
		return domain.WatchlistItem{}, err
	}

	item := domain.WatchlistItem{
		UserID:  userID,
		Symbol:  symbol,
		Company: strings.TrimSpace(company),
		AddedAt: r.now().UTC().Truncate(time.Second),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO watchlist (user_id, symbol, company, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET company = excluded.company
	`, item.UserID, item.Symbol, item.Company, item.AddedAt.Unix())
	if err != nil {
		return domain.WatchlistItem{}, fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}

	return item, nil
}

// Remove takes a symbol off a user's watchlist.
// Returns false when the symbol was not on the list.
func (r *Repository) Remove(ctx context.Context, email, symbol string) (bool, error) {
	userID, err := r.userID(ctx, email)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM watchlist WHERE user_id = ? AND symbol = ?", userID, CleanSymbol(symbol))
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByEmail returns the watchlist items of a user, oldest first.
// Returns domain.ErrUserNotFound for an unknown email.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]domain.WatchlistItem, error) {
	userID, err := r.userID(ctx, email)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, symbol, company, added_at FROM watchlist
		WHERE user_id = ? ORDER BY added_at, symbol
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	items := make([]domain.WatchlistItem, 0)
	for rows.Next() {
		var item domain.WatchlistItem
		var addedAt int64
		if err := rows.Scan(&item.UserID, &item.Symbol, &item.Company, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		item.AddedAt = time.Unix(addedAt, 0).UTC()
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return items, nil
}

// SymbolsByEmail returns the watchlist symbols of a user.
// An unknown email yields an empty slice.
func (r *Repository) SymbolsByEmail(ctx context.Context, email string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.symbol FROM watchlist w
		JOIN users u ON u.id = w.user_id
		WHERE u.email = ?
		ORDER BY w.added_at, w.symbol
	`, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist symbols: %w", err)
	}
	defer rows.Close()

	symbols := make([]string, 0)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist symbols: %w", err)
	}
	return symbols, nil
}

func (r *Repository) userID(ctx context.Context, email string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", normalizeEmail(email)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", domain.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up user %s: %w", email, err)
	}
	return id, nil
}
