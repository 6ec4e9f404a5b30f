// Package users provides storage for Signalist accounts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
)

// Repository handles user database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new users repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "users").Logger(),
		now: time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address and checks it parses.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidEmail, email)
	}
	return email, nil
}

// Create stores a new user and returns it with ID and CreatedAt set.
// Returns domain.ErrUserExists when the email is already registered.
func (r *Repository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	email, err := NormalizeEmail(u.Email)
	if err != nil {
		return domain.User{}, err
	}

	if _, err := r.GetByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	u.Email = email
	u.ID = uuid.NewString()
	u.CreatedAt = r.now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, country, investment_goals, risk_tolerance, preferred_industry, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, strings.TrimSpace(u.Name), u.Country, u.InvestmentGoals, u.RiskTolerance, u.PreferredIndustry, u.CreatedAt.Unix())
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to insert user %s: %w", email, err)
	}

	r.log.Info().Str("user_id", u.ID).Str("email", u.Email).Msg("User created")
	return u, nil
}

// GetByEmail returns the user with the given email or domain.ErrUserNotFound
func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, country, investment_goals, risk_tolerance, preferred_industry, created_at
		FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email)))

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to get user %s: %w", email, err)
	}
	return u, nil
}

// List returns all users ordered by signup time
func (r *Repository) List(ctx context.Context) ([]domain.User, error) {
	return r.query(ctx, `
		SELECT id, email, name, country, investment_goals, risk_tolerance, preferred_industry, created_at
		FROM users ORDER BY created_at, email
	`)
}

// ListForNewsEmail returns every user that has an email address
func (r *Repository) ListForNewsEmail(ctx context.Context) ([]domain.User, error) {
	return r.query(ctx, `
		SELECT id, email, name, country, investment_goals, risk_tolerance, preferred_industry, created_at
		FROM users WHERE email <> '' ORDER BY created_at, email
	`)
}

// Count returns the number of registered users
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var createdAt int64
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.Country, &u.InvestmentGoals, &u.RiskTolerance, &u.PreferredIndustry, &createdAt)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}
