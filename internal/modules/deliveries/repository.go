// Package deliveries records every email send attempt.
package deliveries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/domain"
)

// DefaultListLimit is used when no limit is requested
const DefaultListLimit = 100

// Repository handles delivery log database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewRepository creates a new deliveries repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "deliveries").Logger(),
		now: time.Now,
	}
}

// Record stores a delivery. Missing ID and CreatedAt are filled in.
func (r *Repository) Record(ctx context.Context, d domain.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, kind, recipient, subject, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.ID, string(d.Kind), d.Recipient, d.Subject, string(d.Status), d.Error, d.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record delivery to %s: %w", d.Recipient, err)
	}
	return nil
}

// List returns the most recent deliveries, newest first.
// A recipient filter of "" matches everyone.
func (r *Repository) List(ctx context.Context, recipient string, limit int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT id, kind, recipient, subject, status, error, created_at FROM deliveries`
	args := []interface{}{}
	if recipient != "" {
		query += ` WHERE recipient = ?`
		args = append(args, recipient)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Delivery, 0)
	for rows.Next() {
		var d domain.Delivery
		var kind, status string
		var createdAt int64
		if err := rows.Scan(&d.ID, &kind, &d.Recipient, &d.Subject, &status, &d.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.Kind = domain.DeliveryKind(kind)
		d.Status = domain.DeliveryStatus(status)
		d.CreatedAt = time.UnixMilli(createdAt).UTC()
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deliveries: %w", err)
	}
	return result, nil
}

// DeleteOlderThan removes deliveries created before the cutoff and returns how many were removed
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM deliveries WHERE created_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune deliveries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
