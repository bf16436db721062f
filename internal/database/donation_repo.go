package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/projectlend/lend/internal/models"
)

type DonationRepository struct {
	db *DB
}

func NewDonationRepository(db *DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Append writes one donation record and assigns its id. Records persist
// immediately; there is no batching.
func (r *DonationRepository) Append(ctx context.Context, d *models.Donation) error {
	query := `
		INSERT INTO donations (
			category, item_name, estimated_weight_lbs, estimated_expiry,
			timestamp, image_path, donor_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.conn.ExecContext(ctx, query,
		d.Category,
		d.ItemName,
		d.EstimatedWeightLbs,
		d.EstimatedExpiry,
		d.Timestamp.UTC().Format(time.RFC3339Nano),
		d.ImagePath,
		d.DonorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read donation id: %w", err)
	}
	d.ID = id
	return nil
}

func (r *DonationRepository) ListAll(ctx context.Context) ([]*models.Donation, error) {
	return r.query(ctx, `
		SELECT id, category, item_name, estimated_weight_lbs, estimated_expiry,
		       timestamp, image_path, donor_id
		FROM donations
		ORDER BY id`)
}

// Recent returns the most recent limit records, oldest first.
func (r *DonationRepository) Recent(ctx context.Context, limit int) ([]*models.Donation, error) {
	if limit <= 0 {
		limit = 10
	}
	donations, err := r.query(ctx, `
		SELECT id, category, item_name, estimated_weight_lbs, estimated_expiry,
		       timestamp, image_path, donor_id
		FROM donations
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(donations)-1; i < j; i, j = i+1, j-1 {
		donations[i], donations[j] = donations[j], donations[i]
	}
	return donations, nil
}

func (r *DonationRepository) query(ctx context.Context, q string, args ...interface{}) ([]*models.Donation, error) {
	rows, err := r.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		d := &models.Donation{}
		var ts string
		if err := rows.Scan(
			&d.ID,
			&d.Category,
			&d.ItemName,
			&d.EstimatedWeightLbs,
			&d.EstimatedExpiry,
			&ts,
			&d.ImagePath,
			&d.DonorID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			d.Timestamp = parsed
		} else {
			log.Printf("[WARN] Donation #%d has unparseable timestamp %q: %v", d.ID, ts, err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// Stats aggregates the log for the dashboard.
func (r *DonationRepository) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{ByCategory: make(map[string]int)}

	err := r.db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(estimated_weight_lbs), 0),
		       COUNT(DISTINCT donor_id)
		FROM donations`).Scan(&stats.TotalItems, &stats.TotalWeightLbs, &stats.UniqueDonors)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate donations: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM donations GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}
