package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/projectlend/lend/internal/models"
)

// ShelterRepository manages the recipient registry: which shelters exist,
// what they need, and when they were last contacted.
type ShelterRepository struct {
	db *DB
}

func NewShelterRepository(db *DB) *ShelterRepository {
	return &ShelterRepository{db: db}
}

func (r *ShelterRepository) Add(ctx context.Context, s *models.Shelter) error {
	needs, err := json.Marshal(s.CategoriesNeeded)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	result, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO shelters (name, email, categories_needed, status, notes)
		VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.Email, string(needs), s.Status, s.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert shelter: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read shelter id: %w", err)
	}
	s.ID = id
	return nil
}

func (r *ShelterRepository) Get(ctx context.Context, id int64) (*models.Shelter, error) {
	shelters, err := r.query(ctx, `
		SELECT id, name, email, categories_needed, last_contacted, last_response, status, notes
		FROM shelters WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(shelters) == 0 {
		return nil, sql.ErrNoRows
	}
	return shelters[0], nil
}

func (r *ShelterRepository) ListAll(ctx context.Context) ([]*models.Shelter, error) {
	return r.query(ctx, `
		SELECT id, name, email, categories_needed, last_contacted, last_response, status, notes
		FROM shelters ORDER BY id`)
}

func (r *ShelterRepository) ListActive(ctx context.Context) ([]*models.Shelter, error) {
	return r.query(ctx, `
		SELECT id, name, email, categories_needed, last_contacted, last_response, status, notes
		FROM shelters WHERE status = ? ORDER BY id`, models.ShelterActive)
}

// UpdateNeeds replaces a shelter's needed categories and stamps the response
// time; a needs update only ever arrives as a reply from the shelter.
func (r *ShelterRepository) UpdateNeeds(ctx context.Context, id int64, categories []string) error {
	if categories == nil {
		categories = []string{}
	}
	needs, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	result, err := r.db.conn.ExecContext(ctx, `
		UPDATE shelters SET categories_needed = ?, last_response = ? WHERE id = ?`,
		string(needs), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to update shelter needs: %w", err)
	}
	return requireRow(result, id)
}

func (r *ShelterRepository) MarkContacted(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.conn.ExecContext(ctx, `
		UPDATE shelters SET last_contacted = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("failed to mark shelter contacted: %w", err)
	}
	return requireRow(result, id)
}

func (r *ShelterRepository) SetStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.conn.ExecContext(ctx, `
		UPDATE shelters SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update shelter status: %w", err)
	}
	return requireRow(result, id)
}

func (r *ShelterRepository) Remove(ctx context.Context, id int64) error {
	result, err := r.db.conn.ExecContext(ctx, `DELETE FROM shelters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove shelter: %w", err)
	}
	return requireRow(result, id)
}

// DemandSummary counts, per category, how many active shelters need it.
func (r *ShelterRepository) DemandSummary(ctx context.Context) (map[string]int, error) {
	shelters, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]int)
	for _, s := range shelters {
		for _, category := range s.CategoriesNeeded {
			summary[category]++
		}
	}
	return summary, nil
}

func requireRow(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("shelter %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *ShelterRepository) query(ctx context.Context, q string, args ...interface{}) ([]*models.Shelter, error) {
	rows, err := r.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shelters: %w", err)
	}
	defer rows.Close()

	var shelters []*models.Shelter
	for rows.Next() {
		s := &models.Shelter{}
		var needs string
		var contacted, responded sql.NullString
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Email,
			&needs,
			&contacted,
			&responded,
			&s.Status,
			&s.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shelter: %w", err)
		}
		if err := json.Unmarshal([]byte(needs), &s.CategoriesNeeded); err != nil {
			return nil, fmt.Errorf("shelter %d has malformed categories: %w", s.ID, err)
		}
		s.LastContacted = parseNullTime(contacted)
		s.LastResponse = parseNullTime(responded)
		shelters = append(shelters, s)
	}
	return shelters, rows.Err()
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}
