package scenarios

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/finquest/finquest/internal/models"
)

// ErrNotFound indicates the requested scenario does not exist.
var ErrNotFound = errors.New("scenario not found")

// Repository implements scenario data access over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new scenarios repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetScenario retrieves a scenario by ID.
func (r *Repository) GetScenario(ctx context.Context, id uuid.UUID) (*models.Scenario, error) {
	const q = `
		SELECT id, name, difficulty, company_data, created_at
		FROM scenarios
		WHERE id = $1`

	var s models.Scenario
	var companyData pqtype.NullRawMessage
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Name, &s.Difficulty, &companyData, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}
	if companyData.Valid {
		s.CompanyData = companyData.RawMessage
	}
	return &s, nil
}

// ListScenarios returns all scenarios ordered by difficulty then name.
func (r *Repository) ListScenarios(ctx context.Context) ([]models.Scenario, error) {
	const q = `
		SELECT id, name, difficulty, company_data, created_at
		FROM scenarios
		ORDER BY difficulty, name`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []models.Scenario
	for rows.Next() {
		var s models.Scenario
		var companyData pqtype.NullRawMessage
		if err := rows.Scan(&s.ID, &s.Name, &s.Difficulty, &companyData, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		if companyData.Valid {
			s.CompanyData = companyData.RawMessage
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}
