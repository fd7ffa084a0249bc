package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/captime/internal/domain/developer"
	"github.com/rpggio/captime/internal/repository"
)

// DeveloperRepository implements developer.Repository for SQLite
type DeveloperRepository struct {
	db *DB
}

// NewDeveloperRepository creates a new DeveloperRepository
func NewDeveloperRepository(db *DB) *DeveloperRepository {
	return &DeveloperRepository{db: db}
}

// Create inserts a developer
func (r *DeveloperRepository) Create(ctx context.Context, dev *developer.Developer) error {
	factor := dev.AdjustmentFactor
	if factor <= 0 {
		factor = 1
	}
	query := `
		INSERT INTO developers (id, name, email, adjustment_factor, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		dev.ID, dev.Name, dev.Email, factor, boolInt(dev.Active), formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create developer: %w", err)
	}
	dev.AdjustmentFactor = factor
	return nil
}

// Get retrieves a developer by ID
func (r *DeveloperRepository) Get(ctx context.Context, id string) (*developer.Developer, error) {
	query := `SELECT id, name, email, adjustment_factor, active FROM developers WHERE id = ?`
	dev, err := scanDeveloper(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get developer: %w", err)
	}
	return dev, nil
}

// ListActive returns active developers ordered by ID
func (r *DeveloperRepository) ListActive(ctx context.Context) ([]developer.Developer, error) {
	query := `SELECT id, name, email, adjustment_factor, active FROM developers WHERE active = 1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list developers: %w", err)
	}
	defer rows.Close()

	var devs []developer.Developer
	for rows.Next() {
		dev, err := scanDeveloper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan developer: %w", err)
		}
		devs = append(devs, *dev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating developer rows: %w", err)
	}
	return devs, nil
}

func scanDeveloper(row rowScanner) (*developer.Developer, error) {
	var (
		dev    developer.Developer
		active int
	)
	if err := row.Scan(&dev.ID, &dev.Name, &dev.Email, &dev.AdjustmentFactor, &active); err != nil {
		return nil, err
	}
	dev.Active = active != 0
	return &dev, nil
}
