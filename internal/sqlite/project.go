package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/captime/internal/domain/project"
	"github.com/rpggio/captime/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `
	id, name, description, phase, status, management_authorized, probable_to_complete,
	repo_paths, path_pairs, parent_project_id, go_live_date, created_at`

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	if !proj.Phase.Valid() {
		return fmt.Errorf("%w: phase %q", repository.ErrInvalidInput, proj.Phase)
	}
	if proj.Status == "" {
		proj.Status = project.StatusActive
	}
	if proj.CreatedAt.IsZero() {
		proj.CreatedAt = time.Now()
	}
	repoPaths, err := json.Marshal(nonNil(proj.RepoPaths))
	if err != nil {
		return fmt.Errorf("failed to encode repo paths: %w", err)
	}
	pairs, err := json.Marshal(nonNil(proj.PathPairs))
	if err != nil {
		return fmt.Errorf("failed to encode path pairs: %w", err)
	}
	var goLive sql.NullString
	if proj.GoLiveDate != nil {
		goLive = nullTime(*proj.GoLiveDate)
	}

	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		proj.ID,
		proj.Name,
		proj.Description,
		proj.Phase,
		proj.Status,
		boolInt(proj.ManagementAuthorized),
		boolInt(proj.ProbableToComplete),
		string(repoPaths),
		string(pairs),
		proj.ParentProjectID,
		goLive,
		formatTime(proj.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	proj, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return proj, nil
}

// ListActive returns every active project ordered by name
func (r *ProjectRepository) ListActive(ctx context.Context) ([]project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE status = ? ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query, project.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*project.Project, error) {
	var (
		proj                 project.Project
		authorized, probable int
		repoPaths, pairs     string
		parentID, goLive     sql.NullString
		createdAt            string
	)
	if err := row.Scan(
		&proj.ID,
		&proj.Name,
		&proj.Description,
		&proj.Phase,
		&proj.Status,
		&authorized,
		&probable,
		&repoPaths,
		&pairs,
		&parentID,
		&goLive,
		&createdAt,
	); err != nil {
		return nil, err
	}
	proj.ManagementAuthorized = authorized != 0
	proj.ProbableToComplete = probable != 0
	if err := json.Unmarshal([]byte(repoPaths), &proj.RepoPaths); err != nil {
		return nil, fmt.Errorf("failed to decode repo paths: %w", err)
	}
	if err := json.Unmarshal([]byte(pairs), &proj.PathPairs); err != nil {
		return nil, fmt.Errorf("failed to decode path pairs: %w", err)
	}
	if parentID.Valid {
		proj.ParentProjectID = &parentID.String
	}
	if goLive.Valid {
		t, err := parseTime(goLive.String)
		if err != nil {
			return nil, err
		}
		proj.GoLiveDate = &t
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	proj.CreatedAt = created
	return &proj, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
