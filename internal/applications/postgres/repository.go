// Package postgres provides PostgreSQL implementation of the application ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/job-garden/internal/applications"
	"github.com/bissquit/job-garden/internal/domain"
	pgstore "github.com/bissquit/job-garden/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationColumns = `id, job_id, candidate_id, employer_id, status, cover_letter,
	resume_url, created_at, updated_at`

	uniqueJobCandidate = "applications_job_candidate_key"
)

// Repository implements applications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts an application. The (job_id, candidate_id) unique
// constraint arbitrates concurrent submissions: the loser inserts nothing
// and gets no row back.
func (r *Repository) Create(ctx context.Context, app *domain.Application) error {
	query := `
		INSERT INTO applications (job_id, candidate_id, employer_id, status, cover_letter, resume_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT ` + uniqueJobCandidate + ` DO NOTHING
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		app.JobID,
		app.CandidateID,
		app.EmployerID,
		app.Status,
		app.CoverLetter,
		app.ResumeURL,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgstore.IsUniqueViolation(err, uniqueJobCandidate) {
			return applications.ErrDuplicateApplication
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// GetByID retrieves an application by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	app, err := scanApplication(r.db.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, applications.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

// ListByCandidate retrieves a candidate's applications newest first.
func (r *Repository) ListByCandidate(ctx context.Context, candidateID string, filter applications.ListFilter) ([]domain.Application, error) {
	return r.list(ctx, "candidate_id", candidateID, filter)
}

// ListByEmployer retrieves applications by employer snapshot newest first.
func (r *Repository) ListByEmployer(ctx context.Context, employerID string, filter applications.ListFilter) ([]domain.Application, error) {
	return r.list(ctx, "employer_id", employerID, filter)
}

// ListByJob retrieves applications to a job newest first.
func (r *Repository) ListByJob(ctx context.Context, jobID string, filter applications.ListFilter) ([]domain.Application, error) {
	return r.list(ctx, "job_id", jobID, filter)
}

// SetStatus overwrites the status.
func (r *Repository) SetStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	query := `UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + applicationColumns
	app, err := scanApplication(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, applications.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("set application status: %w", err)
	}
	return app, nil
}

// list selects by one owner column. column is always a constant from this file.
func (r *Repository) list(ctx context.Context, column, value string, filter applications.ListFilter) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE ` + column + ` = $1`
	args := []interface{}{value}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		result = append(result, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	return result, nil
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var app domain.Application
	err := row.Scan(
		&app.ID,
		&app.JobID,
		&app.CandidateID,
		&app.EmployerID,
		&app.Status,
		&app.CoverLetter,
		&app.ResumeURL,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &app, nil
}
