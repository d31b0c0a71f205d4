// Package postgres provides PostgreSQL implementation of the jobs repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/jobs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobColumns = `id, employer_id, title, company, location, description, salary,
	employment_type, is_verified, is_flagged, created_at, updated_at`

// Repository implements jobs.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a posting.
func (r *Repository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (employer_id, title, company, location, description, salary, employment_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_verified, is_flagged, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		job.EmployerID,
		job.Title,
		job.Company,
		job.Location,
		job.Description,
		job.Salary,
		job.EmploymentType,
	).Scan(&job.ID, &job.IsVerified, &job.IsFlagged, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetByID retrieves a posting by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return r.getJob(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
}

// List retrieves postings newest first.
func (r *Repository) List(ctx context.Context, filter jobs.ListFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`

	var conditions []string
	var args []interface{}

	if !filter.IncludeFlagged {
		conditions = append(conditions, "is_flagged = false")
	}
	if filter.VerifiedOnly {
		conditions = append(conditions, "is_verified = true")
	}
	if filter.EmployerID != "" {
		args = append(args, filter.EmployerID)
		conditions = append(conditions, fmt.Sprintf("employer_id = $%d", len(args)))
	}
	if filter.EmploymentType != "" {
		args = append(args, filter.EmploymentType)
		conditions = append(conditions, fmt.Sprintf("employment_type = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
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
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return result, nil
}

// Update sets the non-nil posting fields.
func (r *Repository) Update(ctx context.Context, id string, update jobs.JobUpdate) (*domain.Job, error) {
	query := `
		UPDATE jobs SET
			title           = COALESCE($2, title),
			company         = COALESCE($3, company),
			location        = COALESCE($4, location),
			description     = COALESCE($5, description),
			salary          = COALESCE($6, salary),
			employment_type = COALESCE($7, employment_type),
			updated_at      = NOW()
		WHERE id = $1
		RETURNING ` + jobColumns

	var employmentType *string
	if update.EmploymentType != nil {
		v := string(*update.EmploymentType)
		employmentType = &v
	}

	return r.getJob(ctx, query, id,
		update.Title,
		update.Company,
		update.Location,
		update.Description,
		update.Salary,
		employmentType,
	)
}

// Delete removes a posting. Applications referencing it are kept.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return jobs.ErrJobNotFound
	}
	return nil
}

// SetVerified updates the verified flag.
func (r *Repository) SetVerified(ctx context.Context, id string, verified bool) (*domain.Job, error) {
	query := `UPDATE jobs SET is_verified = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + jobColumns
	return r.getJob(ctx, query, id, verified)
}

// SetFlagged updates the moderation flag.
func (r *Repository) SetFlagged(ctx context.Context, id string, flagged bool) (*domain.Job, error) {
	query := `UPDATE jobs SET is_flagged = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + jobColumns
	return r.getJob(ctx, query, id, flagged)
}

func (r *Repository) getJob(ctx context.Context, query string, args ...interface{}) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobs.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(
		&job.ID,
		&job.EmployerID,
		&job.Title,
		&job.Company,
		&job.Location,
		&job.Description,
		&job.Salary,
		&job.EmploymentType,
		&job.IsVerified,
		&job.IsFlagged,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
