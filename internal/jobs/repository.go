package jobs

import (
	"context"

	"github.com/bissquit/job-garden/internal/domain"
)

// ListFilter narrows job listings.
type ListFilter struct {
	EmployerID     string
	EmploymentType domain.EmploymentType
	VerifiedOnly   bool
	// IncludeFlagged is set from the viewer's moderation scope, never from user input.
	IncludeFlagged bool
	Limit          int
	Offset         int
}

// JobUpdate holds optional posting fields. Nil fields are left unchanged.
// The owning employer is not updatable.
type JobUpdate struct {
	Title          *string
	Company        *string
	Location       *string
	Description    *string
	Salary         *string
	EmploymentType *domain.EmploymentType
}

// Repository defines the interface for job posting storage.
type Repository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Job, error)
	Update(ctx context.Context, id string, update JobUpdate) (*domain.Job, error)
	Delete(ctx context.Context, id string) error
	SetVerified(ctx context.Context, id string, verified bool) (*domain.Job, error)
	SetFlagged(ctx context.Context, id string, flagged bool) (*domain.Job, error)
}
