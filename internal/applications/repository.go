package applications

import (
	"context"

	"github.com/bissquit/job-garden/internal/domain"
)

// ListFilter narrows application listings.
type ListFilter struct {
	Status *domain.ApplicationStatus
	Limit  int
	Offset int
}

// Repository is the application ledger. It is the single store of
// applications, read by candidate, by employer and by job.
type Repository interface {
	// Create inserts app atomically with respect to (job, candidate).
	// When a record for the pair already exists, or another Create for the
	// same pair wins a race, it returns ErrDuplicateApplication and writes nothing.
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	ListByCandidate(ctx context.Context, candidateID string, filter ListFilter) ([]domain.Application, error)
	ListByEmployer(ctx context.Context, employerID string, filter ListFilter) ([]domain.Application, error)
	ListByJob(ctx context.Context, jobID string, filter ListFilter) ([]domain.Application, error)
	// SetStatus overwrites the status and returns the updated record.
	SetStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error)
}
