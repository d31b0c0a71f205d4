// Package jobs manages job postings.
package jobs

import (
	"context"
	"fmt"

	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/moderation"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// Pagination limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Service implements job posting business logic.
type Service struct {
	repo Repository
}

// NewService creates a new jobs service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput contains posting fields supplied by the creator.
type CreateInput struct {
	Title          string
	Company        string
	Location       string
	Description    string
	Salary         string
	EmploymentType domain.EmploymentType
}

// Create publishes a posting owned by actor. Only employers and admins may
// create postings; a candidate gets a role-required denial.
func (s *Service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*domain.Job, error) {
	if err := authz.Enforce(ctx, actor, authz.ActionCreateJob, authz.Resource{}); err != nil {
		return nil, err
	}

	employmentType := input.EmploymentType
	if employmentType == "" {
		employmentType = domain.EmploymentFullTime
	}
	if !employmentType.IsValid() {
		return nil, ErrInvalidEmploymentType
	}

	job := &domain.Job{
		EmployerID:     actor.ID,
		Title:          input.Title,
		Company:        input.Company,
		Location:       input.Location,
		Description:    input.Description,
		Salary:         input.Salary,
		EmploymentType: employmentType,
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	ctxlog.FromContext(ctx).Info("job created", "job_id", job.ID, "employer_id", job.EmployerID)
	return job, nil
}

// Get returns a posting by id. Direct fetches are not moderation-filtered.
func (s *Service) Get(ctx context.Context, id string) (*domain.Job, error) {
	if !validID(id) {
		return nil, ErrJobNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List returns postings visible to viewer. Non-admin viewers, anonymous
// ones included, never see flagged postings.
func (s *Service) List(ctx context.Context, viewer authz.Actor, filter ListFilter) ([]domain.Job, error) {
	scope := moderation.ScopeFor(viewer)
	filter.IncludeFlagged = scope.IncludeFlagged

	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}

	jobs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return scope.FilterJobs(jobs), nil
}

// Update edits a posting. Allowed for the owning employer and admins.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id string, update JobUpdate) (*domain.Job, error) {
	if update.EmploymentType != nil && !update.EmploymentType.IsValid() {
		return nil, ErrInvalidEmploymentType
	}
	if _, err := s.authorize(ctx, actor, authz.ActionUpdateJob, id); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, update)
}

// Delete removes a posting. Allowed for the owning employer and admins,
// decided by ownership rather than the owner's current role. Applications
// against the posting are retained.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if _, err := s.authorize(ctx, actor, authz.ActionDeleteJob, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("job deleted", "job_id", id, "by", actor.ID)
	return nil
}

// SetVerified toggles admin attestation. Admin only.
func (s *Service) SetVerified(ctx context.Context, actor authz.Actor, id string, verified bool) (*domain.Job, error) {
	if _, err := s.authorize(ctx, actor, authz.ActionVerifyJob, id); err != nil {
		return nil, err
	}
	return s.repo.SetVerified(ctx, id, verified)
}

// SetFlagged toggles the moderation flag. Admin only.
func (s *Service) SetFlagged(ctx context.Context, actor authz.Actor, id string, flagged bool) (*domain.Job, error) {
	if _, err := s.authorize(ctx, actor, authz.ActionFlagJob, id); err != nil {
		return nil, err
	}
	job, err := s.repo.SetFlagged(ctx, id, flagged)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("job moderation changed", "job_id", id, "flagged", flagged, "by", actor.ID)
	return job, nil
}

func (s *Service) authorize(ctx context.Context, actor authz.Actor, action authz.Action, id string) (*domain.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Enforce(ctx, actor, action, authz.JobResource(job)); err != nil {
		return nil, err
	}
	return job, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
