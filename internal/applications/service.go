// Package applications is the application ledger and its lifecycle rules.
package applications

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/bissquit/job-garden/internal/pkg/metrics"
	"github.com/google/uuid"
)

// Pagination limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// JobReader resolves postings by id.
type JobReader interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
}

// ProfileReader resolves the candidate's current profile.
type ProfileReader interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Service is the application lifecycle controller.
type Service struct {
	repo     Repository
	jobs     JobReader
	profiles ProfileReader
	notifier Notifier
}

// NewService creates a new applications service. notifier may be nil.
func NewService(repo Repository, jobs JobReader, profiles ProfileReader, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		jobs:     jobs,
		profiles: profiles,
		notifier: notifier,
	}
}

// SubmitInput contains the candidate's submission.
type SubmitInput struct {
	CoverLetter string
	// ResumeURL overrides the profile resume when set.
	ResumeURL *string
}

// Submit records actor's application to a job with status applied.
//
// The job's employer and the candidate's resume are copied onto the record
// and never follow later changes. A second submission for the same
// (job, candidate) pair fails with ErrDuplicateApplication, also when both
// submissions race.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, jobID string, input SubmitInput) (*domain.Application, error) {
	if err := authz.Enforce(ctx, actor, authz.ActionSubmitApplication, authz.Resource{}); err != nil {
		return nil, err
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resumeURL, err := s.resumeSnapshot(ctx, actor.ID, input.ResumeURL)
	if err != nil {
		return nil, err
	}

	app := &domain.Application{
		JobID:       job.ID,
		CandidateID: actor.ID,
		EmployerID:  job.EmployerID,
		Status:      domain.ApplicationStatusApplied,
		CoverLetter: input.CoverLetter,
		ResumeURL:   resumeURL,
	}

	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, ErrDuplicateApplication) {
			metrics.ApplicationConflicts.Inc()
			return nil, err
		}
		return nil, fmt.Errorf("create application: %w", err)
	}

	metrics.ApplicationsSubmitted.Inc()
	ctxlog.FromContext(ctx).Info("application submitted",
		"application_id", app.ID,
		"job_id", app.JobID,
		"candidate_id", app.CandidateID,
	)

	s.notify(ctx, Event{
		Type:        EventSubmitted,
		RecipientID: app.EmployerID,
		Application: *app,
		JobTitle:    job.Title,
	})

	return app, nil
}

// SetStatus assigns status to an application. Only the employer
// snapshotted on the application and admins may do so; candidates never
// can. Any valid status may replace any other, and concurrent writers are
// last-write-wins.
func (s *Service) SetStatus(ctx context.Context, actor authz.Actor, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.Enforce(ctx, actor, authz.ActionSetApplicationStatus, authz.ApplicationResource(current)); err != nil {
		return nil, err
	}

	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	updated, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	metrics.ApplicationStatusChanges.WithLabelValues(string(status)).Inc()
	ctxlog.FromContext(ctx).Info("application status changed",
		"application_id", id,
		"from", current.Status,
		"to", status,
		"by", actor.ID,
	)

	if current.Status != status {
		s.notify(ctx, Event{
			Type:           EventStatusChanged,
			RecipientID:    updated.CandidateID,
			Application:    *updated,
			JobTitle:       s.jobTitle(ctx, updated.JobID),
			PreviousStatus: current.Status,
		})
	}

	return updated, nil
}

// Get returns an application to one of its parties or an admin.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id string) (*domain.Application, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Enforce(ctx, actor, authz.ActionReadApplication, authz.ApplicationResource(app)); err != nil {
		return nil, err
	}
	return app, nil
}

// ListForCandidate returns the actor's own applications.
func (s *Service) ListForCandidate(ctx context.Context, actor authz.Actor, filter ListFilter) ([]domain.Application, error) {
	if actor.ID == "" {
		return nil, authz.ErrUnauthenticated
	}
	return s.repo.ListByCandidate(ctx, actor.ID, clamp(filter))
}

// ListForEmployer returns applications whose employer snapshot is the actor.
func (s *Service) ListForEmployer(ctx context.Context, actor authz.Actor, filter ListFilter) ([]domain.Application, error) {
	if actor.ID == "" {
		return nil, authz.ErrUnauthenticated
	}
	return s.repo.ListByEmployer(ctx, actor.ID, clamp(filter))
}

// ListForJob returns applications to a job, for its owner or an admin.
func (s *Service) ListForJob(ctx context.Context, actor authz.Actor, jobID string, filter ListFilter) ([]domain.Application, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := authz.Enforce(ctx, actor, authz.ActionListJobApplications, authz.JobResource(job)); err != nil {
		return nil, err
	}
	return s.repo.ListByJob(ctx, job.ID, clamp(filter))
}

func (s *Service) load(ctx context.Context, id string) (*domain.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrApplicationNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// resumeSnapshot returns the resume URL to copy onto a new application.
func (s *Service) resumeSnapshot(ctx context.Context, candidateID string, override *string) (string, error) {
	if override != nil {
		return *override, nil
	}
	profile, err := s.profiles.GetUserByID(ctx, candidateID)
	if err != nil {
		return "", fmt.Errorf("load candidate profile: %w", err)
	}
	return profile.ResumeURL, nil
}

// jobTitle is best effort: the job may have been deleted since submission.
func (s *Service) jobTitle(ctx context.Context, jobID string) string {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return ""
	}
	return job.Title
}

// notify hands event to the sink. Failures never reach the caller.
func (s *Service) notify(ctx context.Context, event Event) {
	if s.notifier == nil || event.RecipientID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Warn("notification not accepted",
			"event", event.Type,
			"application_id", event.Application.ID,
			"error", err,
		)
	}
}

func clamp(filter ListFilter) ListFilter {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	return filter
}
