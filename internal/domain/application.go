package domain

import "time"

// ApplicationStatus represents the stage an application is at.
type ApplicationStatus string

// Application statuses.
const (
	ApplicationStatusApplied   ApplicationStatus = "applied"
	ApplicationStatusScreening ApplicationStatus = "screening"
	ApplicationStatusInterview ApplicationStatus = "interview"
	ApplicationStatusOffered   ApplicationStatus = "offered"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
)

// IsValid checks if the status is one of the known statuses.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusApplied, ApplicationStatusScreening, ApplicationStatusInterview,
		ApplicationStatusOffered, ApplicationStatusRejected:
		return true
	}
	return false
}

// IsFinal reports whether the status ends the pipeline.
// Final statuses can still be overwritten by an authorized actor: the
// status field is a flat assignment, not a transition graph.
func (s ApplicationStatus) IsFinal() bool {
	return s == ApplicationStatusOffered || s == ApplicationStatusRejected
}

// Application is a candidate's submission against a job.
//
// EmployerID and ResumeURL are snapshots taken at submission time. They do
// not follow later changes to the job's owner or the candidate's profile.
type Application struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	CandidateID string            `json:"candidate_id"`
	EmployerID  string            `json:"employer_id"`
	Status      ApplicationStatus `json:"status"`
	CoverLetter string            `json:"cover_letter"`
	ResumeURL   string            `json:"resume_url"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IsParty reports whether userID is the candidate or the snapshotted employer.
func (a *Application) IsParty(userID string) bool {
	return userID != "" && (a.CandidateID == userID || a.EmployerID == userID)
}
