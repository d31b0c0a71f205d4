package domain

import "time"

// EmploymentType describes the kind of engagement a posting offers.
type EmploymentType string

// Employment types.
const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// IsValid checks if the employment type is valid.
func (t EmploymentType) IsValid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentInternship:
		return true
	}
	return false
}

// Job represents a job posting.
// EmployerID is set on creation and never changes afterwards.
type Job struct {
	ID             string         `json:"id"`
	EmployerID     string         `json:"employer_id"`
	Title          string         `json:"title"`
	Company        string         `json:"company"`
	Location       string         `json:"location"`
	Description    string         `json:"description"`
	Salary         string         `json:"salary"`
	EmploymentType EmploymentType `json:"employment_type"`
	IsVerified     bool           `json:"is_verified"`
	IsFlagged      bool           `json:"is_flagged"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsOwnedBy reports whether userID is the posting's owner.
// Identifiers are compared as opaque strings.
func (j *Job) IsOwnedBy(userID string) bool {
	return userID != "" && j.EmployerID == userID
}
