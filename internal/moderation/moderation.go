// Package moderation decides what listings show to a viewer.
//
// Flagged postings are hidden from every non-admin listing. Direct fetches
// by id are not filtered, and the verified flag never hides anything.
package moderation

import (
	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/domain"
)

// Scope describes what a viewer may see in listings.
type Scope struct {
	IncludeFlagged bool
}

// ScopeFor returns the listing scope for viewer. Anonymous viewers get the
// most restrictive scope.
func ScopeFor(viewer authz.Actor) Scope {
	return Scope{IncludeFlagged: viewer.ID != "" && viewer.IsAdmin()}
}

// Visible reports whether job may appear in a listing under this scope.
func (s Scope) Visible(job *domain.Job) bool {
	return s.IncludeFlagged || !job.IsFlagged
}

// FilterJobs drops postings not visible under this scope. It is applied
// after the store query so a store that ignores the scope cannot leak
// flagged postings.
func (s Scope) FilterJobs(jobs []domain.Job) []domain.Job {
	if s.IncludeFlagged {
		return jobs
	}
	out := make([]domain.Job, 0, len(jobs))
	for i := range jobs {
		if s.Visible(&jobs[i]) {
			out = append(out, jobs[i])
		}
	}
	return out
}
