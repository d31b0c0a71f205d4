// Package authz decides whether an actor may perform an action on a resource.
//
// Authorize is a pure function of the actor's current role and id and the
// ownership fields of the resource. Callers must build the Actor from the
// persisted user record at the time of the request, never from a cached role.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/bissquit/job-garden/internal/pkg/metrics"
)

// Action identifies an operation subject to authorization.
type Action string

// Actions.
const (
	ActionCreateJob            Action = "job.create"
	ActionUpdateJob            Action = "job.update"
	ActionDeleteJob            Action = "job.delete"
	ActionVerifyJob            Action = "job.verify"
	ActionFlagJob              Action = "job.flag"
	ActionListJobApplications  Action = "job.list_applications"
	ActionSubmitApplication    Action = "application.submit"
	ActionReadApplication      Action = "application.read"
	ActionSetApplicationStatus Action = "application.set_status"
	ActionChangeOwnRole        Action = "user.change_own_role"
	ActionListUsers            Action = "user.list"
	ActionReadUser             Action = "user.read"
	ActionSetUserRole          Action = "user.set_role"
	ActionVerifyUser           Action = "user.verify"
	ActionFlagUser             Action = "user.flag"
	ActionDeleteUser           Action = "user.delete"
)

// Errors.
var (
	// ErrForbidden is the root of every authorization denial.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated is returned when the actor carries no identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrAdminProtected is returned for any attempt to delete an admin account.
	ErrAdminProtected = errors.New("admin accounts cannot be deleted")
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   string
	Role domain.Role
}

// ActorFromUser builds an Actor from a freshly loaded user record.
func ActorFromUser(u *domain.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// IsAdmin returns true if the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// Resource carries the ownership fields a decision depends on.
type Resource struct {
	// OwnerID is the posting's employer, or the application's snapshotted employer.
	OwnerID string
	// CandidateID is the applicant, for application resources.
	CandidateID string
	// TargetID and TargetRole describe the user targeted by user-management actions.
	TargetID   string
	TargetRole domain.Role
}

// JobResource describes a job posting.
func JobResource(j *domain.Job) Resource {
	return Resource{OwnerID: j.EmployerID}
}

// ApplicationResource describes an application. The owner is the employer
// snapshot taken at submission, not the job's current owner.
func ApplicationResource(a *domain.Application) Resource {
	return Resource{OwnerID: a.EmployerID, CandidateID: a.CandidateID}
}

// UserResource describes a user targeted by an action.
func UserResource(u *domain.User) Resource {
	return Resource{TargetID: u.ID, TargetRole: u.Role}
}

// RoleRequiredError is a denial caused by the actor's role.
// Required lists the roles that would have been allowed, so clients can
// offer remediation such as switching to the employer role.
type RoleRequiredError struct {
	Action   Action
	Required []domain.Role
}

func (e *RoleRequiredError) Error() string {
	roles := make([]string, len(e.Required))
	for i, r := range e.Required {
		roles[i] = string(r)
	}
	return fmt.Sprintf("%s requires role: %s", e.Action, strings.Join(roles, " or "))
}

// Is makes RoleRequiredError match ErrForbidden.
func (e *RoleRequiredError) Is(target error) bool {
	return target == ErrForbidden
}

// ErrorCode returns the machine-readable code exposed to clients.
func (e *RoleRequiredError) ErrorCode() string {
	return "role_required"
}

// ErrorFields returns the required roles for the response body.
func (e *RoleRequiredError) ErrorFields() map[string]interface{} {
	roles := make([]string, len(e.Required))
	for i, r := range e.Required {
		roles[i] = string(r)
	}
	return map[string]interface{}{"required_roles": roles}
}

// DeniedError is a denial caused by missing ownership.
type DeniedError struct {
	Action Action
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// Is makes DeniedError match ErrForbidden.
func (e *DeniedError) Is(target error) bool {
	return target == ErrForbidden
}

// Authorize returns nil if actor may perform action on res.
func Authorize(actor Actor, action Action, res Resource) error {
	if actor.ID == "" {
		return ErrUnauthenticated
	}

	// Holds for every actor, admins included.
	if action == ActionDeleteUser && res.TargetRole == domain.RoleAdmin {
		return ErrAdminProtected
	}

	if actor.IsAdmin() {
		return nil
	}

	switch action {
	case ActionCreateJob:
		if actor.Role == domain.RoleEmployer {
			return nil
		}
		return &RoleRequiredError{Action: action, Required: []domain.Role{domain.RoleEmployer, domain.RoleAdmin}}

	case ActionUpdateJob, ActionDeleteJob, ActionListJobApplications:
		// Ownership governs, not the actor's current role.
		if isOwner(actor, res) {
			return nil
		}
		return &DeniedError{Action: action, Reason: "not the posting owner"}

	case ActionSubmitApplication:
		if actor.Role == domain.RoleCandidate {
			return nil
		}
		return &RoleRequiredError{Action: action, Required: []domain.Role{domain.RoleCandidate, domain.RoleAdmin}}

	case ActionReadApplication:
		if isOwner(actor, res) || (res.CandidateID != "" && res.CandidateID == actor.ID) {
			return nil
		}
		return &DeniedError{Action: action, Reason: "not a party to the application"}

	case ActionSetApplicationStatus:
		if actor.Role == domain.RoleCandidate {
			return &DeniedError{Action: action, Reason: "candidates cannot change application status"}
		}
		if isOwner(actor, res) {
			return nil
		}
		return &DeniedError{Action: action, Reason: "application belongs to another employer"}

	case ActionChangeOwnRole:
		if res.TargetID == actor.ID {
			return nil
		}
		return &DeniedError{Action: action, Reason: "can only change own role"}

	case ActionVerifyJob, ActionFlagJob,
		ActionListUsers, ActionReadUser, ActionSetUserRole,
		ActionVerifyUser, ActionFlagUser, ActionDeleteUser:
		return &RoleRequiredError{Action: action, Required: []domain.Role{domain.RoleAdmin}}
	}

	return &DeniedError{Action: action, Reason: "unknown action"}
}

// Enforce calls Authorize and records denials in the log and metrics.
func Enforce(ctx context.Context, actor Actor, action Action, res Resource) error {
	err := Authorize(actor, action, res)
	if err != nil {
		metrics.AuthzDenials.WithLabelValues(string(action)).Inc()
		ctxlog.FromContext(ctx).Info("authorization denied",
			"actor_id", actor.ID,
			"actor_role", actor.Role,
			"action", action,
			"reason", err.Error(),
		)
	}
	return err
}

func isOwner(actor Actor, res Resource) bool {
	return res.OwnerID != "" && res.OwnerID == actor.ID
}
