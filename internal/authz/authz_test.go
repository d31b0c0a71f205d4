package authz

import (
	"errors"
	"testing"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin     = Actor{ID: "admin-1", Role: domain.RoleAdmin}
	employer  = Actor{ID: "employer-1", Role: domain.RoleEmployer}
	employer2 = Actor{ID: "employer-2", Role: domain.RoleEmployer}
	candidate = Actor{ID: "candidate-1", Role: domain.RoleCandidate}
)

func TestAuthorize_Unauthenticated(t *testing.T) {
	err := Authorize(Actor{}, ActionCreateJob, Resource{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.NotErrorIs(t, err, ErrForbidden)
}

func TestAuthorize_CreateJob(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		allowed bool
	}{
		{"employer", employer, true},
		{"admin", admin, true},
		{"candidate", candidate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, ActionCreateJob, Resource{})
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrForbidden)

			var roleErr *RoleRequiredError
			require.True(t, errors.As(err, &roleErr), "candidate denial must name the required role")
			assert.Contains(t, roleErr.Required, domain.RoleEmployer)
			assert.Equal(t, ActionCreateJob, roleErr.Action)
		})
	}
}

func TestAuthorize_JobMutation(t *testing.T) {
	job := &domain.Job{ID: "job-1", EmployerID: employer.ID}

	tests := []struct {
		name    string
		actor   Actor
		action  Action
		allowed bool
	}{
		{"owner deletes", employer, ActionDeleteJob, true},
		{"owner updates", employer, ActionUpdateJob, true},
		{"other employer deletes", employer2, ActionDeleteJob, false},
		{"candidate deletes", candidate, ActionDeleteJob, false},
		{"admin deletes", admin, ActionDeleteJob, true},
		{"owner verifies", employer, ActionVerifyJob, false},
		{"owner flags", employer, ActionFlagJob, false},
		{"admin verifies", admin, ActionVerifyJob, true},
		{"admin flags", admin, ActionFlagJob, true},
		{"owner lists applications", employer, ActionListJobApplications, true},
		{"other employer lists applications", employer2, ActionListJobApplications, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, JobResource(job))
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorize_DeleteJob_OwnershipOutlivesRoleChange(t *testing.T) {
	job := &domain.Job{ID: "job-1", EmployerID: "user-1"}
	formerEmployer := Actor{ID: "user-1", Role: domain.RoleCandidate}

	assert.NoError(t, Authorize(formerEmployer, ActionDeleteJob, JobResource(job)))
}

func TestAuthorize_OwnershipIsExactStringMatch(t *testing.T) {
	tests := []struct {
		name    string
		ownerID string
		actorID string
	}{
		{"numeric prefix", "12", "12abc"},
		{"leading zero", "012", "12"},
		{"case differs", "ABC", "abc"},
		{"whitespace", "abc", "abc "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := Actor{ID: tt.actorID, Role: domain.RoleEmployer}
			err := Authorize(actor, ActionDeleteJob, Resource{OwnerID: tt.ownerID})
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestAuthorize_EmptyOwnerNeverMatches(t *testing.T) {
	err := Authorize(employer, ActionDeleteJob, Resource{OwnerID: ""})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorize_SetApplicationStatus(t *testing.T) {
	app := &domain.Application{
		ID:          "app-1",
		JobID:       "job-1",
		CandidateID: candidate.ID,
		EmployerID:  employer.ID,
	}

	tests := []struct {
		name    string
		actor   Actor
		allowed bool
	}{
		{"snapshotted employer", employer, true},
		{"admin", admin, true},
		{"other employer", employer2, false},
		{"applicant", candidate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, ActionSetApplicationStatus, ApplicationResource(app))
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestAuthorize_SetApplicationStatus_CandidateNeverAllowed(t *testing.T) {
	// A candidate whose id equals the employer snapshot (they owned the job
	// before switching roles) is still denied.
	app := &domain.Application{CandidateID: "user-1", EmployerID: "user-1"}
	actor := Actor{ID: "user-1", Role: domain.RoleCandidate}

	assert.ErrorIs(t, Authorize(actor, ActionSetApplicationStatus, ApplicationResource(app)), ErrForbidden)
}

func TestAuthorize_ReadApplication(t *testing.T) {
	app := &domain.Application{CandidateID: candidate.ID, EmployerID: employer.ID}
	other := Actor{ID: "candidate-2", Role: domain.RoleCandidate}

	assert.NoError(t, Authorize(candidate, ActionReadApplication, ApplicationResource(app)))
	assert.NoError(t, Authorize(employer, ActionReadApplication, ApplicationResource(app)))
	assert.NoError(t, Authorize(admin, ActionReadApplication, ApplicationResource(app)))
	assert.ErrorIs(t, Authorize(other, ActionReadApplication, ApplicationResource(app)), ErrForbidden)
	assert.ErrorIs(t, Authorize(employer2, ActionReadApplication, ApplicationResource(app)), ErrForbidden)
}

func TestAuthorize_SubmitApplication(t *testing.T) {
	assert.NoError(t, Authorize(candidate, ActionSubmitApplication, Resource{}))
	assert.NoError(t, Authorize(admin, ActionSubmitApplication, Resource{}))

	err := Authorize(employer, ActionSubmitApplication, Resource{})
	var roleErr *RoleRequiredError
	require.ErrorAs(t, err, &roleErr)
	assert.Contains(t, roleErr.Required, domain.RoleCandidate)
}

func TestAuthorize_ChangeOwnRole(t *testing.T) {
	self := Resource{TargetID: candidate.ID, TargetRole: candidate.Role}
	assert.NoError(t, Authorize(candidate, ActionChangeOwnRole, self))

	someoneElse := Resource{TargetID: employer.ID, TargetRole: employer.Role}
	assert.ErrorIs(t, Authorize(candidate, ActionChangeOwnRole, someoneElse), ErrForbidden)
}

func TestAuthorize_UserManagement(t *testing.T) {
	target := &domain.User{ID: "user-9", Role: domain.RoleCandidate}
	actions := []Action{ActionListUsers, ActionReadUser, ActionSetUserRole, ActionVerifyUser, ActionFlagUser, ActionDeleteUser}

	for _, action := range actions {
		t.Run(string(action), func(t *testing.T) {
			assert.NoError(t, Authorize(admin, action, UserResource(target)))
			assert.ErrorIs(t, Authorize(employer, action, UserResource(target)), ErrForbidden)
			assert.ErrorIs(t, Authorize(candidate, action, UserResource(target)), ErrForbidden)
		})
	}
}

func TestAuthorize_DeleteAdminAlwaysDenied(t *testing.T) {
	target := &domain.User{ID: "admin-2", Role: domain.RoleAdmin}

	for _, actor := range []Actor{admin, employer, candidate, {ID: "admin-2", Role: domain.RoleAdmin}} {
		t.Run(string(actor.Role)+"/"+actor.ID, func(t *testing.T) {
			assert.ErrorIs(t, Authorize(actor, ActionDeleteUser, UserResource(target)), ErrAdminProtected)
		})
	}
}

func TestAuthorize_AdminMayChangeAnotherAdminsRole(t *testing.T) {
	target := &domain.User{ID: "admin-2", Role: domain.RoleAdmin}
	assert.NoError(t, Authorize(admin, ActionSetUserRole, UserResource(target)))
}

func TestRoleRequiredError_Message(t *testing.T) {
	err := &RoleRequiredError{Action: ActionCreateJob, Required: []domain.Role{domain.RoleEmployer, domain.RoleAdmin}}
	assert.Equal(t, "job.create requires role: employer or admin", err.Error())
}

func TestRoleRequiredError_Fields(t *testing.T) {
	err := &RoleRequiredError{Action: ActionCreateJob, Required: []domain.Role{domain.RoleEmployer, domain.RoleAdmin}}

	assert.Equal(t, "role_required", err.ErrorCode())
	assert.Equal(t, []string{"employer", "admin"}, err.ErrorFields()["required_roles"])
}
