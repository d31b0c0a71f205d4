//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bissquit/job-garden/internal/testutil"
	"github.com/stretchr/testify/require"
)

type jobBody struct {
	ID         string `json:"id"`
	EmployerID string `json:"employer_id"`
	Title      string `json:"title"`
	IsVerified bool   `json:"is_verified"`
	IsFlagged  bool   `json:"is_flagged"`
}

type applicationBody struct {
	ID          string `json:"id"`
	JobID       string `json:"job_id"`
	CandidateID string `json:"candidate_id"`
	EmployerID  string `json:"employer_id"`
	Status      string `json:"status"`
	CoverLetter string `json:"cover_letter"`
	ResumeURL   string `json:"resume_url"`
}

type errorBody struct {
	Error struct {
		Message       string   `json:"message"`
		Code          string   `json:"code"`
		RequiredRoles []string `json:"required_roles"`
	} `json:"error"`
}

// actor is a logged-in client together with the account behind it.
type actor struct {
	*testutil.Client
	ID    string
	Email string
}

func newActor(t *testing.T, role string) actor {
	t.Helper()
	client := newTestClient(t)
	id, email := client.RegisterAndLogin(t, role)
	return actor{Client: client, ID: id, Email: email}
}

func newAdmin(t *testing.T) actor {
	t.Helper()
	client := newTestClient(t)
	client.LoginAs(t, adminEmail, adminPassword)

	resp, err := client.GET("/api/v1/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return actor{Client: client, ID: result.Data.ID, Email: result.Data.Email}
}

// createJob posts a job as the employer and returns it.
func createJob(t *testing.T, employer actor, title string) jobBody {
	t.Helper()

	resp, err := employer.POST("/api/v1/jobs", map[string]string{
		"title":           title,
		"company":         "Acme",
		"location":        "Remote",
		"description":     fmt.Sprintf("%s at Acme", title),
		"employment_type": "full_time",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data jobBody `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// submitApplication applies to a job and returns the created application.
func submitApplication(t *testing.T, candidate actor, jobID string) applicationBody {
	t.Helper()

	resp, err := candidate.POST("/api/v1/jobs/"+jobID+"/applications", map[string]string{
		"cover_letter": "I would like to join.",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data applicationBody `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func setStatus(t *testing.T, client *testutil.Client, applicationID, status string) *http.Response {
	t.Helper()
	resp, err := client.PUT("/api/v1/applications/"+applicationID+"/status", map[string]string{
		"status": status,
	})
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	testutil.DecodeJSON(t, resp, &body)
	return body
}
