//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/job-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userBody struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
	IsFlagged  bool   `json:"is_flagged"`
}

func decodeUser(t *testing.T, resp *http.Response) userBody {
	t.Helper()
	var result struct {
		Data userBody `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func TestAdmin_ModerateUser(t *testing.T) {
	admin := newAdmin(t)
	target := newActor(t, "candidate")
	base := "/api/v1/users/" + target.ID

	resp, err := admin.PUT(base+"/verification", map[string]bool{"verified": true})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeUser(t, resp).IsVerified)

	resp, err = admin.PUT(base+"/flag", map[string]bool{"flagged": true})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeUser(t, resp).IsFlagged)

	resp, err = admin.GET("/api/v1/users?flagged=true&limit=200")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Data []userBody `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &list)
	found := false
	for _, u := range list.Data {
		assert.True(t, u.IsFlagged)
		if u.ID == target.ID {
			found = true
		}
	}
	assert.True(t, found, "flagged user missing from filtered list")

	resp, err = admin.PUT(base+"/role", map[string]string{"role": "employer"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "employer", decodeUser(t, resp).Role)
}

func TestAdmin_DeleteUser(t *testing.T) {
	admin := newAdmin(t)
	target := newActor(t, "candidate")

	resp, err := admin.DELETE("/api/v1/users/" + target.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = admin.GET("/api/v1/users/" + target.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	// A deleted account cannot keep using its token.
	resp, err = target.WithoutValidation().GET("/api/v1/me")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAdmin_CannotDeleteAdmin(t *testing.T) {
	admin := newAdmin(t)
	promoted := newActor(t, "candidate")

	resp, err := admin.PUT("/api/v1/users/"+promoted.ID+"/role", map[string]string{"role": "admin"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = admin.DELETE("/api/v1/users/" + promoted.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = promoted.DELETE("/api/v1/users/" + admin.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAdmin_PromotedAdminCanModerate(t *testing.T) {
	admin := newAdmin(t)
	promoted := newActor(t, "employer")

	resp, err := admin.PUT("/api/v1/users/"+promoted.ID+"/role", map[string]string{"role": "admin"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = promoted.GET("/api/v1/users/" + admin.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
