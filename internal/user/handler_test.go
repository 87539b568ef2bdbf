package user_test

import (
	"fmt"
	"testing"

	"identityapi/internal/models"
	"identityapi/internal/testutils"

	"github.com/stretchr/testify/assert"
)

func TestMeHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	u := testutils.CreateTestUser(t, db, "me", "me@x.com", "longenough1", models.RoleUser)
	token := testutils.GetAuthToken(t, u.ID, u.Role)

	t.Run("Success - Logged in user", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/me", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		result := testutils.AssertSuccess(t, resp)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "me", data["username"])
		assert.NotContains(t, data, "password")
	})

	t.Run("Error - No token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/me", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})
}

func TestListUsersHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	admin := testutils.CreateTestUser(t, db, "admin", "admin@x.com", "longenough1", models.RoleAdmin)
	adminToken := testutils.GetAuthToken(t, admin.ID, admin.Role)

	testutils.CreateTestUser(t, db, "user1", "user1@x.com", "longenough1", models.RoleUser)
	testutils.CreateTestUser(t, db, "user2", "user2@x.com", "longenough1", models.RoleUser)

	t.Run("Success - Admin lists users", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users", nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		result := testutils.AssertSuccess(t, resp)
		users := result.Data.([]interface{})
		assert.Len(t, users, 3)

		for _, entry := range users {
			assert.NotContains(t, entry.(map[string]interface{}), "password")
		}
	})

	t.Run("Error - Non-admin forbidden", func(t *testing.T) {
		u := testutils.CreateTestUser(t, db, "pleb", "pleb@x.com", "longenough1", models.RoleUser)
		token := testutils.GetAuthToken(t, u.ID, u.Role)

		resp, err := testutils.MakeRequest(app, "GET", "/users", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 403, resp.Code)

		testutils.AssertError(t, resp, "FORBIDDEN")
	})
}

func TestGetUserHandlers(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	admin := testutils.CreateTestUser(t, db, "admin", "admin@x.com", "longenough1", models.RoleAdmin)
	adminToken := testutils.GetAuthToken(t, admin.ID, admin.Role)

	u := testutils.CreateTestUser(t, db, "target", "target@x.com", "longenough1", models.RoleUser)
	userToken := testutils.GetAuthToken(t, u.ID, u.Role)

	t.Run("Success - Get by ID", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", fmt.Sprintf("/users/%d", u.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		result := testutils.AssertSuccess(t, resp)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "target", data["username"])
	})

	t.Run("Success - Get by email", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/email/target@x.com", nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		testutils.AssertSuccess(t, resp)
	})

	t.Run("Success - Get by username without admin role", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/username/admin", nil, userToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		testutils.AssertSuccess(t, resp)
	})

	t.Run("Error - Not found", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "GET", "/users/99999", nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 404, resp.Code)

		testutils.AssertError(t, resp, "NOT_FOUND")
	})
}

func TestCreateUserHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	admin := testutils.CreateTestUser(t, db, "admin", "admin@x.com", "longenough1", models.RoleAdmin)
	adminToken := testutils.GetAuthToken(t, admin.ID, admin.Role)

	t.Run("Success - Admin creates pre-verified user", func(t *testing.T) {
		body := map[string]interface{}{
			"username":          "created",
			"email":             "created@x.com",
			"password":          "longenough1",
			"role":              "user",
			"email_verified_at": "2026-01-01T00:00:00Z",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/users", body, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		result := testutils.AssertSuccess(t, resp)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, true, data["email_verified"])

		// Pre-verified: no verification token issued.
		var stored models.User
		assert.NoError(t, db.Where("email = ?", "created@x.com").First(&stored).Error)
		var tokenCount int64
		db.Model(&models.Token{}).Where("user_id = ?", stored.ID).Count(&tokenCount)
		assert.Equal(t, int64(0), tokenCount)
	})

	t.Run("Error - Duplicate email", func(t *testing.T) {
		body := map[string]interface{}{
			"username": "duplicate",
			"email":    "created@x.com",
			"password": "longenough1",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/users", body, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "CONFLICT")
	})
}

func TestSoftDeleteAndRestoreHandlers(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	admin := testutils.CreateTestUser(t, db, "admin", "admin@x.com", "longenough1", models.RoleAdmin)
	adminToken := testutils.GetAuthToken(t, admin.ID, admin.Role)

	u := testutils.CreateTestUser(t, db, "victim", "victim@x.com", "longenough1", models.RoleUser)

	t.Run("Success - Soft delete then restore", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "DELETE", fmt.Sprintf("/users/%d", u.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		// Deleted users drop out of every read path.
		resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/users/%d", u.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 404, resp.Code)

		resp, err = testutils.MakeRequest(app, "POST", fmt.Sprintf("/users/%d/restore", u.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		resp, err = testutils.MakeRequest(app, "GET", fmt.Sprintf("/users/%d", u.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
	})

	t.Run("Error - Cannot delete own account", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "DELETE", fmt.Sprintf("/users/%d", admin.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "BAD_REQUEST")
	})

	t.Run("Error - Restore an active user", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/users/%d/restore", u.ID), nil, adminToken)
		assert.NoError(t, err)
		assert.Equal(t, 404, resp.Code)

		testutils.AssertError(t, resp, "NOT_FOUND")
	})
}

func TestUpdatePasswordHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	u := testutils.CreateTestUser(t, db, "pwuser", "pwuser@x.com", "longenough1", models.RoleUser)
	token := testutils.GetAuthToken(t, u.ID, u.Role)

	t.Run("Error - Wrong current password", func(t *testing.T) {
		body := map[string]interface{}{
			"current_password": "notthepassword",
			"new_password":     "evenlonger22",
		}

		resp, err := testutils.MakeRequest(app, "PUT", "/users/me/password", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})

	t.Run("Success - Update password", func(t *testing.T) {
		body := map[string]interface{}{
			"current_password": "longenough1",
			"new_password":     "evenlonger22",
		}

		resp, err := testutils.MakeRequest(app, "PUT", "/users/me/password", body, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		testutils.AssertSuccess(t, resp)

		// Old password no longer works.
		loginResp, err := testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
			"email":    "pwuser@x.com",
			"password": "longenough1",
		}, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, loginResp.Code)

		loginResp, err = testutils.MakeRequest(app, "POST", "/auth/login", map[string]interface{}{
			"email":    "pwuser@x.com",
			"password": "evenlonger22",
		}, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, loginResp.Code)
	})
}
