package auth_test

import (
	"testing"
	"time"

	"identityapi/internal/models"
	"identityapi/internal/testutils"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	t.Run("Success - Register user", func(t *testing.T) {
		body := map[string]interface{}{
			"username": "jdoe",
			"email":    "j@x.com",
			"password": "longenough1",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		result := testutils.AssertSuccess(t, resp)

		data := result.Data.(map[string]interface{})
		assert.Equal(t, "jdoe", data["username"])
		assert.Equal(t, false, data["email_verified"])
		assert.NotContains(t, data, "password")

		var stored models.User
		assert.NoError(t, db.Where("email = ?", "j@x.com").First(&stored).Error)
		assert.NotNil(t, stored.Password)
		assert.NotEqual(t, "longenough1", *stored.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.Password), []byte("longenough1")))

		// A pending verification token exists for the new account.
		var tok models.Token
		assert.NoError(t, db.Where("user_id = ?", stored.ID).First(&tok).Error)
		assert.Equal(t, models.TokenEmailVerification, tok.Type)
		assert.Nil(t, tok.ConsumedAt)
	})

	t.Run("Error - Duplicate email", func(t *testing.T) {
		body := map[string]interface{}{
			"username": "someoneelse",
			"email":    "j@x.com",
			"password": "longenough1",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "CONFLICT")
	})

	t.Run("Error - Duplicate username", func(t *testing.T) {
		body := map[string]interface{}{
			"username": "jdoe",
			"email":    "other@x.com",
			"password": "longenough1",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "CONFLICT")
	})

	t.Run("Error - Short password", func(t *testing.T) {
		body := map[string]interface{}{
			"username": "shortpw",
			"email":    "shortpw@x.com",
			"password": "short",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Missing required fields", func(t *testing.T) {
		body := map[string]interface{}{
			"email": "incomplete@x.com",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})
}

func TestLoginHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	testutils.CreateTestUser(t, db, "loginuser", "login@x.com", "longenough1", models.RoleUser)

	t.Run("Success - Login", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "login@x.com",
			"password": "longenough1",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		result := testutils.AssertSuccess(t, resp)
		data := result.Data.(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])

		// Login stamps last_logged_in_at.
		var stored models.User
		assert.NoError(t, db.Where("email = ?", "login@x.com").First(&stored).Error)
		assert.NotNil(t, stored.LastLoggedInAt)
	})

	t.Run("Error - Wrong password", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "login@x.com",
			"password": "wrongpassword",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})

	t.Run("Error - Unknown email", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "nobody@x.com",
			"password": "longenough1",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})

	t.Run("Error - Provider-only account has no password login", func(t *testing.T) {
		u := models.User{
			Username: "oauthonly",
			Email:    "oauthonly@x.com",
		}
		assert.NoError(t, db.Create(&u).Error)

		body := map[string]interface{}{
			"email":    "oauthonly@x.com",
			"password": "anythingatall",
		}

		resp, err := testutils.MakeRequest(app, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		testutils.AssertError(t, resp, "UNAUTHORIZED")
	})
}

func TestVerifyEmailHandler(t *testing.T) {
	app, db := testutils.SetupTestApp(t)

	body := map[string]interface{}{
		"username": "pending",
		"email":    "pending@x.com",
		"password": "longenough1",
	}
	resp, err := testutils.MakeRequest(app, "POST", "/auth/register", body, "")
	assert.NoError(t, err)
	assert.Equal(t, 201, resp.Code)

	var stored models.User
	assert.NoError(t, db.Where("email = ?", "pending@x.com").First(&stored).Error)
	assert.Nil(t, stored.EmailVerifiedAt)

	var tok models.Token
	assert.NoError(t, db.Where("user_id = ?", stored.ID).First(&tok).Error)

	t.Run("Success - Verify email with token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "POST", "/auth/verify-email",
			map[string]interface{}{"token": tok.Value}, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		testutils.AssertSuccess(t, resp)

		assert.NoError(t, db.Where("email = ?", "pending@x.com").First(&stored).Error)
		assert.NotNil(t, stored.EmailVerifiedAt)
	})

	t.Run("Error - Token cannot be reused", func(t *testing.T) {
		resp, err := testutils.MakeRequest(app, "POST", "/auth/verify-email",
			map[string]interface{}{"token": tok.Value}, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "BAD_REQUEST")
	})

	t.Run("Error - Expired token", func(t *testing.T) {
		expired := models.Token{
			UserID:    stored.ID,
			Value:     "expired-token-value",
			Type:      models.TokenEmailVerification,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		assert.NoError(t, db.Create(&expired).Error)

		resp, err := testutils.MakeRequest(app, "POST", "/auth/verify-email",
			map[string]interface{}{"token": "expired-token-value"}, "")
		assert.NoError(t, err)
		assert.Equal(t, 400, resp.Code)

		testutils.AssertError(t, resp, "BAD_REQUEST")
	})
}
