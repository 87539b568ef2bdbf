package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"identityapi/internal/config"
	"identityapi/internal/database"
	"identityapi/internal/models"
	"identityapi/internal/server"
	"identityapi/internal/utils"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err, "Failed to create test database")

	// Every pooled connection to :memory: would get its own database, so
	// pin the pool to one connection.
	sqlDB, err := db.DB()
	assert.NoError(t, err, "Failed to get raw connection")
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Provider{},
		&models.Token{},
	)
	assert.NoError(t, err, "Failed to migrate test database")

	return db
}

func TestConfig() *config.Config {
	// No SMTP host: the mailer stays disabled for the whole suite.
	return &config.Config{
		ServerAddr: ":0",
	}
}

func SetupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	db := TestDB(t)
	database.DB = db

	app := server.New(db, TestConfig())
	return app, db
}

// CreateTestUser inserts a user through the real creation flow, so it gets a
// companion email provider and, if not pre-verified, a pending token.
func CreateTestUser(t *testing.T, db *gorm.DB, username, email, password, role string) *models.User {
	hashed, err := utils.HashPassword(password)
	assert.NoError(t, err, "Failed to hash test password")

	u := &models.User{
		Username:  username,
		Email:     email,
		Password:  &hashed,
		FirstName: "Test",
		Role:      role,
	}

	err = db.Create(u).Error
	assert.NoError(t, err, "Failed to create test user")

	p := models.Provider{UserID: u.ID, Type: models.ProviderEmail, Active: true}
	err = db.Create(&p).Error
	assert.NoError(t, err, "Failed to create test email provider")

	return u
}

func GetAuthToken(t *testing.T, userID uint, role string) string {
	token, err := utils.GenerateJWT(userID, role)
	assert.NoError(t, err, "Failed to generate test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success    bool         `json:"success"`
	StatusCode int          `json:"status_code"`
	Message    string       `json:"message"`
	Data       interface{}  `json:"data"`
	Error      *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) StandardResponse {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Nil(t, result.Error, "Expected no error")
	return result
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.NotNil(t, result.Error, "Expected error object")
	if result.Error != nil {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}
