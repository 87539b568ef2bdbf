package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"identityapi/internal/config"
	"identityapi/internal/models"
	"identityapi/internal/response"
	"identityapi/internal/user"
	"identityapi/internal/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/datatypes"
)

func newGoogleConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		RedirectURL:  cfg.GoogleRedirectURL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

var (
	stateStore = make(map[string]time.Time)
	stateMutex sync.RWMutex
)

func generateState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

func storeState(state string) {
	stateMutex.Lock()
	defer stateMutex.Unlock()
	stateStore[state] = time.Now().Add(5 * time.Minute)

	for k, v := range stateStore {
		if time.Now().After(v) {
			delete(stateStore, k)
		}
	}
}

func validateState(state string) bool {
	stateMutex.Lock()
	defer stateMutex.Unlock()

	expiry, exists := stateStore[state]
	if !exists || time.Now().After(expiry) {
		return false
	}
	delete(stateStore, state)
	return true
}

func (h *Handler) GoogleLogin(c *fiber.Ctx) error {
	state := generateState()
	storeState(state)
	url := h.googleCfg.AuthCodeURL(state)
	return c.Redirect(url)
}

// GoogleCallback exchanges the authorization code, fetches the userinfo
// payload and resolves it to a local account through the reconciliation flow.
func (h *Handler) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if !validateState(state) {
		return response.BadRequest(c, "Invalid state parameter", nil)
	}

	code := c.Query("code")

	tok, err := h.googleCfg.Exchange(context.Background(), code)
	if err != nil {
		return response.InternalError(c, "Failed to exchange token")
	}

	client := h.googleCfg.Client(context.Background(), tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return response.InternalError(c, "Failed to get user info")
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var userData map[string]interface{}
	if err := json.Unmarshal(data, &userData); err != nil {
		return response.InternalError(c, "Failed to parse user info")
	}

	email, _ := userData["email"].(string)
	if email == "" {
		return response.InternalError(c, "Provider did not supply an email")
	}
	firstName, _ := userData["given_name"].(string)
	lastName, _ := userData["family_name"].(string)

	resolved, err := h.users.FindOrCreateUserByEmail(user.ProviderAssertion{
		Provider:     models.ProviderGoogle,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Username:     email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Profile:      datatypes.JSON(data),
	})
	if err != nil {
		return response.InternalError(c, "Failed to resolve user")
	}

	accessToken, err := utils.GenerateJWT(resolved.ID, resolved.Role)
	if err != nil {
		return response.InternalError(c, "Failed to generate token")
	}

	if err := h.users.TouchLastLogin(resolved.ID); err != nil {
		log.Printf("Failed to update last login for user %d: %v", resolved.ID, err)
	}

	return response.Success(c, fiber.Map{
		"access_token": accessToken,
		"user":         resolved,
	}, "Login successful")
}
