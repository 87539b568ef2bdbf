package auth

import (
	"errors"
	"log"

	"identityapi/internal/config"
	"identityapi/internal/mailer"
	"identityapi/internal/models"
	"identityapi/internal/response"
	"identityapi/internal/token"
	"identityapi/internal/user"
	"identityapi/internal/utils"
	"identityapi/internal/validator"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type Handler struct {
	users     *user.Repository
	tokens    *token.Repository
	mail      *mailer.Mailer
	googleCfg *oauth2.Config
}

func NewHandler(users *user.Repository, tokens *token.Repository, mail *mailer.Mailer, cfg *config.Config) *Handler {
	return &Handler{
		users:     users,
		tokens:    tokens,
		mail:      mail,
		googleCfg: newGoogleConfig(cfg),
	}
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var body registerRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if fields := validator.Check(&body); fields != nil {
		return response.ValidationError(c, fields)
	}

	if _, err := h.users.FindByEmailWithSensitiveColumns(body.Email); err == nil {
		return response.Conflict(c, "Email already registered")
	}
	if _, err := h.users.FindByUsername(body.Username); err == nil {
		return response.Conflict(c, "Username already taken")
	}

	u := models.User{
		Username:  body.Username,
		Email:     body.Email,
		Password:  &body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Role:      models.RoleUser,
	}

	created, tokenValue, err := h.users.Create(&u)
	if err != nil {
		return response.InternalError(c, err.Error())
	}

	if tokenValue != "" {
		if err := h.mail.SendVerificationEmail(created.Email, created.FirstName, tokenValue); err != nil {
			log.Printf("Failed to send verification email to %s: %v", created.Email, err)
		}
	}

	return response.Created(c, created.Public(), "Registration successful")
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var body loginRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if fields := validator.Check(&body); fields != nil {
		return response.ValidationError(c, fields)
	}

	u, err := h.users.FindByEmailWithSensitiveColumns(body.Email)
	if err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	// Provider-only accounts carry no password hash and cannot log in with
	// one.
	if u.Password == nil || !utils.CheckPasswordHash(body.Password, *u.Password) {
		return response.Unauthorized(c, "Invalid email or password")
	}

	accessToken, err := utils.GenerateJWT(u.ID, u.Role)
	if err != nil {
		return response.InternalError(c, "Failed to generate token")
	}

	if err := h.users.TouchLastLogin(u.ID); err != nil {
		log.Printf("Failed to update last login for user %d: %v", u.ID, err)
	}

	return response.Success(c, fiber.Map{
		"access_token": accessToken,
		"expires_in":   900,
		"user":         u.Public(),
	}, "Login successful")
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var body verifyEmailRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if fields := validator.Check(&body); fields != nil {
		return response.ValidationError(c, fields)
	}

	t, err := h.tokens.FindValid(body.Token, models.TokenEmailVerification)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.BadRequest(c, "Invalid or expired token", nil)
		}
		return response.InternalError(c, err.Error())
	}

	if err := h.users.VerifyEmail(t.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}

	if err := h.tokens.Consume(t); err != nil {
		return response.InternalError(c, err.Error())
	}

	return response.Success(c, nil, "Email verified")
}
