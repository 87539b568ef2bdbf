package user

import (
	"errors"
	"time"

	"identityapi/internal/models"
	"identityapi/internal/response"
	"identityapi/internal/utils"
	"identityapi/internal/validator"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) List(c *fiber.Ctx) error {
	users, err := h.repo.GetAll()
	if err != nil {
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, users, "All users")
}

func (h *Handler) Me(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	u, err := h.repo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, u, "Logged in user")
}

func (h *Handler) GetByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	u, err := h.repo.FindByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, u, "User by id")
}

func (h *Handler) GetByEmail(c *fiber.Ctx) error {
	email := c.Params("email")

	u, err := h.repo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, u, "User by email")
}

func (h *Handler) GetByUsername(c *fiber.Ctx) error {
	username := c.Params("username")

	u, err := h.repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, u, "User by username")
}

type createUserRequest struct {
	Username        string     `json:"username" validate:"required,min=3,max=100"`
	Email           string     `json:"email" validate:"required,email,max=100"`
	Password        *string    `json:"password" validate:"omitempty,min=8,max=72"`
	FirstName       string     `json:"first_name" validate:"max=100"`
	MiddleName      string     `json:"middle_name" validate:"max=100"`
	LastName        string     `json:"last_name" validate:"max=100"`
	Phone           string     `json:"phone" validate:"max=30"`
	Gender          string     `json:"gender" validate:"omitempty,oneof=male female other"`
	Role            string     `json:"role" validate:"omitempty,oneof=user admin"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
}

// Create is the admin variant of registration: it accepts the full attribute
// set, including a pre-verified email and an explicit role.
func (h *Handler) Create(c *fiber.Ctx) error {
	var body createUserRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if fields := validator.Check(&body); fields != nil {
		return response.ValidationError(c, fields)
	}

	if _, err := h.repo.FindByEmailWithSensitiveColumns(body.Email); err == nil {
		return response.Conflict(c, "Email already registered")
	}
	if _, err := h.repo.FindByUsername(body.Username); err == nil {
		return response.Conflict(c, "Username already taken")
	}

	role := body.Role
	if role == "" {
		role = models.RoleUser
	}

	u := models.User{
		Username:        body.Username,
		Email:           body.Email,
		Password:        body.Password,
		FirstName:       body.FirstName,
		MiddleName:      body.MiddleName,
		LastName:        body.LastName,
		Phone:           body.Phone,
		Gender:          body.Gender,
		Role:            role,
		DateOfBirth:     body.DateOfBirth,
		EmailVerifiedAt: body.EmailVerifiedAt,
	}

	created, _, err := h.repo.Create(&u)
	if err != nil {
		return response.InternalError(c, err.Error())
	}

	return response.Created(c, created.Public(), "User created")
}

func (h *Handler) SoftDelete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	currentUserID := c.Locals("user_id").(uint)
	if uint(id) == currentUserID {
		return response.BadRequest(c, "Cannot delete your own account", nil)
	}

	if err := h.repo.SoftDelete(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, nil, "User deleted")
}

func (h *Handler) Restore(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID", nil)
	}

	if err := h.repo.RestoreSoftDelete(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}

	u, err := h.repo.FindByID(uint(id))
	if err != nil {
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, u, "User restored")
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *Handler) UpdatePassword(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	var body updatePasswordRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body", err.Error())
	}

	if fields := validator.Check(&body); fields != nil {
		return response.ValidationError(c, fields)
	}

	u, err := h.repo.FindByIDWithSensitiveColumns(userID)
	if err != nil {
		return response.NotFound(c, "User")
	}

	if u.Password == nil || !utils.CheckPasswordHash(body.CurrentPassword, *u.Password) {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	if err := h.repo.UpdatePassword(userID, body.NewPassword); err != nil {
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, nil, "Password updated")
}

func (h *Handler) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	file, err := c.FormFile("avatar")
	if err != nil {
		return response.BadRequest(c, "Avatar file is required", nil)
	}

	url, err := utils.UploadAvatar(file)
	if err != nil {
		return response.InternalError(c, err.Error())
	}

	if err := h.repo.UpdateAvatar(userID, url); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User")
		}
		return response.InternalError(c, err.Error())
	}

	return response.Success(c, fiber.Map{"avatar_url": url}, "Avatar updated")
}
