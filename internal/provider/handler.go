package provider

import (
	"errors"

	"identityapi/internal/models"
	"identityapi/internal/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListMine returns the caller's active provider links.
func (h *Handler) ListMine(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)

	providers, err := h.repo.GetActiveProviders(userID)
	if err != nil {
		return response.InternalError(c, err.Error())
	}

	public := make([]models.PublicProvider, 0, len(providers))
	for i := range providers {
		public = append(public, providers[i].Public())
	}
	return response.Success(c, public, "Active providers")
}

func (h *Handler) Deactivate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid provider ID", nil)
	}

	p, err := h.ownedProvider(c, uint(id))
	if err != nil {
		return err
	}

	if _, err := h.repo.Deactivate(p.ID); err != nil {
		return response.InternalError(c, err.Error())
	}
	return response.Success(c, nil, "Provider deactivated")
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid provider ID", nil)
	}

	p, err := h.ownedProvider(c, uint(id))
	if err != nil {
		return err
	}

	if err := h.repo.Delete(p.ID); err != nil {
		return response.InternalError(c, err.Error())
	}
	return response.NoContent(c)
}

// ownedProvider loads the row and rejects the request when it belongs to
// someone else. Returning the fiber error response as error keeps the callers
// flat.
func (h *Handler) ownedProvider(c *fiber.Ctx, id uint) (*models.Provider, error) {
	var p models.Provider
	if err := h.repo.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NotFound(c, "Provider")
		}
		return nil, response.InternalError(c, err.Error())
	}

	userID := c.Locals("user_id").(uint)
	if p.UserID != userID {
		return nil, response.Forbidden(c, "Provider belongs to another user")
	}
	return &p, nil
}
