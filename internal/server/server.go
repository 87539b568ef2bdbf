package server

import (
	"identityapi/internal/auth"
	"identityapi/internal/config"
	"identityapi/internal/mailer"
	"identityapi/internal/provider"
	"identityapi/internal/token"
	"identityapi/internal/user"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func New(db *gorm.DB, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Static("/uploads", "./uploads", fiber.Static{
		Compress:  true,
		ByteRange: true,
		Browse:    false,
		MaxAge:    3600,
	})

	users := user.NewRepository(db)
	providers := provider.NewRepository(db)
	tokens := token.NewRepository(db)
	mail := mailer.New(cfg)

	deps := &Deps{
		Users:    users,
		Auth:     auth.NewHandler(users, tokens, mail, cfg),
		User:     user.NewHandler(users),
		Provider: provider.NewHandler(providers),
	}

	SetupRoutes(app, deps)

	return app
}
