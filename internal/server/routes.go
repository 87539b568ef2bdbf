package server

import (
	"time"

	"identityapi/internal/auth"
	"identityapi/internal/provider"
	"identityapi/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type Deps struct {
	Users    *user.Repository
	Auth     *auth.Handler
	User     *user.Handler
	Provider *provider.Handler
}

func SetupRoutes(app *fiber.App, deps *Deps) {
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS, PATCH",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Identity API is running",
		})
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/register", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
	}), deps.Auth.Register)
	authGroup.Post("/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}), deps.Auth.Login)
	authGroup.Post("/verify-email", deps.Auth.VerifyEmail)
	authGroup.Get("/google/login", deps.Auth.GoogleLogin)
	authGroup.Get("/google/callback", deps.Auth.GoogleCallback)

	userGroup := app.Group("/users")
	userGroup.Use(auth.JWTProtected())
	userGroup.Get("/me", deps.User.Me)
	userGroup.Put("/me/password", deps.User.UpdatePassword)
	userGroup.Put("/me/avatar", deps.User.UploadAvatar)
	userGroup.Get("/username/:username", deps.User.GetByUsername)

	adminOnly := auth.AdminProtected(deps.Users)
	userGroup.Get("/", adminOnly, deps.User.List)
	userGroup.Post("/", adminOnly, deps.User.Create)
	userGroup.Get("/email/:email", adminOnly, deps.User.GetByEmail)
	userGroup.Get("/:id", adminOnly, deps.User.GetByID)
	userGroup.Delete("/:id", adminOnly, deps.User.SoftDelete)
	userGroup.Post("/:id/restore", adminOnly, deps.User.Restore)

	providerGroup := app.Group("/providers")
	providerGroup.Use(auth.JWTProtected())
	providerGroup.Get("/", deps.Provider.ListMine)
	providerGroup.Put("/:id/deactivate", deps.Provider.Deactivate)
	providerGroup.Delete("/:id", deps.Provider.Delete)
}
