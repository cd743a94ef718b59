package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/BlockFox/internal/api/v1"

	"github.com/ManuelReschke/BlockFox/app/controllers"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/middleware"
)

type ApiRouter struct {
	api            *controllers.API
	users          repository.UserRepository
	internalSecret string
	limiter        fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhooks/stripe", h.api.HandleStripeWebhook)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    h.limiter,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	internal := api.Group("/internal", middleware.InternalSecretMiddleware(h.internalSecret))
	apiv1.RegisterInternalHandlers(internal, h.api)

	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.api, middleware.APIKeyAuthMiddleware(h.users))
}

// NewApiRouter builds the API router. A nil storage keeps rate limit
// counters in memory.
func NewApiRouter(api *controllers.API, users repository.UserRepository, internalSecret string, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{api: api, users: users, internalSecret: internalSecret, limiter: storage}
}
