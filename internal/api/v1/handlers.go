package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/app/controllers"
	"github.com/ManuelReschke/BlockFox/internal/pkg/middleware"
)

// GetPing handles the ping endpoint
func GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// RegisterHandlers mounts the v1 routes. The public explorer lookup and the
// ping are registered ahead of the API key guard.
func RegisterHandlers(v1 fiber.Router, api *controllers.API, auth fiber.Handler) {
	v1.Get("/ping", GetPing)
	v1.Get("/explorers/search", api.HandleSearchExplorer)

	r := v1.Group("", auth, middleware.RequireAPIAuth)
	r.Get("/plans", api.HandleListPlans)

	r.Get("/explorers", api.HandleListExplorers)
	r.Post("/explorers", api.HandleCreateExplorer)
	r.Get("/explorers/:id", api.HandleGetExplorer)
	r.Delete("/explorers/:id", api.HandleDeleteExplorer)
	r.Put("/explorers/:id/settings", api.HandleUpdateSettings)
	r.Put("/explorers/:id/branding", api.HandleUpdateBranding)
	r.Post("/explorers/:id/branding/assets", api.HandleUploadBrandingAsset)
	r.Post("/explorers/:id/domains", api.HandleAddDomain)
	r.Delete("/explorers/:id/domains/:domainId", api.HandleRemoveDomain)

	r.Post("/explorers/:id/startSync", api.HandleStartSync)
	r.Post("/explorers/:id/stopSync", api.HandleStopSync)
	r.Get("/explorers/:id/syncStatus", api.HandleSyncStatus)

	r.Post("/explorers/:id/startTrial", api.HandleStartTrial)
	r.Post("/explorers/:id/subscription", api.HandleStartSubscription)
	r.Put("/explorers/:id/subscription", api.HandleChangeSubscription)
	r.Delete("/explorers/:id/subscription", api.HandleCancelSubscription)
	r.Post("/explorers/:id/cryptoSubscription", api.HandleStartCryptoSubscription)
}

// RegisterInternalHandlers mounts the endpoints used by sync processes and
// operators. The caller guards the group.
func RegisterInternalHandlers(internal fiber.Router, api *controllers.API) {
	internal.Post("/explorers/:id/usage", api.HandleRecordUsage)
	internal.Post("/sync/refresh", api.HandleRefreshSync)
	internal.Get("/queue", api.HandleQueueStats)
	internal.Post("/webhooks/replay", api.HandleReplayWebhooks)
}
