package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router mounts a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter mounts the routers in order and answers everything they do
// not match with a JSON 404.
func InstallRouter(app *fiber.App, routers ...Router) {
	for _, r := range routers {
		r.InstallRouter(app)
	}
	app.Use(notFound)
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":   "not_found",
		"message": "Route not found.",
	})
}
