package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
)

// HandleListPlans returns the plans users can subscribe to.
func (a *API) HandleListPlans(c *fiber.Ctx) error {
	plans, err := a.Plans.Public()
	if err != nil {
		return respondError(c, apperr.Internal("plans.List", err))
	}
	return c.JSON(plans)
}
