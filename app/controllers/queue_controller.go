package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
)

// HandleQueueStats reports queue sizes and job counters.
func (a *API) HandleQueueStats(c *fiber.Ctx) error {
	const op = "queue.Stats"
	ctx := c.UserContext()
	queued, err := a.Queue.GetQueueSize(ctx)
	if err != nil {
		return respondError(c, apperr.Internal(op, err))
	}
	processing, err := a.Queue.GetProcessingSize(ctx)
	if err != nil {
		return respondError(c, apperr.Internal(op, err))
	}
	stats, err := a.Queue.GetJobStats(ctx)
	if err != nil {
		return respondError(c, apperr.Internal(op, err))
	}
	return c.JSON(fiber.Map{
		"queued":     queued,
		"processing": processing,
		"jobs":       stats,
	})
}

type usageRequest struct {
	Transactions int64 `json:"transactions"`
}

// HandleRecordUsage is called by sync processes with the number of
// transactions they ingested since the last call.
func (a *API) HandleRecordUsage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in usageRequest
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	if err := a.Explorers.RecordUsage(c.UserContext(), id, in.Transactions); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// HandleRefreshSync schedules a sync convergence for every explorer.
func (a *API) HandleRefreshSync(c *fiber.Ctx) error {
	n, err := a.Explorers.RefreshAll(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"scheduled": n})
}
