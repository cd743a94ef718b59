package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/lifecycle"
)

// HandleListExplorers returns the caller's explorers.
func (a *API) HandleListExplorers(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	explorers, err := a.Explorers.List(c.UserContext(), user)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(explorers)
}

// HandleCreateExplorer creates an explorer. With ?startSubscription=true the
// plan named in the body is subscribed right away.
func (a *API) HandleCreateExplorer(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var in lifecycle.CreateInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	in.StartSubscription = c.QueryBool("startSubscription", false)

	explorer, err := a.Explorers.Create(c.UserContext(), user, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(explorer)
}

func (a *API) HandleGetExplorer(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	explorer, err := a.Explorers.Get(c.UserContext(), user, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(explorer)
}

func (a *API) HandleDeleteExplorer(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := a.Explorers.Delete(c.UserContext(), user, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleUpdateSettings applies a partial settings update.
func (a *API) HandleUpdateSettings(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	var in lifecycle.SettingsInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	explorer, err := a.Explorers.UpdateSettings(c.UserContext(), user, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(explorer)
}

func (a *API) HandleUpdateBranding(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	var branding models.ExplorerBranding
	if err := parseBody(c, &branding); err != nil {
		return respondError(c, err)
	}
	explorer, err := a.Explorers.UpdateBranding(c.UserContext(), user, id, branding)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(explorer)
}

type domainRequest struct {
	Domain string `json:"domain"`
}

func (a *API) HandleAddDomain(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	var in domainRequest
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	domain, err := a.Explorers.AddDomain(c.UserContext(), user, id, in.Domain)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(domain)
}

func (a *API) HandleRemoveDomain(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	domainID, err := paramID(c, "domainId")
	if err != nil {
		return respondError(c, err)
	}
	if err := a.Explorers.RemoveDomain(c.UserContext(), user, id, domainID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *API) HandleStartSync(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := a.Explorers.StartSync(c.UserContext(), user, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sync requested."})
}

func (a *API) HandleStopSync(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := a.Explorers.StopSync(c.UserContext(), user, id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sync stop requested."})
}

func (a *API) HandleSyncStatus(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	status, err := a.Explorers.SyncStatus(c.UserContext(), user, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// HandleSearchExplorer is the unauthenticated lookup used by explorer
// frontends to find the explorer served on their host.
func (a *API) HandleSearchExplorer(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		return respondError(c, apperr.InvalidInput("explorer.PublicLookup", "Missing domain."))
	}
	explorer, err := a.Explorers.PublicLookup(c.UserContext(), domain)
	if err != nil {
		return respondError(c, err)
	}
	if explorer == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(explorer)
}

func ownerAndID(c *fiber.Ctx) (*models.User, uint, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, 0, err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return nil, 0, err
	}
	return user, id, nil
}
