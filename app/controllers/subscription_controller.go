package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
)

type planRequest struct {
	Plan string `json:"plan" validate:"required,max=100"`
}

func (a *API) planFromBody(c *fiber.Ctx) (string, error) {
	var in planRequest
	if err := parseBody(c, &in); err != nil {
		return "", err
	}
	if err := a.validate().Struct(in); err != nil {
		return "", apperr.InvalidInput("subscription.plan", "Missing plan.")
	}
	return in.Plan, nil
}

func (a *API) HandleStartTrial(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	plan, err := a.planFromBody(c)
	if err != nil {
		return respondError(c, err)
	}
	sub, err := a.Subscriptions.StartTrial(c.UserContext(), user, id, plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// HandleStartSubscription subscribes an explorer without a subscription to a paid plan.
func (a *API) HandleStartSubscription(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	plan, err := a.planFromBody(c)
	if err != nil {
		return respondError(c, err)
	}
	sub, err := a.Subscriptions.StartSubscription(c.UserContext(), user, id, plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (a *API) HandleChangeSubscription(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	plan, err := a.planFromBody(c)
	if err != nil {
		return respondError(c, err)
	}
	sub, err := a.Subscriptions.ChangeSubscription(c.UserContext(), user, id, plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

func (a *API) HandleCancelSubscription(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	sub, err := a.Subscriptions.CancelSubscription(c.UserContext(), user, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// HandleStartCryptoSubscription starts an invoiced subscription for users
// allowed to pay by crypto.
func (a *API) HandleStartCryptoSubscription(c *fiber.Ctx) error {
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	plan, err := a.planFromBody(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := a.Subscriptions.StartCryptoSubscription(c.UserContext(), user, id, plan); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Subscription invoice created."})
}
