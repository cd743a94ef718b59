package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/assets"
	"github.com/ManuelReschke/BlockFox/internal/pkg/entitlements"
)

// HandleUploadBrandingAsset takes a multipart upload with a "kind" (logo or
// favicon) and a "file", stores the resized image and links it to the
// explorer's branding.
func (a *API) HandleUploadBrandingAsset(c *fiber.Ctx) error {
	const op = "explorer.UploadBrandingAsset"
	user, id, err := ownerAndID(c)
	if err != nil {
		return respondError(c, err)
	}
	if a.Assets == nil {
		return respondError(c, apperr.NotFound(op, "Asset uploads are not enabled."))
	}

	kind, ok := assets.ParseKind(c.FormValue("kind"))
	if !ok {
		return respondError(c, apperr.InvalidInput(op, "Kind must be logo or favicon."))
	}
	file, err := c.FormFile("file")
	if err != nil {
		return respondError(c, apperr.InvalidInput(op, "Missing file."))
	}
	if file.Size > assets.MaxUploadBytes {
		return respondError(c, apperr.InvalidInput(op, "Image is too large."))
	}

	explorer, err := a.Explorers.Get(c.UserContext(), user, id)
	if err != nil {
		return respondError(c, err)
	}
	if !entitlements.ExplorerAllows(explorer, entitlements.FeatureBranding) {
		return respondError(c, apperr.Forbidden(op, "Upgrade your plan to customise branding."))
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, apperr.Internal(op, err))
	}
	defer src.Close()

	url, err := a.Assets.Upload(c.UserContext(), explorer.ID, kind, src)
	if err != nil {
		return respondError(c, err)
	}
	updated, err := a.Explorers.SetBrandingAsset(c.UserContext(), user, explorer.ID, string(kind), url)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(updated)
}
