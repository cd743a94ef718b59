package lifecycle

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BlockFox/internal/pkg/utils"
)

// AddDomain links a custom domain to the explorer.
func (s *Service) AddDomain(_ context.Context, user *models.User, explorerID uint, domain string) (*models.ExplorerDomain, error) {
	const op = "explorer.AddDomain"
	domain = normalizeHost(domain)
	if err := s.validate.Var(domain, "required,fqdn"); err != nil {
		return nil, apperr.InvalidInput(op, "Invalid domain.")
	}

	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	if !entitlements.ExplorerAllows(explorer, entitlements.FeatureCustomDomain) {
		return nil, apperr.Forbidden(op, "Upgrade your plan to use custom domains.")
	}
	if s.cfg.IsPlatformSubdomain(domain) {
		return nil, apperr.Conflict(op, "You can't use a "+s.cfg.RootDomain+" subdomain.")
	}
	exists, err := s.repos.Explorer.DomainExists(domain)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if exists {
		return nil, apperr.Conflict(op, "This domain is already used by an explorer.")
	}

	d := &models.ExplorerDomain{ExplorerID: explorer.ID, Domain: domain}
	if err := s.repos.Explorer.CreateDomain(d); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return d, nil
}

// RemoveDomain unlinks a custom domain.
func (s *Service) RemoveDomain(_ context.Context, user *models.User, explorerID, domainID uint) error {
	const op = "explorer.RemoveDomain"
	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return err
	}
	affected, err := s.repos.Explorer.DeleteDomain(explorer.ID, domainID)
	if err != nil {
		return apperr.Internal(op, err)
	}
	if affected == 0 {
		return apperr.NotFound(op, "Couldn't find domain.")
	}
	return nil
}

// UpdateBranding replaces the visual customisation of the explorer.
func (s *Service) UpdateBranding(_ context.Context, user *models.User, explorerID uint, branding models.ExplorerBranding) (*models.Explorer, error) {
	const op = "explorer.UpdateBranding"
	for _, link := range branding.Links {
		if err := s.validate.Struct(link); err != nil {
			return nil, apperr.InvalidInput(op, "Invalid link: "+err.Error())
		}
	}

	explorer, err := s.brandable(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	return s.saveBranding(op, explorer, branding)
}

// SetBrandingAsset stores the URL of an uploaded logo or favicon.
func (s *Service) SetBrandingAsset(_ context.Context, user *models.User, explorerID uint, kind, url string) (*models.Explorer, error) {
	const op = "explorer.SetBrandingAsset"
	explorer, err := s.brandable(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	branding := explorer.Branding.Data()
	switch kind {
	case "logo":
		branding.Logo = url
	case "favicon":
		branding.Favicon = url
	default:
		return nil, apperr.InvalidInput(op, "Unknown asset kind.")
	}
	return s.saveBranding(op, explorer, branding)
}

func (s *Service) brandable(op string, user *models.User, explorerID uint) (*models.Explorer, error) {
	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return nil, err
	}
	if !entitlements.ExplorerAllows(explorer, entitlements.FeatureBranding) {
		return nil, apperr.Forbidden(op, "Upgrade your plan to customise branding.")
	}
	return explorer, nil
}

func (s *Service) saveBranding(op string, explorer *models.Explorer, branding models.ExplorerBranding) (*models.Explorer, error) {
	value := datatypes.NewJSONType(branding)
	if err := s.repos.Explorer.UpdateFields(explorer.ID, map[string]interface{}{"branding": value}); err != nil {
		return nil, apperr.Internal(op, err)
	}
	explorer.Branding = value
	return explorer, nil
}

// SettingsInput is a partial update. Nil fields are left untouched.
type SettingsInput struct {
	Name                *string `json:"name" validate:"omitempty,min=1,max=150"`
	Workspace           *string `json:"workspace"`
	Token               *string `json:"token" validate:"omitempty,max=20"`
	TotalSupply         *string `json:"totalSupply" validate:"omitempty,numeric,max=100"`
	L1Explorer          *string `json:"l1Explorer" validate:"omitempty,url,max=255"`
	GasAnalyticsEnabled *bool   `json:"gasAnalyticsEnabled"`
}

// UpdateSettings applies a partial settings update. Changing the workspace
// resolves it by name among the user's workspaces.
func (s *Service) UpdateSettings(_ context.Context, user *models.User, explorerID uint, in SettingsInput) (*models.Explorer, error) {
	const op = "explorer.UpdateSettings"
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.InvalidInput(op, err.Error())
	}

	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return nil, err
	}

	fields := utils.Sanitize(map[string]interface{}{
		"name":                  in.Name,
		"token":                 in.Token,
		"total_supply":          in.TotalSupply,
		"l1_explorer":           in.L1Explorer,
		"gas_analytics_enabled": in.GasAnalyticsEnabled,
	})

	if in.Workspace != nil && strings.TrimSpace(*in.Workspace) != "" {
		ws, err := s.repos.Workspace.GetByNameForUser(user.ID, strings.TrimSpace(*in.Workspace))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.InvalidInput(op, "Couldn't find workspace.")
			}
			return nil, apperr.Internal(op, err)
		}
		if ws.Explorer != nil && ws.Explorer.ID != explorer.ID {
			return nil, apperr.Conflict(op, "This workspace is already used by another explorer.")
		}
		fields["workspace_id"] = ws.ID
	}

	if len(fields) == 0 {
		return explorer, nil
	}
	if err := s.repos.Explorer.UpdateFields(explorer.ID, fields); err != nil {
		return nil, apperr.Internal(op, err)
	}

	updated, err := s.repos.Explorer.GetByIDForUser(user.ID, explorer.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return updated, nil
}

func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	if i := strings.IndexAny(h, "/:"); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSuffix(h, ".")
}
