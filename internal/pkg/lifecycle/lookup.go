package lifecycle

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/entitlements"
)

// PublicLookup resolves the explorer served on a host. The dashboard host
// resolves to nothing without failing. Slug hosts are tried before custom
// domains, and a custom domain only counts when the plan includes it.
func (s *Service) PublicLookup(_ context.Context, host string) (*entitlements.PublicExplorer, error) {
	const op = "explorer.PublicLookup"
	domain := normalizeHost(host)
	if domain == "" {
		return nil, apperr.InvalidInput(op, "Missing domain.")
	}
	if domain == s.cfg.AppDomain() {
		return nil, nil
	}

	var explorer *models.Explorer
	if slug, ok := s.cfg.SlugFromHost(domain); ok {
		e, err := s.repos.Explorer.GetBySlug(slug)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal(op, err)
		}
		explorer = e
	}

	if explorer == nil {
		e, err := s.repos.Explorer.GetByDomain(domain)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Internal(op, err)
		}
		if e != nil && entitlements.ExplorerAllows(e, entitlements.FeatureCustomDomain) {
			explorer = e
		}
	}

	if explorer == nil {
		return nil, apperr.NotFound(op, "Couldn't find explorer.")
	}
	if !explorer.HasSubscription() {
		return nil, apperr.Inactive(op, "This explorer is not active.")
	}
	return entitlements.PublicView(explorer), nil
}
