// Package plans serves billing plans from a short-lived in-process cache.
package plans

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
)

const (
	defaultExpiration = 5 * time.Minute
	cleanupInterval   = 10 * time.Minute
	publicListKey     = "public"
)

type Catalog struct {
	repo  repository.PlanRepository
	cache *gocache.Cache
}

func NewCatalog(repo repository.PlanRepository) *Catalog {
	return &Catalog{repo: repo, cache: gocache.New(defaultExpiration, cleanupInterval)}
}

// BySlug returns the plan with the slug, public or not.
func (c *Catalog) BySlug(slug string) (*models.StripePlan, error) {
	key := "slug:" + slug
	if v, ok := c.cache.Get(key); ok {
		return v.(*models.StripePlan), nil
	}
	p, err := c.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, p)
	return p, nil
}

// PublicBySlug returns the plan only when it is offered publicly. The second
// return value is false for unknown and non-public plans.
func (c *Catalog) PublicBySlug(slug string) (*models.StripePlan, bool, error) {
	p, err := c.BySlug(slug)
	if err != nil {
		return nil, false, err
	}
	if !p.Public {
		return nil, false, nil
	}
	return p, true, nil
}

func (c *Catalog) ByPriceID(priceID string) (*models.StripePlan, error) {
	key := "price:" + priceID
	if v, ok := c.cache.Get(key); ok {
		return v.(*models.StripePlan), nil
	}
	p, err := c.repo.GetByPriceID(priceID)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, p)
	return p, nil
}

func (c *Catalog) Public() ([]models.StripePlan, error) {
	if v, ok := c.cache.Get(publicListKey); ok {
		return v.([]models.StripePlan), nil
	}
	list, err := c.repo.ListPublic()
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(publicListKey, list)
	return list, nil
}

// Flush drops every cached plan.
func (c *Catalog) Flush() {
	c.cache.Flush()
}
