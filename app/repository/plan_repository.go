package repository

import (
	"github.com/ManuelReschke/BlockFox/app/models"
	"gorm.io/gorm"
)

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetBySlug(slug string) (*models.StripePlan, error) {
	var p models.StripePlan
	if err := r.db.Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) GetByPriceID(priceID string) (*models.StripePlan, error) {
	var p models.StripePlan
	if err := r.db.Where("stripe_price_id = ? AND stripe_price_id <> ''", priceID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepository) ListPublic() ([]models.StripePlan, error) {
	var plans []models.StripePlan
	err := r.db.Where("public = ?", true).Order("price ASC, id ASC").Find(&plans).Error
	return plans, err
}
