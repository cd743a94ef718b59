package repository

import (
	"github.com/ManuelReschke/BlockFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type explorerRepository struct {
	db *gorm.DB
}

// NewExplorerRepository creates a new explorer repository instance
func NewExplorerRepository(db *gorm.DB) ExplorerRepository {
	return &explorerRepository{db: db}
}

func (r *explorerRepository) withRelations() *gorm.DB {
	return r.db.
		Preload("Workspace").
		Preload("Workspace.RPCHealthCheck").
		Preload("Domains").
		Preload("Subscription").
		Preload("Subscription.StripePlan")
}

func (r *explorerRepository) Create(explorer *models.Explorer) error {
	return r.db.Create(explorer).Error
}

func (r *explorerRepository) GetByID(id uint) (*models.Explorer, error) {
	var e models.Explorer
	if err := r.withRelations().First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByIDForUser scopes the lookup to explorers owned by userID.
func (r *explorerRepository) GetByIDForUser(userID, id uint) (*models.Explorer, error) {
	var e models.Explorer
	err := r.withRelations().
		Where("explorers.id = ? AND explorers.user_id = ?", id, userID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *explorerRepository) GetBySlug(slug string) (*models.Explorer, error) {
	var e models.Explorer
	if err := r.withRelations().Where("explorers.slug = ?", slug).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *explorerRepository) GetByDomain(domain string) (*models.Explorer, error) {
	var e models.Explorer
	err := r.withRelations().
		Joins("JOIN explorer_domains ON explorer_domains.explorer_id = explorers.id").
		Where("explorer_domains.domain = ?", domain).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *explorerRepository) GetByWorkspaceID(workspaceID uint) (*models.Explorer, error) {
	var e models.Explorer
	if err := r.withRelations().Where("explorers.workspace_id = ?", workspaceID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *explorerRepository) ListByUser(userID uint) ([]models.Explorer, error) {
	var explorers []models.Explorer
	err := r.withRelations().
		Where("explorers.user_id = ?", userID).
		Order("explorers.id DESC").
		Find(&explorers).Error
	return explorers, err
}

// ListIDs returns the id of every explorer, oldest first.
func (r *explorerRepository) ListIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Explorer{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *explorerRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Explorer{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// LockForUpdate takes a row lock on the explorer for the rest of the
// surrounding transaction.
func (r *explorerRepository) LockForUpdate(id uint) error {
	var e models.Explorer
	return r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&e, id).Error
}

func (r *explorerRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Explorer{}).Where("id = ?", id).Updates(fields).Error
}

func (r *explorerRepository) SetShouldSync(id uint, shouldSync bool) error {
	return r.db.Model(&models.Explorer{}).Where("id = ?", id).Update("should_sync", shouldSync).Error
}

// Delete removes the explorer together with its domains and subscription record.
func (r *explorerRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("explorer_id = ?", id).Delete(&models.ExplorerDomain{}).Error; err != nil {
			return err
		}
		if err := tx.Where("explorer_id = ?", id).Delete(&models.ExplorerSubscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Explorer{}, id).Error
	})
}

func (r *explorerRepository) CreateDomain(domain *models.ExplorerDomain) error {
	return r.db.Create(domain).Error
}

func (r *explorerRepository) DomainExists(domain string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ExplorerDomain{}).Where("domain = ?", domain).Count(&count).Error
	return count > 0, err
}

func (r *explorerRepository) DeleteDomain(explorerID, domainID uint) (int64, error) {
	tx := r.db.Where("id = ? AND explorer_id = ?", domainID, explorerID).Delete(&models.ExplorerDomain{})
	return tx.RowsAffected, tx.Error
}
