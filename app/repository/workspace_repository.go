package repository

import (
	"github.com/ManuelReschke/BlockFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type workspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new workspace repository instance
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Create(workspace *models.Workspace) error {
	return r.db.Create(workspace).Error
}

// GetByID returns a workspace with its explorer and health check loaded.
func (r *workspaceRepository) GetByID(id uint) (*models.Workspace, error) {
	var ws models.Workspace
	err := r.db.Preload("Explorer").
		Preload("RPCHealthCheck").
		First(&ws, id).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// GetByIDForUser returns a workspace owned by userID with its explorer link loaded.
func (r *workspaceRepository) GetByIDForUser(userID, id uint) (*models.Workspace, error) {
	var ws models.Workspace
	err := r.db.Preload("Explorer").
		Where("id = ? AND user_id = ?", id, userID).
		First(&ws).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepository) GetByNameForUser(userID uint, name string) (*models.Workspace, error) {
	var ws models.Workspace
	err := r.db.Preload("Explorer").
		Where("user_id = ? AND name = ?", userID, name).
		First(&ws).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// ListWithExplorer returns every workspace that backs an explorer.
func (r *workspaceRepository) ListWithExplorer() ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := r.db.
		Joins("JOIN explorers ON explorers.workspace_id = workspaces.id").
		Preload("Explorer").
		Preload("RPCHealthCheck").
		Order("workspaces.id").
		Find(&workspaces).Error
	return workspaces, err
}

func (r *workspaceRepository) GetHealthCheck(workspaceID uint) (*models.RPCHealthCheck, error) {
	var check models.RPCHealthCheck
	if err := r.db.Where("workspace_id = ?", workspaceID).First(&check).Error; err != nil {
		return nil, err
	}
	return &check, nil
}

// SaveHealthCheck upserts the health check row of a workspace.
func (r *workspaceRepository) SaveHealthCheck(check *models.RPCHealthCheck) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_reachable",
			"failed_attempts",
			"checked_at",
			"updated_at",
		}),
	}).Create(check).Error
}
