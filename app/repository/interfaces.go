package repository

import (
	"github.com/ManuelReschke/BlockFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	SaveSettings(settings *models.UserSettings) error
	TouchAPIKeyUsage(settingsID uint) error
	DisableTrial(userID uint) error
	RestoreTrial(userID uint) error
}

// WorkspaceRepository defines the interface for workspace operations
type WorkspaceRepository interface {
	Create(workspace *models.Workspace) error
	GetByID(id uint) (*models.Workspace, error)
	GetByIDForUser(userID, id uint) (*models.Workspace, error)
	GetByNameForUser(userID uint, name string) (*models.Workspace, error)
	ListWithExplorer() ([]models.Workspace, error)
	GetHealthCheck(workspaceID uint) (*models.RPCHealthCheck, error)
	SaveHealthCheck(check *models.RPCHealthCheck) error
}

// ExplorerRepository defines the interface for explorer operations. Getters
// preload workspace, health check, domains and the live subscription with its plan.
type ExplorerRepository interface {
	Create(explorer *models.Explorer) error
	GetByID(id uint) (*models.Explorer, error)
	GetByIDForUser(userID, id uint) (*models.Explorer, error)
	GetBySlug(slug string) (*models.Explorer, error)
	GetByDomain(domain string) (*models.Explorer, error)
	GetByWorkspaceID(workspaceID uint) (*models.Explorer, error)
	ListByUser(userID uint) ([]models.Explorer, error)
	ListIDs() ([]uint, error)
	SlugExists(slug string) (bool, error)
	LockForUpdate(id uint) error
	UpdateFields(id uint, fields map[string]interface{}) error
	SetShouldSync(id uint, shouldSync bool) error
	Delete(id uint) error
	CreateDomain(domain *models.ExplorerDomain) error
	DomainExists(domain string) (bool, error)
	DeleteDomain(explorerID, domainID uint) (int64, error)
}

// PlanRepository provides read access to billing plans
type PlanRepository interface {
	GetBySlug(slug string) (*models.StripePlan, error)
	GetByPriceID(priceID string) (*models.StripePlan, error)
	ListPublic() ([]models.StripePlan, error)
}

// SubscriptionRepository defines the interface for explorer subscription operations
type SubscriptionRepository interface {
	Create(sub *models.ExplorerSubscription) error
	GetByExplorerID(explorerID uint) (*models.ExplorerSubscription, error)
	GetByStripeID(stripeID string) (*models.ExplorerSubscription, error)
	UpdateBilling(sub *models.ExplorerSubscription) error
	MarkPendingCancelation(id uint) error
	RevertCancelation(id uint) error
	Delete(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Workspace    WorkspaceRepository
	Explorer     ExplorerRepository
	Plan         PlanRepository
	Subscription SubscriptionRepository

	db *gorm.DB
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Workspace:    NewWorkspaceRepository(db),
		Explorer:     NewExplorerRepository(db),
		Plan:         NewPlanRepository(db),
		Subscription: NewSubscriptionRepository(db),
		db:           db,
	}
}

// Transaction runs fn with repositories bound to a single database
// transaction. Repositories assembled without a database (tests) run fn
// directly against themselves.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
