// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
)

// Set bundles one mock per repository.
type Set struct {
	User         *MockUserRepository
	Workspace    *MockWorkspaceRepository
	Explorer     *MockExplorerRepository
	Plan         *MockPlanRepository
	Subscription *MockSubscriptionRepository
}

// NewSet returns fresh mocks and the Repositories that wrap them.
func NewSet() (*Set, *repository.Repositories) {
	s := &Set{
		User:         new(MockUserRepository),
		Workspace:    new(MockWorkspaceRepository),
		Explorer:     new(MockExplorerRepository),
		Plan:         new(MockPlanRepository),
		Subscription: new(MockSubscriptionRepository),
	}
	return s, &repository.Repositories{
		User:         s.User,
		Workspace:    s.Workspace,
		Explorer:     s.Explorer,
		Plan:         s.Plan,
		Subscription: s.Subscription,
	}
}

// AssertExpectations asserts every mock of the set.
func (s *Set) AssertExpectations(t mock.TestingT) {
	s.User.AssertExpectations(t)
	s.Workspace.AssertExpectations(t)
	s.Explorer.AssertExpectations(t)
	s.Plan.AssertExpectations(t)
	s.Subscription.AssertExpectations(t)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	return m.Called(user).Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	args := m.Called(hash)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*models.UserSettings), args.Error(2)
}

func (m *MockUserRepository) SaveSettings(settings *models.UserSettings) error {
	return m.Called(settings).Error(0)
}

func (m *MockUserRepository) TouchAPIKeyUsage(settingsID uint) error {
	return m.Called(settingsID).Error(0)
}

func (m *MockUserRepository) DisableTrial(userID uint) error {
	return m.Called(userID).Error(0)
}

func (m *MockUserRepository) RestoreTrial(userID uint) error {
	return m.Called(userID).Error(0)
}

type MockWorkspaceRepository struct {
	mock.Mock
}

func (m *MockWorkspaceRepository) Create(workspace *models.Workspace) error {
	return m.Called(workspace).Error(0)
}

func (m *MockWorkspaceRepository) GetByID(id uint) (*models.Workspace, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetByIDForUser(userID, id uint) (*models.Workspace, error) {
	args := m.Called(userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetByNameForUser(userID uint, name string) (*models.Workspace, error) {
	args := m.Called(userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) ListWithExplorer() ([]models.Workspace, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepository) GetHealthCheck(workspaceID uint) (*models.RPCHealthCheck, error) {
	args := m.Called(workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RPCHealthCheck), args.Error(1)
}

func (m *MockWorkspaceRepository) SaveHealthCheck(check *models.RPCHealthCheck) error {
	return m.Called(check).Error(0)
}

type MockExplorerRepository struct {
	mock.Mock
}

func (m *MockExplorerRepository) Create(explorer *models.Explorer) error {
	return m.Called(explorer).Error(0)
}

func (m *MockExplorerRepository) GetByID(id uint) (*models.Explorer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explorer), args.Error(1)
}

func (m *MockExplorerRepository) GetByIDForUser(userID, id uint) (*models.Explorer, error) {
	args := m.Called(userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explorer), args.Error(1)
}

func (m *MockExplorerRepository) GetBySlug(slug string) (*models.Explorer, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explorer), args.Error(1)
}

func (m *MockExplorerRepository) GetByDomain(domain string) (*models.Explorer, error) {
	args := m.Called(domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explorer), args.Error(1)
}

func (m *MockExplorerRepository) GetByWorkspaceID(workspaceID uint) (*models.Explorer, error) {
	args := m.Called(workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Explorer), args.Error(1)
}

func (m *MockExplorerRepository) ListByUser(userID uint) ([]models.Explorer, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Explorer), args.Error(1)
}

func (m *MockExplorerRepository) ListIDs() ([]uint, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockExplorerRepository) SlugExists(slug string) (bool, error) {
	args := m.Called(slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockExplorerRepository) LockForUpdate(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockExplorerRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return m.Called(id, fields).Error(0)
}

func (m *MockExplorerRepository) SetShouldSync(id uint, shouldSync bool) error {
	return m.Called(id, shouldSync).Error(0)
}

func (m *MockExplorerRepository) Delete(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockExplorerRepository) CreateDomain(domain *models.ExplorerDomain) error {
	return m.Called(domain).Error(0)
}

func (m *MockExplorerRepository) DomainExists(domain string) (bool, error) {
	args := m.Called(domain)
	return args.Bool(0), args.Error(1)
}

func (m *MockExplorerRepository) DeleteDomain(explorerID, domainID uint) (int64, error) {
	args := m.Called(explorerID, domainID)
	return args.Get(0).(int64), args.Error(1)
}

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) GetBySlug(slug string) (*models.StripePlan, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StripePlan), args.Error(1)
}

func (m *MockPlanRepository) GetByPriceID(priceID string) (*models.StripePlan, error) {
	args := m.Called(priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StripePlan), args.Error(1)
}

func (m *MockPlanRepository) ListPublic() ([]models.StripePlan, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StripePlan), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(sub *models.ExplorerSubscription) error {
	return m.Called(sub).Error(0)
}

func (m *MockSubscriptionRepository) GetByExplorerID(explorerID uint) (*models.ExplorerSubscription, error) {
	args := m.Called(explorerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExplorerSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByStripeID(stripeID string) (*models.ExplorerSubscription, error) {
	args := m.Called(stripeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExplorerSubscription), args.Error(1)
}

func (m *MockSubscriptionRepository) UpdateBilling(sub *models.ExplorerSubscription) error {
	return m.Called(sub).Error(0)
}

func (m *MockSubscriptionRepository) MarkPendingCancelation(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockSubscriptionRepository) RevertCancelation(id uint) error {
	return m.Called(id).Error(0)
}

func (m *MockSubscriptionRepository) Delete(id uint) error {
	return m.Called(id).Error(0)
}
