// Package lifecycle manages explorers from creation to deletion: the
// workspace they index, their sync state, domains, branding and settings.
package lifecycle

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/config"
	"github.com/ManuelReschke/BlockFox/internal/pkg/events"
	"github.com/ManuelReschke/BlockFox/internal/pkg/plans"
	"github.com/ManuelReschke/BlockFox/internal/pkg/rpc"
	"github.com/ManuelReschke/BlockFox/internal/pkg/subscription"
	"github.com/ManuelReschke/BlockFox/internal/pkg/syncstatus"
	"github.com/ManuelReschke/BlockFox/internal/pkg/utils"
)

// SyncScheduler queues sync process changes for the job workers.
type SyncScheduler interface {
	ScheduleSyncUpdate(ctx context.Context, explorerID uint) error
	ScheduleSyncDelete(ctx context.Context, explorerID uint, slug string) error
	ScheduleBulkSyncUpdate(ctx context.Context, explorerIDs []uint) error
}

// Deps bundles the collaborators of the Service.
type Deps struct {
	Repos     *repository.Repositories
	Plans     *plans.Catalog
	Subs      *subscription.Coordinator
	Prober    rpc.Prober
	Sync      SyncScheduler
	Status    *syncstatus.Resolver
	Events    events.Publisher
	Usage     UsageCounter
	Config    *config.Config
	Validator *validator.Validate
}

type Service struct {
	repos    *repository.Repositories
	plans    *plans.Catalog
	subs     *subscription.Coordinator
	prober   rpc.Prober
	sync     SyncScheduler
	status   *syncstatus.Resolver
	events   events.Publisher
	usage    UsageCounter
	cfg      *config.Config
	validate *validator.Validate
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Usage == nil {
		d.Usage = RedisUsageCounter{}
	}
	if d.Validator == nil {
		d.Validator = validator.New()
	}
	return &Service{
		repos:    d.Repos,
		plans:    d.Plans,
		subs:     d.Subs,
		prober:   d.Prober,
		sync:     d.Sync,
		status:   d.Status,
		events:   d.Events,
		usage:    d.Usage,
		cfg:      d.Config,
		validate: d.Validator,
	}
}

// CreateInput accepts one of two shapes: an existing WorkspaceID, or a fresh
// workspace described by RPCServer and Name.
type CreateInput struct {
	WorkspaceID       uint   `json:"workspaceId"`
	Name              string `json:"name" validate:"omitempty,max=150"`
	RPCServer         string `json:"rpcServer"`
	Tracing           bool   `json:"tracing"`
	PlanSlug          string `json:"planSlug"`
	StartSubscription bool   `json:"-"`
}

func (in CreateInput) attachesWorkspace() bool {
	return in.WorkspaceID > 0
}

func (in CreateInput) describesWorkspace() bool {
	return strings.TrimSpace(in.RPCServer) != "" && strings.TrimSpace(in.Name) != ""
}

// Create creates an explorer and, for a fresh workspace, the workspace too.
func (s *Service) Create(ctx context.Context, user *models.User, in CreateInput) (*models.Explorer, error) {
	const op = "explorer.Create"
	if !in.attachesWorkspace() && !in.describesWorkspace() {
		return nil, apperr.InvalidInput(op, "Provide either a workspace id or an RPC server and a name.")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.InvalidInput(op, err.Error())
	}

	var workspace *models.Workspace
	name := strings.TrimSpace(in.Name)
	rpcServer := strings.TrimSpace(in.RPCServer)
	if in.attachesWorkspace() {
		ws, err := s.repos.Workspace.GetByIDForUser(user.ID, in.WorkspaceID)
		if err != nil {
			return nil, lookupError(op, "Couldn't find workspace.", err)
		}
		if ws.Explorer != nil {
			return nil, apperr.Conflict(op, "This workspace already has an explorer.")
		}
		workspace = ws
		rpcServer = ws.RPCServer
		if name == "" {
			name = ws.Name
		}
	} else if err := s.ensureWorkspaceNameFree(op, user.ID, name); err != nil {
		return nil, err
	}

	networkID, err := rpc.FetchNetworkIDWithTimeout(ctx, s.prober, rpcServer, s.cfg.RPCProbeTimeout)
	if err != nil {
		return nil, apperr.UpstreamUnreachable(op, "Our servers can't query this RPC, please use a RPC that is reachable from the internet.", err)
	}

	attachDefault := !s.cfg.BillingEnabled() || user.CanUseDemoPlan
	if !attachDefault && in.StartSubscription {
		slug := strings.TrimSpace(in.PlanSlug)
		if slug == "" {
			return nil, apperr.InvalidInput(op, "Missing plan slug.")
		}
		if _, ok, err := s.plans.PublicBySlug(slug); err != nil || !ok {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Internal(op, err)
			}
			return nil, apperr.NotFound(op, "Couldn't find plan.")
		}
	}

	slug, err := s.uniqueSlug(name)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	explorer := &models.Explorer{
		UserID: user.ID,
		Name:   name,
		Slug:   slug,
		Token:  models.DefaultNativeToken,
	}
	if chainID, perr := strconv.ParseInt(networkID, 10, 64); perr == nil {
		explorer.ChainID = chainID
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if workspace == nil {
			workspace = &models.Workspace{
				UserID:             user.ID,
				Name:               models.DefaultWorkspaceName(name),
				RPCServer:          rpcServer,
				NetworkID:          networkID,
				Tracing:            in.Tracing,
				DataRetentionLimit: user.DefaultDataRetentionLimit,
			}
			if err := tx.Workspace.Create(workspace); err != nil {
				return err
			}
		}
		explorer.WorkspaceID = workspace.ID
		if err := tx.Explorer.Create(explorer); err != nil {
			return err
		}
		if attachDefault {
			if _, err := s.subs.AttachDefaultPlan(tx, explorer.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperr.Conflict(op, "A workspace or explorer with this name already exists.")
		case apperr.KindOf(err) != apperr.KindInternal:
			return nil, err
		}
		return nil, apperr.Internal(op, err)
	}
	log.Infof("[Explorer] Created explorer %s (id %d) for user %d", explorer.Slug, explorer.ID, user.ID)

	events.PublishSafe(ctx, s.events, events.New(events.ExplorerCreated, explorer.ID, user.ID, map[string]interface{}{"slug": explorer.Slug}))

	if !attachDefault && in.StartSubscription {
		if _, err := s.subs.StartPaid(ctx, user, explorer, in.PlanSlug); err != nil {
			log.Warnf("[Explorer] Explorer %d created but subscription failed: %v", explorer.ID, err)
			return nil, err
		}
	}

	created, err := s.repos.Explorer.GetByIDForUser(user.ID, explorer.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return created, nil
}

// ensureWorkspaceNameFree fails with a conflict when the user already has a
// workspace named like the one Create would add.
func (s *Service) ensureWorkspaceNameFree(op string, userID uint, name string) error {
	_, err := s.repos.Workspace.GetByNameForUser(userID, models.DefaultWorkspaceName(name))
	switch {
	case err == nil:
		return apperr.Conflict(op, "You already have a workspace with this name.")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return apperr.Internal(op, err)
	}
}

// uniqueSlug derives a slug from the name and appends a short random suffix
// when it is taken.
func (s *Service) uniqueSlug(name string) (string, error) {
	base := utils.Slugify(name)
	exists, err := s.repos.Explorer.SlugExists(base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}
	return base + "-" + strings.SplitN(uuid.New().String(), "-", 2)[0], nil
}

// Get returns an explorer owned by the user.
func (s *Service) Get(_ context.Context, user *models.User, explorerID uint) (*models.Explorer, error) {
	return s.owned("explorer.Get", user, explorerID)
}

// List returns the explorers of the user.
func (s *Service) List(_ context.Context, user *models.User) ([]models.Explorer, error) {
	explorers, err := s.repos.Explorer.ListByUser(user.ID)
	if err != nil {
		return nil, apperr.Internal("explorer.List", err)
	}
	return explorers, nil
}

// Delete removes the explorer with its domains and subscription record and
// schedules the removal of its sync process. Explorers with a live paid
// subscription must cancel it first.
func (s *Service) Delete(ctx context.Context, user *models.User, explorerID uint) error {
	const op = "explorer.Delete"
	explorer, err := s.owned(op, user, explorerID)
	if err != nil {
		return err
	}
	if sub := explorer.Subscription; sub.HasStripeSubscription() && !sub.IsPendingCancelation {
		return apperr.Conflict(op, "Cancel the subscription before deleting this explorer.")
	}

	if err := s.repos.Explorer.Delete(explorer.ID); err != nil {
		return apperr.Internal(op, err)
	}
	if err := s.sync.ScheduleSyncDelete(ctx, explorer.ID, explorer.Slug); err != nil {
		log.Errorf("[Explorer] Failed to schedule process removal for %s: %v", explorer.Slug, err)
	}
	log.Infof("[Explorer] Deleted explorer %s (id %d)", explorer.Slug, explorer.ID)

	events.PublishSafe(ctx, s.events, events.New(events.ExplorerDeleted, explorer.ID, user.ID, map[string]interface{}{"slug": explorer.Slug}))
	return nil
}

func (s *Service) owned(op string, user *models.User, explorerID uint) (*models.Explorer, error) {
	explorer, err := s.repos.Explorer.GetByIDForUser(user.ID, explorerID)
	if err != nil {
		return nil, lookupError(op, "Couldn't find explorer.", err)
	}
	return explorer, nil
}

func lookupError(op, message string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(op, message)
	}
	return apperr.Internal(op, err)
}
