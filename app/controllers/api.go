package controllers

import (
	"context"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
	"github.com/ManuelReschke/BlockFox/internal/pkg/assets"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
	"github.com/ManuelReschke/BlockFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BlockFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/BlockFox/internal/pkg/lifecycle"
	"github.com/ManuelReschke/BlockFox/internal/pkg/metrics"
	"github.com/ManuelReschke/BlockFox/internal/pkg/usercontext"
)

// ExplorerService is the explorer lifecycle as used by the handlers.
type ExplorerService interface {
	Create(ctx context.Context, user *models.User, in lifecycle.CreateInput) (*models.Explorer, error)
	Get(ctx context.Context, user *models.User, explorerID uint) (*models.Explorer, error)
	List(ctx context.Context, user *models.User) ([]models.Explorer, error)
	Delete(ctx context.Context, user *models.User, explorerID uint) error
	UpdateSettings(ctx context.Context, user *models.User, explorerID uint, in lifecycle.SettingsInput) (*models.Explorer, error)
	UpdateBranding(ctx context.Context, user *models.User, explorerID uint, branding models.ExplorerBranding) (*models.Explorer, error)
	SetBrandingAsset(ctx context.Context, user *models.User, explorerID uint, kind, url string) (*models.Explorer, error)
	AddDomain(ctx context.Context, user *models.User, explorerID uint, domain string) (*models.ExplorerDomain, error)
	RemoveDomain(ctx context.Context, user *models.User, explorerID, domainID uint) error
	StartSync(ctx context.Context, user *models.User, explorerID uint) error
	StopSync(ctx context.Context, user *models.User, explorerID uint) error
	SyncStatus(ctx context.Context, user *models.User, explorerID uint) (string, error)
	PublicLookup(ctx context.Context, host string) (*entitlements.PublicExplorer, error)
	RefreshAll(ctx context.Context) (int, error)
	RecordUsage(ctx context.Context, explorerID uint, transactions int64) error
}

// SubscriptionService covers the subscription endpoints and webhook reconciliation.
type SubscriptionService interface {
	StartTrial(ctx context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error)
	StartSubscription(ctx context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error)
	ChangeSubscription(ctx context.Context, user *models.User, explorerID uint, planSlug string) (*models.ExplorerSubscription, error)
	CancelSubscription(ctx context.Context, user *models.User, explorerID uint) (*models.ExplorerSubscription, error)
	StartCryptoSubscription(ctx context.Context, user *models.User, explorerID uint, planSlug string) error
	Reconcile(ctx context.Context, ev *billing.WebhookEvent) error
}

type PlanLister interface {
	Public() ([]models.StripePlan, error)
}

type AssetUploader interface {
	Upload(ctx context.Context, explorerID uint, kind assets.Kind, r io.Reader) (string, error)
}

// QueueStats reads the job queue counters.
type QueueStats interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

// WebhookStore journals Stripe deliveries.
type WebhookStore interface {
	Record(ctx context.Context, in billing.JournalEntry) (bool, *models.WebhookEvent, error)
	Finish(ctx context.Context, id uint, err error) error
	Pending(ctx context.Context, limit int) ([]models.WebhookEvent, error)
}

type WebhookParser interface {
	ParseWebhook(payload []byte, signatureHeader string) (*billing.WebhookEvent, error)
	DecodeEvent(payload []byte) (*billing.WebhookEvent, error)
}

// API bundles the services behind the HTTP handlers.
type API struct {
	Explorers     ExplorerService
	Subscriptions SubscriptionService
	Plans         PlanLister
	Assets        AssetUploader
	Queue         QueueStats
	Webhooks      WebhookStore
	Billing       WebhookParser
	Validator     *validator.Validate
}

func (a *API) validate() *validator.Validate {
	if a.Validator == nil {
		a.Validator = validator.New()
	}
	return a.Validator
}

// respondError writes the JSON error shape for err, counts it and logs it
// with the failing operation. Client errors are logged as warnings.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	metrics.HTTPErrors.WithLabelValues(string(kind)).Inc()
	op := apperr.OpOf(err)
	if op == "" {
		op = "unknown"
	}
	if kind == apperr.KindInternal {
		log.Errorf("[API] %s %s failed in %s: %v", c.Method(), c.Path(), op, err)
	} else {
		log.Warnf("[API] %s %s rejected by %s (%s): %v", c.Method(), c.Path(), op, kind, err)
	}
	return c.Status(apperr.HTTPStatus(kind)).JSON(fiber.Map{
		"error":   string(kind),
		"message": apperr.MessageOf(err),
	})
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidInput("api.param", "Invalid "+name+".")
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return apperr.InvalidInput("api.body", "Invalid request body.")
	}
	return nil
}

// currentUser is the caller authenticated by the API key middleware.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	if u := usercontext.User(c); u != nil {
		return u, nil
	}
	return nil, apperr.New(apperr.KindForbidden, "api.auth", "Missing or invalid authentication.")
}
