package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/usercontext"
)

const (
	// keyCacheTTL is how long a resolved key is trusted without a lookup,
	// which is also how long a revoked key keeps working.
	keyCacheTTL   = 30 * time.Second
	touchInterval = time.Minute
)

type keyOwner struct {
	user       *models.User
	settingsID uint
}

// KeyAuth authenticates API keys sent as X-API-Key or as a bearer token.
type KeyAuth struct {
	users   repository.UserRepository
	owners  *gocache.Cache
	touched *gocache.Cache
}

func NewKeyAuth(users repository.UserRepository) *KeyAuth {
	return &KeyAuth{
		users:   users,
		owners:  gocache.New(keyCacheTTL, 2*keyCacheTTL),
		touched: gocache.New(touchInterval, 2*touchInterval),
	}
}

// APIKeyAuthMiddleware is a KeyAuth handler with its own caches.
func APIKeyAuthMiddleware(users repository.UserRepository) fiber.Handler {
	return NewKeyAuth(users).Handler()
}

func (a *KeyAuth) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := apiKeyFromRequest(c)
		if apiKey == "" {
			return deny(c, fiber.StatusUnauthorized, "unauthorized", "Missing API key")
		}
		hash := models.HashAPIKey(apiKey)

		owner, err := a.resolve(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return deny(c, fiber.StatusUnauthorized, "unauthorized", "Invalid API key")
			}
			log.Errorf("[Auth] API key lookup failed: %v", err)
			return deny(c, fiber.StatusInternalServerError, "internal_server_error", "API key verification failed")
		}
		if owner.user.Status != models.STATUS_ACTIVE {
			return deny(c, fiber.StatusForbidden, "forbidden", "User inactive")
		}

		a.touch(hash, owner)
		usercontext.Set(c, owner.user)
		return c.Next()
	}
}

func (a *KeyAuth) resolve(hash string) (*keyOwner, error) {
	if cached, ok := a.owners.Get(hash); ok {
		return cached.(*keyOwner), nil
	}
	user, settings, err := a.users.GetByAPIKeyHash(hash)
	if err != nil {
		return nil, err
	}
	owner := &keyOwner{user: user, settingsID: settings.ID}
	a.owners.SetDefault(hash, owner)
	return owner, nil
}

// touch writes the last-used timestamp at most once per touchInterval.
func (a *KeyAuth) touch(hash string, owner *keyOwner) {
	if err := a.touched.Add(hash, struct{}{}, gocache.DefaultExpiration); err != nil {
		return
	}
	if err := a.users.TouchAPIKeyUsage(owner.settingsID); err != nil {
		log.Warnf("[Auth] Failed to update API key usage for user %d: %v", owner.user.ID, err)
	}
}

func apiKeyFromRequest(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-API-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func deny(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": kind, "message": message})
}
