package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	icuser "github.com/ManuelReschke/BlockFox/internal/pkg/usercontext"
)

// InternalSecretHeader carries the shared secret of platform-internal callers.
const InternalSecretHeader = "X-Internal-Secret"

// RequireAPIAuth ensures an authenticated caller and returns JSON 401 otherwise.
func RequireAPIAuth(c *fiber.Ctx) error {
	if icuser.User(c) == nil {
		return deny(c, fiber.StatusUnauthorized, "unauthorized", "login required")
	}
	return c.Next()
}

// InternalSecretMiddleware guards endpoints called by the sync processes and
// operators. With an empty secret the endpoints are closed.
func InternalSecretMiddleware(secret string) fiber.Handler {
	if secret == "" {
		log.Warn("[Auth] INTERNAL_API_SECRET is not set, internal endpoints are disabled")
	}
	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(c.Get(InternalSecretHeader))
		if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return deny(c, fiber.StatusUnauthorized, "unauthorized", "Invalid internal secret")
		}
		c.Locals(icuser.KeyInternal, true)
		return c.Next()
	}
}
