package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BlockFox/app/models"
)

// UserContext represents the authenticated caller of a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// Set stores the authenticated user on the request.
func Set(c *fiber.Ctx, user *models.User) {
	c.Locals(KeyUserContext, UserContext{
		UserID:     user.ID,
		Username:   user.Name,
		IsLoggedIn: true,
		IsAdmin:    user.Role == models.ROLE_ADMIN,
	})
	c.Locals(KeyUser, user)
	c.Locals(KeyUserID, user.ID)
	c.Locals(KeyFromProtected, true)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// User returns the authenticated user, or nil for anonymous requests.
func User(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(KeyUser).(*models.User)
	return u
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
