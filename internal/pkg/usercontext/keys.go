package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyUser          = "user"
	KeyUserID        = "user_id"
	KeyFromProtected = "from_protected"
	KeyInternal      = "internal_caller"
)
