package middleware

import (
	"log"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Session keys used across handlers and middleware.
const (
	SessionUserIDKey   = "user_id"
	SessionUsernameKey = "username"
)

// LoginRequired is a Fiber middleware that requires an authenticated session.
// Unauthenticated requests are redirected to the login page with the
// originally requested path in the next parameter, so login can return the
// user to where they were headed.
func LoginRequired(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			log.Printf("Failed to load session: %v", err)
			return c.Status(fiber.StatusInternalServerError).SendString("session error")
		}

		userID, _ := sess.Get(SessionUserIDKey).(string)
		if userID == "" {
			loginURL := "/accounts/login?next=" + url.QueryEscape(c.Path())
			return c.Redirect(loginURL, fiber.StatusFound)
		}

		// Expose the session identity to subsequent handlers
		c.Locals(SessionUserIDKey, userID)
		if username, ok := sess.Get(SessionUsernameKey).(string); ok {
			c.Locals(SessionUsernameKey, username)
		}

		return c.Next()
	}
}
