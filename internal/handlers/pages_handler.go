package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/thetowsif/thenewspage/internal/middleware"
)

// PagesHandler serves the static public pages.
type PagesHandler struct {
	store *session.Store
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(store *session.Store) *PagesHandler {
	return &PagesHandler{
		store: store,
	}
}

// RegisterRoutes registers the page routes with the Fiber app.
func (h *PagesHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleHome)
}

// HandleHome renders the homepage.
func (h *PagesHandler) HandleHome(c *fiber.Ctx) error {
	data := fiber.Map{}
	if sess, err := h.store.Get(c); err == nil {
		if username, ok := sess.Get(middleware.SessionUsernameKey).(string); ok {
			data["Username"] = username
		}
	}
	return render(c, "home", data)
}
