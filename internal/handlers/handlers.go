package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/thetowsif/thenewspage/internal/middleware"
)

// render wraps c.Render, adding the session identity so the layout can show
// the right navigation. Handlers behind LoginRequired get it from locals;
// public handlers pass Username themselves when they have a session at hand.
func render(c *fiber.Ctx, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["Username"]; !ok {
		if username, ok := c.Locals(middleware.SessionUsernameKey).(string); ok {
			data["Username"] = username
		}
	}
	if _, ok := data["UserID"]; !ok {
		if userID, ok := c.Locals(middleware.SessionUserIDKey).(string); ok {
			data["UserID"] = userID
		}
	}
	return c.Render(name, data)
}

// validationErrors turns validator failures into a field -> message map for
// re-rendering forms.
func validationErrors(err error) map[string]string {
	errorMessages := make(map[string]string)
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	} else {
		errorMessages["Form"] = err.Error()
	}
	return errorMessages
}

// requesterID returns the authenticated user's ID placed in locals by the
// LoginRequired middleware.
func requesterID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.SessionUserIDKey).(string)
	return id
}
