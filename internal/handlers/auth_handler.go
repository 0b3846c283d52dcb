package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/thetowsif/thenewspage/internal/middleware"
	"github.com/thetowsif/thenewspage/internal/models"
	"github.com/thetowsif/thenewspage/internal/services"
)

// AuthHandler handles HTTP requests for the account lifecycle: signup,
// login/logout, password change, and password reset.
type AuthHandler struct {
	authService *services.AuthService
	store       *session.Store
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, store *session.Store) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		store:       store,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	accounts := router.Group("/accounts")

	accounts.Get("/signup", h.HandleSignupForm)
	accounts.Post("/signup", h.HandleSignup)
	accounts.Get("/login", h.HandleLoginForm)
	accounts.Post("/login", h.HandleLogin)
	accounts.Get("/logout", h.HandleLogout)
	accounts.Post("/logout", h.HandleLogout)

	accounts.Get("/password_reset", h.HandlePasswordResetForm)
	accounts.Post("/password_reset", h.HandlePasswordReset)
	accounts.Get("/password_reset/done", h.HandlePasswordResetDone)
	// done must be registered before the :token route
	accounts.Get("/reset/done", h.HandlePasswordResetComplete)
	accounts.Get("/reset/:token", h.HandlePasswordResetConfirmForm)
	accounts.Post("/reset/:token", h.HandlePasswordResetConfirm)

	loginRequired := middleware.LoginRequired(h.store)
	accounts.Get("/password_change", loginRequired, h.HandlePasswordChangeForm)
	accounts.Post("/password_change", loginRequired, h.HandlePasswordChange)
	accounts.Get("/password_change/done", loginRequired, h.HandlePasswordChangeDone)
}

// SignupForm represents the registration form fields.
type SignupForm struct {
	Username  string `form:"username" validate:"required,min=3,max=100"`
	Email     string `form:"email" validate:"required,email"`
	Age       string `form:"age"`
	Password1 string `form:"password1" validate:"required,min=6"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// sessionUsername returns the username of the current session, or "" when the
// request carries no authenticated session.
func (h *AuthHandler) sessionUsername(c *fiber.Ctx) string {
	sess, err := h.store.Get(c)
	if err != nil {
		return ""
	}
	if userID, ok := sess.Get(middleware.SessionUserIDKey).(string); !ok || userID == "" {
		return ""
	}
	username, _ := sess.Get(middleware.SessionUsernameKey).(string)
	return username
}

// HandleSignupForm renders the registration form. Signup is only reachable
// for unauthenticated visitors; an authenticated user gets a plain 403.
func (h *AuthHandler) HandleSignupForm(c *fiber.Ctx) error {
	if h.sessionUsername(c) != "" {
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	}
	return render(c, "registration/signup", fiber.Map{
		"Form": SignupForm{},
	})
}

// HandleSignup handles submission of the registration form. A successful
// signup creates the user and redirects to login without establishing a
// session.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	if h.sessionUsername(c) != "" {
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	}

	var form SignupForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing signup form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	errorMessages := make(map[string]string)
	if err := h.validate.Struct(form); err != nil {
		errorMessages = validationErrors(err)
	}

	// Age is optional but must be a non-negative integer when present.
	var age *uint
	if form.Age != "" {
		parsed, err := strconv.ParseUint(form.Age, 10, 32)
		if err != nil {
			errorMessages["Age"] = "Age must be a non-negative whole number"
		} else {
			v := uint(parsed)
			age = &v
		}
	}

	if len(errorMessages) == 0 {
		user := &models.User{
			Username: form.Username,
			Email:    form.Email,
			Age:      age,
			Password: form.Password1,
		}
		err := h.authService.RegisterUser(user)
		switch {
		case err == nil:
			return c.Redirect("/accounts/login", fiber.StatusFound)
		case errors.Is(err, services.ErrUsernameTaken):
			errorMessages["Username"] = "A user with that username already exists"
		default:
			log.Printf("Error registering user: %v", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Could not register user")
		}
	}

	return render(c, "registration/signup", fiber.Map{
		"Form":   form,
		"Errors": errorMessages,
	})
}

// LoginForm represents the login form fields.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
}

// HandleLoginForm renders the login form, carrying the next parameter through
// so a successful login returns the user to the page they asked for.
func (h *AuthHandler) HandleLoginForm(c *fiber.Ctx) error {
	return render(c, "registration/login", fiber.Map{
		"Form":     LoginForm{},
		"Next":     c.Query("next"),
		"Username": h.sessionUsername(c),
	})
}

// HandleLogin authenticates the submitted credentials and establishes a
// session. Bad credentials re-render the form; the message never reveals
// whether the username exists.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var form LoginForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing login form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		return render(c, "registration/login", fiber.Map{
			"Form":   form,
			"Next":   form.Next,
			"Errors": validationErrors(err),
		})
	}

	user, err := h.authService.Authenticate(form.Username, form.Password)
	if err != nil {
		return render(c, "registration/login", fiber.Map{
			"Form":   form,
			"Next":   form.Next,
			"Errors": map[string]string{"Login": "Please enter a correct username and password"},
		})
	}

	sess, err := h.store.Get(c)
	if err != nil {
		log.Printf("Failed to load session: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("session error")
	}
	sess.Set(middleware.SessionUserIDKey, user.ID)
	sess.Set(middleware.SessionUsernameKey, user.Username)
	if err := sess.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("session error")
	}

	target := form.Next
	// Only ever redirect within the site.
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		target = "/"
	}
	return c.Redirect(target, fiber.StatusFound)
}

// HandleLogout destroys the session and returns to the homepage.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Printf("Failed to destroy session: %v", err)
		}
	}
	return c.Redirect("/", fiber.StatusFound)
}

// PasswordChangeForm represents the password change form fields.
type PasswordChangeForm struct {
	OldPassword  string `form:"old_password" validate:"required"`
	NewPassword1 string `form:"new_password1" validate:"required,min=6"`
	NewPassword2 string `form:"new_password2" validate:"required,eqfield=NewPassword1"`
}

// HandlePasswordChangeForm renders the password change form.
func (h *AuthHandler) HandlePasswordChangeForm(c *fiber.Ctx) error {
	return render(c, "registration/password_change_form", nil)
}

// HandlePasswordChange verifies the old password and sets the new one.
func (h *AuthHandler) HandlePasswordChange(c *fiber.Ctx) error {
	var form PasswordChangeForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing password change form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		return render(c, "registration/password_change_form", fiber.Map{
			"Errors": validationErrors(err),
		})
	}

	err := h.authService.ChangePassword(requesterID(c), form.OldPassword, form.NewPassword1)
	switch {
	case err == nil:
		return c.Redirect("/accounts/password_change/done", fiber.StatusFound)
	case errors.Is(err, services.ErrInvalidCredentials):
		return render(c, "registration/password_change_form", fiber.Map{
			"Errors": map[string]string{"OldPassword": "Your old password was entered incorrectly"},
		})
	default:
		log.Printf("Error changing password: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Could not change password")
	}
}

// HandlePasswordChangeDone renders the password change confirmation page.
func (h *AuthHandler) HandlePasswordChangeDone(c *fiber.Ctx) error {
	return render(c, "registration/password_change_done", nil)
}

// PasswordResetRequestForm represents the reset request form fields.
type PasswordResetRequestForm struct {
	Email string `form:"email" validate:"required,email"`
}

// HandlePasswordResetForm renders the password reset request form.
func (h *AuthHandler) HandlePasswordResetForm(c *fiber.Ctx) error {
	return render(c, "registration/password_reset_form", fiber.Map{
		"Form":     PasswordResetRequestForm{},
		"Username": h.sessionUsername(c),
	})
}

// HandlePasswordReset accepts an email and, when it belongs to an account,
// queues a reset email. The response is the same either way.
func (h *AuthHandler) HandlePasswordReset(c *fiber.Ctx) error {
	var form PasswordResetRequestForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing password reset form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		return render(c, "registration/password_reset_form", fiber.Map{
			"Form":     form,
			"Errors":   validationErrors(err),
			"Username": h.sessionUsername(c),
		})
	}

	if err := h.authService.RequestPasswordReset(form.Email); err != nil {
		log.Printf("Error requesting password reset: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Could not request password reset")
	}
	return c.Redirect("/accounts/password_reset/done", fiber.StatusFound)
}

// HandlePasswordResetDone renders the "check your email" page.
func (h *AuthHandler) HandlePasswordResetDone(c *fiber.Ctx) error {
	return render(c, "registration/password_reset_done", fiber.Map{
		"Username": h.sessionUsername(c),
	})
}

// PasswordResetConfirmForm represents the new password form fields.
type PasswordResetConfirmForm struct {
	NewPassword1 string `form:"new_password1" validate:"required,min=6"`
	NewPassword2 string `form:"new_password2" validate:"required,eqfield=NewPassword1"`
}

// HandlePasswordResetConfirmForm validates the token from the reset link and
// renders the new password form. Invalid, expired, or used tokens get the
// invalid-link page.
func (h *AuthHandler) HandlePasswordResetConfirmForm(c *fiber.Ctx) error {
	token := c.Params("token")
	if _, err := h.authService.ResolveResetToken(token); err != nil {
		return render(c, "registration/password_reset_confirm", fiber.Map{
			"Invalid": true,
		})
	}
	return render(c, "registration/password_reset_confirm", fiber.Map{
		"Token": token,
	})
}

// HandlePasswordResetConfirm exchanges the token for the new password.
func (h *AuthHandler) HandlePasswordResetConfirm(c *fiber.Ctx) error {
	token := c.Params("token")

	var form PasswordResetConfirmForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing password reset confirm form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		return render(c, "registration/password_reset_confirm", fiber.Map{
			"Token":  token,
			"Errors": validationErrors(err),
		})
	}

	err := h.authService.ConfirmPasswordReset(token, form.NewPassword1)
	switch {
	case err == nil:
		return c.Redirect("/accounts/reset/done", fiber.StatusFound)
	case errors.Is(err, services.ErrInvalidToken):
		return render(c, "registration/password_reset_confirm", fiber.Map{
			"Invalid": true,
		})
	default:
		log.Printf("Error confirming password reset: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Could not reset password")
	}
}

// HandlePasswordResetComplete renders the final reset confirmation page.
func (h *AuthHandler) HandlePasswordResetComplete(c *fiber.Ctx) error {
	return render(c, "registration/password_reset_complete", fiber.Map{
		"Username": h.sessionUsername(c),
	})
}
