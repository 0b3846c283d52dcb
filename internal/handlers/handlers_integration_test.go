package handlers_test

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thetowsif/thenewspage/internal/handlers"
	"github.com/thetowsif/thenewspage/internal/middleware"
	"github.com/thetowsif/thenewspage/internal/models"
	"github.com/thetowsif/thenewspage/internal/repositories"
	"github.com/thetowsif/thenewspage/internal/services"
	"github.com/thetowsif/thenewspage/internal/web"
)

// captureMailer records published reset emails so tests can pull the token
// out of the reset link.
type captureMailer struct {
	messages []map[string]interface{}
}

func (m *captureMailer) PublishPasswordReset(messageBody map[string]interface{}) error {
	m.messages = append(m.messages, messageBody)
	return nil
}

// setupApp builds a Fiber app for testing with its own in-memory SQLite
// database and all handlers/services wired the way main does it.
func setupApp(t *testing.T, mailer services.Mailer) (*fiber.App, *gorm.DB) {
	t.Helper()

	// A named shared-cache DB keeps every pooled connection of this test on
	// the same in-memory database while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Article{}, &models.Comment{}, &models.PasswordReset{})
	require.NoError(t, err)

	// Repositories
	userRepo := repositories.NewGORMUserRepository(db)
	articleRepo := repositories.NewGORMArticleRepository(db)
	commentRepo := repositories.NewGORMCommentRepository(db)
	resetRepo := repositories.NewGORMPasswordResetRepository(db)

	// Services
	authService := services.NewAuthService(userRepo, resetRepo, mailer, "test_reset_secret", "http://localhost:8080")
	articleService := services.NewArticleService(articleRepo, commentRepo, services.NewOwnershipAuthorizer())

	store := session.New()

	// Handlers
	pagesHandler := handlers.NewPagesHandler(store)
	authHandler := handlers.NewAuthHandler(authService, store)
	articleHandler := handlers.NewArticleHandler(articleService)

	app := fiber.New(fiber.Config{
		Views:       web.NewEngine(),
		ViewsLayout: web.Layout,
	})

	pagesHandler.RegisterRoutes(app)
	authHandler.RegisterRoutes(app)

	articles := app.Group("/articles", middleware.LoginRequired(store))
	articleHandler.RegisterRoutes(articles)

	return app, db
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func getPage(t *testing.T, app *fiber.App, path string, cookies []*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values, cookies []*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return string(body)
}

func signupUser(t *testing.T, app *fiber.App, username, email, password string) {
	t.Helper()
	resp := postForm(t, app, "/accounts/signup", url.Values{
		"username":  {username},
		"email":     {email},
		"password1": {password},
		"password2": {password},
	}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/accounts/login", resp.Header.Get("Location"))
}

func login(t *testing.T, app *fiber.App, username, password string) []*http.Cookie {
	t.Helper()
	resp := postForm(t, app, "/accounts/login", url.Values{
		"username": {username},
		"password": {password},
	}, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies, "login should establish a session cookie")
	return cookies
}

func userIDByUsername(t *testing.T, db *gorm.DB, username string) string {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "username = ?", username).Error)
	return user.ID
}

func TestHomepage(t *testing.T) {
	app, _ := setupApp(t, nil)

	resp := getPage(t, app, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "The News Page")
}

func TestSignup(t *testing.T) {
	app, db := setupApp(t, nil)

	t.Run("FormRenders", func(t *testing.T) {
		resp := getPage(t, app, "/accounts/signup", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Sign up")
	})

	t.Run("SuccessCreatesUserWithoutSession", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/signup", url.Values{
			"username":  {"test_user"},
			"email":     {"test@example.net"},
			"age":       {"18"},
			"password1": {"user12345"},
			"password2": {"user12345"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/login", resp.Header.Get("Location"))
		assert.Empty(t, resp.Cookies(), "signup must not establish a session")

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)

		var user models.User
		require.NoError(t, db.First(&user, "username = ?", "test_user").Error)
		assert.Equal(t, "test@example.net", user.Email)
		require.NotNil(t, user.Age)
		assert.Equal(t, uint(18), *user.Age)
	})

	t.Run("PasswordMismatchRerenders", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/signup", url.Values{
			"username":  {"test_user_2"},
			"email":     {"test2@example.net"},
			"password1": {"user12345"},
			"password2": {"something_else"},
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Password2")

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "no user may be created on validation failure")
	})

	t.Run("NegativeAgeRejected", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/signup", url.Values{
			"username":  {"test_user_3"},
			"email":     {"test3@example.net"},
			"age":       {"-4"},
			"password1": {"user12345"},
			"password2": {"user12345"},
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Age")

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("DuplicateUsernameRerenders", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/signup", url.Values{
			"username":  {"test_user"},
			"email":     {"other@example.net"},
			"password1": {"user12345"},
			"password2": {"user12345"},
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "already exists")
	})

	t.Run("RejectedWhileAuthenticated", func(t *testing.T) {
		cookies := login(t, app, "test_user", "user12345")

		resp := getPage(t, app, "/accounts/signup", cookies)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = postForm(t, app, "/accounts/signup", url.Values{
			"username":  {"test_user_4"},
			"email":     {"test4@example.net"},
			"password1": {"user12345"},
			"password2": {"user12345"},
		}, cookies)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestLoginLogout(t *testing.T) {
	app, _ := setupApp(t, nil)
	signupUser(t, app, "test_user", "test@example.net", "test_pass_1")

	t.Run("BadCredentialsRerender", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/login", url.Values{
			"username": {"test_user"},
			"password": {"wrong_pass"},
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "correct username and password")
		assert.Empty(t, resp.Cookies())
	})

	t.Run("SuccessRedirectsHome", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/login", url.Values{
			"username": {"test_user"},
			"password": {"test_pass_1"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
		assert.NotEmpty(t, resp.Cookies())
	})

	t.Run("NextParameterHonored", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/login", url.Values{
			"username": {"test_user"},
			"password": {"test_pass_1"},
			"next":     {"/articles/"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/articles/", resp.Header.Get("Location"))
	})

	t.Run("OffsiteNextIgnored", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/login", url.Values{
			"username": {"test_user"},
			"password": {"test_pass_1"},
			"next":     {"https://evil.example.com/"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("LogoutDropsSession", func(t *testing.T) {
		cookies := login(t, app, "test_user", "test_pass_1")

		resp := getPage(t, app, "/accounts/logout", cookies)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/", resp.Header.Get("Location"))

		// The old session no longer opens protected pages
		resp = getPage(t, app, "/articles/", cookies)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "/accounts/login")
	})
}

func TestArticleAuthRequired(t *testing.T) {
	app, _ := setupApp(t, nil)

	// Every article operation redirects unauthenticated requests to login
	// with the original path in next.
	paths := []string{
		"/articles/",
		"/articles/details/some-id",
		"/articles/new/",
		"/articles/edit/some-id",
		"/articles/delete/some-id",
	}
	for _, path := range paths {
		resp := getPage(t, app, path, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/accounts/login?next="+url.QueryEscape(path), resp.Header.Get("Location"), path)
	}
}

func TestArticleCRUD(t *testing.T) {
	app, db := setupApp(t, nil)
	signupUser(t, app, "author_user", "author@example.net", "test_pass_1")
	signupUser(t, app, "other_user", "other@example.net", "test_pass_2")
	authorCookies := login(t, app, "author_user", "test_pass_1")
	otherCookies := login(t, app, "other_user", "test_pass_2")

	var articleID string

	t.Run("Create", func(t *testing.T) {
		resp := postForm(t, app, "/articles/new/", url.Values{
			"title": {"Test Article"},
			"body":  {"Test Body"},
		}, authorCookies)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		location := resp.Header.Get("Location")
		require.True(t, strings.HasPrefix(location, "/articles/details/"))
		articleID = strings.TrimPrefix(location, "/articles/details/")

		var article models.Article
		require.NoError(t, db.First(&article, "id = ?", articleID).Error)
		assert.Equal(t, "Test Article", article.Title)
		assert.Equal(t, userIDByUsername(t, db, "author_user"), article.AuthorID)
	})

	t.Run("CreateEmptyBodyFailsValidation", func(t *testing.T) {
		var before int64
		require.NoError(t, db.Model(&models.Article{}).Count(&before).Error)

		resp := postForm(t, app, "/articles/new/", url.Values{
			"title": {"No body here"},
			"body":  {""},
		}, authorCookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Body")

		var after int64
		require.NoError(t, db.Model(&models.Article{}).Count(&after).Error)
		assert.Equal(t, before, after, "article count must be unchanged")
	})

	t.Run("ListShowsArticle", func(t *testing.T) {
		resp := getPage(t, app, "/articles/", otherCookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "Test Article")
		assert.Contains(t, body, "author_user")
	})

	t.Run("DetailShowsArticle", func(t *testing.T) {
		resp := getPage(t, app, "/articles/details/"+articleID, otherCookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "Test Article")
		assert.Contains(t, body, "Test Body")
	})

	t.Run("DetailMissingIs404", func(t *testing.T) {
		resp := getPage(t, app, "/articles/details/no-such-id", otherCookies)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("CommentIncrementsCount", func(t *testing.T) {
		resp := postForm(t, app, "/articles/details/"+articleID, url.Values{
			"comment": {"What a scoop!"},
		}, otherCookies)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/articles/details/"+articleID, resp.Header.Get("Location"))

		var comments []models.Comment
		require.NoError(t, db.Find(&comments, "article_id = ?", articleID).Error)
		require.Len(t, comments, 1)
		assert.Equal(t, "What a scoop!", comments[0].Text)
		assert.Equal(t, userIDByUsername(t, db, "other_user"), comments[0].AuthorID)
	})

	t.Run("EmptyCommentFailsValidation", func(t *testing.T) {
		resp := postForm(t, app, "/articles/details/"+articleID, url.Values{
			"comment": {""},
		}, otherCookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Comment{}).Where("article_id = ?", articleID).Count(&count).Error)
		assert.Equal(t, int64(1), count, "comment count must be unchanged")
	})

	t.Run("EditByNonOwnerForbidden", func(t *testing.T) {
		resp := getPage(t, app, "/articles/edit/"+articleID, otherCookies)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = postForm(t, app, "/articles/edit/"+articleID, url.Values{
			"title": {"Hijacked"},
			"body":  {"Hijacked body"},
		}, otherCookies)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var article models.Article
		require.NoError(t, db.First(&article, "id = ?", articleID).Error)
		assert.Equal(t, "Test Article", article.Title)
	})

	t.Run("EditByOwner", func(t *testing.T) {
		resp := getPage(t, app, "/articles/edit/"+articleID, authorCookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Test Article")

		resp = postForm(t, app, "/articles/edit/"+articleID, url.Values{
			"title": {"Updated Article"},
			"body":  {"Updated Body"},
		}, authorCookies)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/articles/details/"+articleID, resp.Header.Get("Location"))

		var article models.Article
		require.NoError(t, db.First(&article, "id = ?", articleID).Error)
		assert.Equal(t, "Updated Article", article.Title)
		assert.Equal(t, "Updated Body", article.Body)
	})

	t.Run("DeleteByNonOwnerForbidden", func(t *testing.T) {
		resp := getPage(t, app, "/articles/delete/"+articleID, otherCookies)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = postForm(t, app, "/articles/delete/"+articleID, nil, otherCookies)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&models.Article{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("DeleteByOwnerCascades", func(t *testing.T) {
		resp := getPage(t, app, "/articles/delete/"+articleID, authorCookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Updated Article")

		resp = postForm(t, app, "/articles/delete/"+articleID, nil, authorCookies)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/articles/", resp.Header.Get("Location"))

		var articleCount int64
		require.NoError(t, db.Model(&models.Article{}).Count(&articleCount).Error)
		assert.Equal(t, int64(0), articleCount)

		var commentCount int64
		require.NoError(t, db.Model(&models.Comment{}).Where("article_id = ?", articleID).Count(&commentCount).Error)
		assert.Equal(t, int64(0), commentCount, "comments must be removed with their article")
	})
}

func TestPasswordChange(t *testing.T) {
	app, _ := setupApp(t, nil)
	signupUser(t, app, "test_user", "test@example.net", "old_pass_1")
	cookies := login(t, app, "test_user", "old_pass_1")

	t.Run("RequiresLogin", func(t *testing.T) {
		resp := getPage(t, app, "/accounts/password_change", nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/login?next="+url.QueryEscape("/accounts/password_change"), resp.Header.Get("Location"))
	})

	t.Run("WrongOldPasswordRerenders", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/password_change", url.Values{
			"old_password":  {"not_my_password"},
			"new_password1": {"new_pass_1"},
			"new_password2": {"new_pass_1"},
		}, cookies)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "old password")
	})

	t.Run("Success", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/password_change", url.Values{
			"old_password":  {"old_pass_1"},
			"new_password1": {"new_pass_1"},
			"new_password2": {"new_pass_1"},
		}, cookies)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/password_change/done", resp.Header.Get("Location"))

		// Old password no longer works, the new one does
		resp = postForm(t, app, "/accounts/login", url.Values{
			"username": {"test_user"},
			"password": {"old_pass_1"},
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		login(t, app, "test_user", "new_pass_1")
	})
}

func TestPasswordReset(t *testing.T) {
	mailer := &captureMailer{}
	app, _ := setupApp(t, mailer)
	signupUser(t, app, "test_user", "test@example.net", "old_pass_1")

	t.Run("UnknownEmailStillRedirects", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/password_reset", url.Values{
			"email": {"nobody@example.net"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/password_reset/done", resp.Header.Get("Location"))
		assert.Empty(t, mailer.messages)
	})

	var token string

	t.Run("KnownEmailQueuesResetLink", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/password_reset", url.Values{
			"email": {"test@example.net"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/password_reset/done", resp.Header.Get("Location"))

		require.Len(t, mailer.messages, 1)
		resetURL, _ := mailer.messages[0]["reset_url"].(string)
		require.NotEmpty(t, resetURL)
		token = resetURL[strings.LastIndex(resetURL, "/")+1:]
		require.NotEmpty(t, token)
	})

	t.Run("ConfirmFormRenders", func(t *testing.T) {
		resp := getPage(t, app, "/accounts/reset/"+token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Set a new password")
	})

	t.Run("ForgedTokenInvalid", func(t *testing.T) {
		resp := getPage(t, app, "/accounts/reset/forged-token", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Invalid reset link")
	})

	t.Run("ExchangeSetsNewPassword", func(t *testing.T) {
		resp := postForm(t, app, "/accounts/reset/"+token, url.Values{
			"new_password1": {"reset_pass_1"},
			"new_password2": {"reset_pass_1"},
		}, nil)
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/reset/done", resp.Header.Get("Location"))

		login(t, app, "test_user", "reset_pass_1")
	})

	t.Run("TokenIsSingleUse", func(t *testing.T) {
		resp := getPage(t, app, "/accounts/reset/"+token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Invalid reset link")

		resp = postForm(t, app, "/accounts/reset/"+token, url.Values{
			"new_password1": {"another_pass_1"},
			"new_password2": {"another_pass_1"},
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "Invalid reset link")
	})
}
