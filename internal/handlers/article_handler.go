package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/thetowsif/thenewspage/internal/services"
)

// ArticleHandler handles HTTP requests for articles and comments. All of its
// routes sit behind the LoginRequired middleware; ownership of individual
// articles is enforced by the service layer.
type ArticleHandler struct {
	service  *services.ArticleService
	validate *validator.Validate
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(service *services.ArticleService) *ArticleHandler {
	return &ArticleHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the article routes. The router passed in is
// expected to carry the /articles prefix and the LoginRequired middleware.
func (h *ArticleHandler) RegisterRoutes(articleRoutes fiber.Router) {
	articleRoutes.Get("/", h.HandleList)
	articleRoutes.Get("/new/", h.HandleNewForm)
	articleRoutes.Post("/new/", h.HandleCreate)
	articleRoutes.Get("/details/:id", h.HandleDetail)
	articleRoutes.Post("/details/:id", h.HandleAddComment)
	articleRoutes.Get("/edit/:id", h.HandleEditForm)
	articleRoutes.Post("/edit/:id", h.HandleUpdate)
	articleRoutes.Get("/delete/:id", h.HandleDeleteForm)
	articleRoutes.Post("/delete/:id", h.HandleDelete)
}

// ArticleForm represents the article create/edit form fields.
type ArticleForm struct {
	Title string `form:"title" validate:"required,max=255"`
	Body  string `form:"body" validate:"required"`
}

// CommentForm represents the comment form on the article detail page.
type CommentForm struct {
	Text string `form:"comment" validate:"required,max=150"`
}

// statusForArticleError maps service errors onto the response for failures
// around an existing article: 404 for missing IDs, a fixed non-redirecting
// 403 when the requester is not the owner.
func statusForArticleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).SendString("Forbidden")
	default:
		log.Printf("Article operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
}

// HandleList renders all articles.
func (h *ArticleHandler) HandleList(c *fiber.Ctx) error {
	articles, err := h.service.GetAllArticles()
	if err != nil {
		log.Printf("Error getting all articles: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Could not retrieve articles")
	}
	return render(c, "articles/article_list", fiber.Map{
		"Articles": articles,
	})
}

// HandleNewForm renders the article creation form.
func (h *ArticleHandler) HandleNewForm(c *fiber.Ctx) error {
	return render(c, "articles/article_new", fiber.Map{
		"Form": ArticleForm{},
	})
}

// HandleCreate creates a new article owned by the requester. Validation
// failures re-render the form with field errors and persist nothing.
func (h *ArticleHandler) HandleCreate(c *fiber.Ctx) error {
	var form ArticleForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing article form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		return render(c, "articles/article_new", fiber.Map{
			"Form":   form,
			"Errors": validationErrors(err),
		})
	}

	article, err := h.service.CreateArticle(requesterID(c), form.Title, form.Body)
	if err != nil {
		return statusForArticleError(c, err)
	}
	return c.Redirect("/articles/details/"+article.ID, fiber.StatusFound)
}

// HandleDetail renders one article with its comments and the comment form.
func (h *ArticleHandler) HandleDetail(c *fiber.Ctx) error {
	article, err := h.service.GetArticleByID(c.Params("id"))
	if err != nil {
		return statusForArticleError(c, err)
	}
	return render(c, "articles/article_detail", fiber.Map{
		"Article": article,
		"Form":    CommentForm{},
	})
}

// HandleAddComment adds a comment by the requester to the article and returns
// to the detail page. An invalid comment re-renders the detail page with
// field errors and persists nothing.
func (h *ArticleHandler) HandleAddComment(c *fiber.Ctx) error {
	articleID := c.Params("id")

	var form CommentForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing comment form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		article, getErr := h.service.GetArticleByID(articleID)
		if getErr != nil {
			return statusForArticleError(c, getErr)
		}
		return render(c, "articles/article_detail", fiber.Map{
			"Article": article,
			"Form":    form,
			"Errors":  validationErrors(err),
		})
	}

	if _, err := h.service.AddComment(requesterID(c), articleID, form.Text); err != nil {
		return statusForArticleError(c, err)
	}
	return c.Redirect("/articles/details/"+articleID, fiber.StatusFound)
}

// HandleEditForm renders the edit form for an article the requester owns.
func (h *ArticleHandler) HandleEditForm(c *fiber.Ctx) error {
	article, err := h.service.GetOwnedArticle(requesterID(c), c.Params("id"))
	if err != nil {
		return statusForArticleError(c, err)
	}
	return render(c, "articles/article_edit", fiber.Map{
		"ArticleID": article.ID,
		"Form":      ArticleForm{Title: article.Title, Body: article.Body},
	})
}

// HandleUpdate persists title/body changes to an article the requester owns.
func (h *ArticleHandler) HandleUpdate(c *fiber.Ctx) error {
	articleID := c.Params("id")

	var form ArticleForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing article form: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Invalid form submission")
	}

	if err := h.validate.Struct(form); err != nil {
		// The ownership gate still applies when re-rendering the form.
		if _, gateErr := h.service.GetOwnedArticle(requesterID(c), articleID); gateErr != nil {
			return statusForArticleError(c, gateErr)
		}
		return render(c, "articles/article_edit", fiber.Map{
			"ArticleID": articleID,
			"Form":      form,
			"Errors":    validationErrors(err),
		})
	}

	article, err := h.service.UpdateArticle(requesterID(c), articleID, form.Title, form.Body)
	if err != nil {
		return statusForArticleError(c, err)
	}
	return c.Redirect("/articles/details/"+article.ID, fiber.StatusFound)
}

// HandleDeleteForm renders the delete confirmation page for an article the
// requester owns.
func (h *ArticleHandler) HandleDeleteForm(c *fiber.Ctx) error {
	article, err := h.service.GetOwnedArticle(requesterID(c), c.Params("id"))
	if err != nil {
		return statusForArticleError(c, err)
	}
	return render(c, "articles/article_delete", fiber.Map{
		"Article": article,
	})
}

// HandleDelete removes the article and its comments, then returns to the list.
func (h *ArticleHandler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.DeleteArticle(requesterID(c), c.Params("id")); err != nil {
		return statusForArticleError(c, err)
	}
	return c.Redirect("/articles/", fiber.StatusFound)
}
