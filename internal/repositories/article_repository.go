package repositories

import "github.com/thetowsif/thenewspage/internal/models"

// ArticleRepository defines the interface for article data access.
//
// GetByID loads the article together with its author and comments so the
// detail view can be rendered from a single lookup. Delete removes the
// article and its comments in one transaction.
type ArticleRepository interface {
	GetAll() ([]models.Article, error)
	GetByID(id string) (*models.Article, error)
	Create(article *models.Article) error
	Update(article *models.Article) error
	Delete(id string) error
	Count() (int64, error)
}

// CommentRepository defines the interface for comment data access.
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByArticle(articleID string) ([]models.Comment, error)
	CountByArticle(articleID string) (int64, error)
}
