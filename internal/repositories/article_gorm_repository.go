package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thetowsif/thenewspage/internal/models"
)

// GORMArticleRepository is a GORM implementation of ArticleRepository.
type GORMArticleRepository struct {
	db *gorm.DB
}

// NewGORMArticleRepository creates a new instance of GORMArticleRepository.
func NewGORMArticleRepository(db *gorm.DB) *GORMArticleRepository {
	return &GORMArticleRepository{
		db: db,
	}
}

// GetAll retrieves all articles with their authors from the database.
func (r *GORMArticleRepository) GetAll() ([]models.Article, error) {
	var articles []models.Article
	if err := r.db.Preload("Author").Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to get all articles: %w", err)
	}
	return articles, nil
}

// GetByID retrieves a single article by its ID, including its author and
// comments (with comment authors, for rendering).
func (r *GORMArticleRepository) GetByID(id string) (*models.Article, error) {
	var article models.Article
	err := r.db.
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Preload("Comments.Author").
		First(&article, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("article with ID %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get article by ID %s: %w", id, err)
	}
	return &article, nil
}

// Create creates a new article in the database.
func (r *GORMArticleRepository) Create(article *models.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if err := r.db.Create(article).Error; err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

// Update persists title/body changes to an existing article. The author and
// creation timestamp are deliberately left untouched.
func (r *GORMArticleRepository) Update(article *models.Article) error {
	res := r.db.Model(&models.Article{}).
		Where("id = ?", article.ID).
		Updates(map[string]interface{}{
			"title": article.Title,
			"body":  article.Body,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update article: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("article with ID %s: %w", article.ID, gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes an article and all of its comments in a single transaction.
// The explicit comment delete keeps the cascade intact on drivers that do not
// enforce foreign key constraints by default (SQLite).
func (r *GORMArticleRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Comment{}, "article_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete comments for article %s: %w", id, err)
		}
		res := tx.Delete(&models.Article{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete article: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("article with ID %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil
	})
}

// Count returns the total number of articles.
func (r *GORMArticleRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Article{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}
