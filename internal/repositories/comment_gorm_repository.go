package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thetowsif/thenewspage/internal/models"
)

// GORMCommentRepository is a GORM implementation of CommentRepository.
type GORMCommentRepository struct {
	db *gorm.DB
}

// NewGORMCommentRepository creates a new instance of GORMCommentRepository.
func NewGORMCommentRepository(db *gorm.DB) *GORMCommentRepository {
	return &GORMCommentRepository{
		db: db,
	}
}

// Create creates a new comment in the database.
func (r *GORMCommentRepository) Create(comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if err := r.db.Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetByArticle retrieves all comments on an article, oldest first.
func (r *GORMCommentRepository) GetByArticle(articleID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Preload("Author").
		Where("article_id = ?", articleID).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comments for article %s: %w", articleID, err)
	}
	return comments, nil
}

// CountByArticle returns the number of comments on an article.
func (r *GORMCommentRepository) CountByArticle(articleID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Comment{}).
		Where("article_id = ?", articleID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count comments for article %s: %w", articleID, err)
	}
	return count, nil
}
