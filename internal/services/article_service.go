package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/thetowsif/thenewspage/internal/models"
	"github.com/thetowsif/thenewspage/internal/repositories"
)

// ArticleService handles business logic for articles and their comments.
// Every mutation on an existing article passes through the Authorizer first;
// the ownership check is evaluated per request and never cached.
type ArticleService struct {
	articleRepo repositories.ArticleRepository
	commentRepo repositories.CommentRepository
	authz       Authorizer
}

// NewArticleService creates a new ArticleService.
func NewArticleService(articleRepo repositories.ArticleRepository, commentRepo repositories.CommentRepository, authz Authorizer) *ArticleService {
	return &ArticleService{
		articleRepo: articleRepo,
		commentRepo: commentRepo,
		authz:       authz,
	}
}

// GetAllArticles retrieves all articles.
func (s *ArticleService) GetAllArticles() ([]models.Article, error) {
	return s.articleRepo.GetAll()
}

// GetArticleByID retrieves a single article with its comments.
func (s *ArticleService) GetArticleByID(id string) (*models.Article, error) {
	article, err := s.articleRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return article, nil
}

// CreateArticle creates a new article owned by the requester. The owner is
// fixed here and never changes afterwards.
func (s *ArticleService) CreateArticle(requesterID, title, body string) (*models.Article, error) {
	if err := s.authz.CanCreate(requesterID); err != nil {
		return nil, err
	}
	article := &models.Article{
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
		AuthorID:  requesterID,
	}
	if err := s.articleRepo.Create(article); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}
	return article, nil
}

// GetOwnedArticle loads an article and verifies the requester is its author.
// The edit and delete forms use this so non-owners are rejected before any
// form is even rendered.
func (s *ArticleService) GetOwnedArticle(requesterID, id string) (*models.Article, error) {
	article, err := s.GetArticleByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanUpdate(requesterID, article); err != nil {
		return nil, err
	}
	return article, nil
}

// UpdateArticle changes the title and body of an existing article. Only the
// article's author may do this.
func (s *ArticleService) UpdateArticle(requesterID, id, title, body string) (*models.Article, error) {
	article, err := s.GetArticleByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanUpdate(requesterID, article); err != nil {
		return nil, err
	}
	article.Title = title
	article.Body = body
	if err := s.articleRepo.Update(article); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}
	return article, nil
}

// DeleteArticle removes an article and all of its comments. Only the
// article's author may do this.
func (s *ArticleService) DeleteArticle(requesterID, id string) error {
	article, err := s.GetArticleByID(id)
	if err != nil {
		return err
	}
	if err := s.authz.CanDelete(requesterID, article); err != nil {
		return err
	}
	if err := s.articleRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

// AddComment creates a comment on an article, authored by the requester.
// Any authenticated user may comment on any article.
func (s *ArticleService) AddComment(requesterID, articleID, text string) (*models.Comment, error) {
	if err := s.authz.CanCreate(requesterID); err != nil {
		return nil, err
	}
	// The article must exist before a comment can reference it.
	if _, err := s.GetArticleByID(articleID); err != nil {
		return nil, err
	}
	comment := &models.Comment{
		Text:      text,
		ArticleID: articleID,
		AuthorID:  requesterID,
		CreatedAt: time.Now(),
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}
