package services

import "github.com/thetowsif/thenewspage/internal/models"

// Authorizer decides whether a requester may perform an action on an article.
// Implementations must be pure: the decision is a function of the requester
// and the resource only, evaluated on every request.
type Authorizer interface {
	CanCreate(requesterID string) error
	CanView(requesterID string) error
	CanUpdate(requesterID string, article *models.Article) error
	CanDelete(requesterID string, article *models.Article) error
}

// OwnershipAuthorizer is the standard article authorization policy: any
// authenticated user may create and view articles, but only the author may
// update or delete one.
type OwnershipAuthorizer struct{}

// NewOwnershipAuthorizer creates a new OwnershipAuthorizer.
func NewOwnershipAuthorizer() *OwnershipAuthorizer {
	return &OwnershipAuthorizer{}
}

// CanCreate allows any authenticated requester.
func (a *OwnershipAuthorizer) CanCreate(requesterID string) error {
	if requesterID == "" {
		return ErrForbidden
	}
	return nil
}

// CanView allows any authenticated requester.
func (a *OwnershipAuthorizer) CanView(requesterID string) error {
	if requesterID == "" {
		return ErrForbidden
	}
	return nil
}

// CanUpdate allows only the article's author.
func (a *OwnershipAuthorizer) CanUpdate(requesterID string, article *models.Article) error {
	if requesterID == "" || requesterID != article.AuthorID {
		return ErrForbidden
	}
	return nil
}

// CanDelete allows only the article's author.
func (a *OwnershipAuthorizer) CanDelete(requesterID string, article *models.Article) error {
	if requesterID == "" || requesterID != article.AuthorID {
		return ErrForbidden
	}
	return nil
}
