package repositories

import "github.com/thetowsif/thenewspage/internal/models"

// PasswordResetRepository defines the interface for password reset record
// access. A record is created when a reset token is issued and marked used
// when the token is exchanged, so every token is accepted at most once.
type PasswordResetRepository interface {
	Create(reset *models.PasswordReset) error
	GetByID(id string) (*models.PasswordReset, error)
	MarkUsed(id string) error
}
