package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thetowsif/thenewspage/internal/models"
)

// GORMPasswordResetRepository is a GORM implementation of PasswordResetRepository.
type GORMPasswordResetRepository struct {
	db *gorm.DB
}

// NewGORMPasswordResetRepository creates a new instance of GORMPasswordResetRepository.
func NewGORMPasswordResetRepository(db *gorm.DB) *GORMPasswordResetRepository {
	return &GORMPasswordResetRepository{
		db: db,
	}
}

// Create creates a new password reset record in the database.
func (r *GORMPasswordResetRepository) Create(reset *models.PasswordReset) error {
	if reset.ID == "" {
		reset.ID = uuid.New().String()
	}
	if err := r.db.Create(reset).Error; err != nil {
		return fmt.Errorf("failed to create password reset record: %w", err)
	}
	return nil
}

// GetByID retrieves a password reset record by its ID.
func (r *GORMPasswordResetRepository) GetByID(id string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	if err := r.db.First(&reset, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("password reset record %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get password reset record %s: %w", id, err)
	}
	return &reset, nil
}

// MarkUsed stamps a password reset record as consumed. Only unused records
// are affected, so two concurrent exchanges cannot both succeed.
func (r *GORMPasswordResetRepository) MarkUsed(id string) error {
	res := r.db.Model(&models.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", sql.NullTime{Time: time.Now(), Valid: true})
	if res.Error != nil {
		return fmt.Errorf("failed to mark password reset record %s used: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("password reset record %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
