package models

import "gorm.io/gorm"

// User represents a registered reader or author of the newspaper.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username   string `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email      string `json:"email" gorm:"type:varchar(255)" validate:"required,email"`
	Password   string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Age        *uint  `json:"age,omitempty" validate:"omitempty,gte=0"`    // Optional; absent when the user did not provide it
	gorm.Model        // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
