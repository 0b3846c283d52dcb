package models

import (
	"database/sql"
	"time"
)

// PasswordReset is the single-use invalidation record behind a password reset
// token. The row ID doubles as the token's jti claim: a token is only accepted
// while its record exists, is unexpired, and has not been marked used.
type PasswordReset struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)"`
	UserID    string       `gorm:"type:varchar(36);index"`
	ExpiresAt time.Time
	UsedAt    sql.NullTime
	CreatedAt time.Time
}
