package models

import "time"

// Article represents a newspaper article written by a user.
//
// CreatedAt and AuthorID are set once at creation and never change afterwards.
// Comments are removed together with their article.
type Article struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Title     string    `json:"title" gorm:"type:varchar(255)" validate:"required,max=255"`
	Body      string    `json:"body" gorm:"type:text" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);index"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID"`
	Comments  []Comment `json:"comments,omitempty" gorm:"foreignKey:ArticleID;constraint:OnDelete:CASCADE"`
}

// Comment represents a comment made on an article. Comments have no update
// path; they are created and only disappear when their article is deleted.
type Comment struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Text      string    `json:"text" gorm:"type:varchar(150)" validate:"required,max=150"`
	ArticleID string    `json:"article_id" gorm:"type:varchar(36);index"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36)"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID"`
	CreatedAt time.Time `json:"created_at"`
}
