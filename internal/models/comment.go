package models

import "time"

// Comment belongs to exactly one post for its whole lifetime.
type Comment struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID   string `gorm:"type:varchar(36);not null;index" json:"post"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"author"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"-"`
	Content  string `gorm:"type:text;not null" json:"content"`

	Votes []Vote `gorm:"polymorphic:Target;polymorphicValue:comment" json:"votes"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Comment) Normalize() {
	if c.Votes == nil {
		c.Votes = []Vote{}
	}
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}
