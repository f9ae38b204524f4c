package models

import "time"

// Post is a top-level discussion entry. AuthorID is fixed at creation.
type Post struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"author"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"-"`
	Title    string `gorm:"size:300;not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`

	Comments []Comment `gorm:"foreignKey:PostID" json:"comments"`
	Votes    []Vote    `gorm:"polymorphic:Target;polymorphicValue:post" json:"votes"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Normalize replaces nil relation slices with empty ones so that
// serialized posts always carry "comments": [] and "votes": [].
func (p *Post) Normalize() {
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	if p.Votes == nil {
		p.Votes = []Vote{}
	}
	for i := range p.Comments {
		p.Comments[i].Normalize()
	}
}

type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type UpdatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
