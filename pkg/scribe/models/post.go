package models

import (
	"time"
)

// Post represents a published post in a feed.
// CreatedAt is assigned once on insert and is the primary feed sort key
// (descending, ties broken by ID descending).
type Post struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Text      string    `gorm:"not null" json:"text"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"` // nullable: group is classification, not ownership
	ImagePath string    `json:"image_path,omitempty"`

	// Relationships
	Author   User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Group    *Group    `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`
}
