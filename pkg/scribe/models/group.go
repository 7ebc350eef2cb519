package models

import (
	"time"
)

// Group represents a named topic that posts may be classified under.
// The slug is the unique URL-safe identifier used in group feed routes.
type Group struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description"`

	// Relationships
	Posts []Post `gorm:"foreignKey:GroupID" json:"posts,omitempty"`
}
