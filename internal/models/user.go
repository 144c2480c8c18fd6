// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account.
//
// Password only ever holds a bcrypt hash and is excluded from JSON output.
// Users are hard-deleted: removing a user cascades to their messages, follow
// rows and like rows (see repository.UserRepository.Delete).
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"unique;not null" json:"username"`
	Email          string    `gorm:"unique;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `json:"image_url"`
	HeaderImageURL string    `json:"header_image_url"`
	Bio            string    `json:"bio"`
	Location       string    `json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Messages []Message `gorm:"foreignKey:UserID" json:"messages,omitempty"`
}
