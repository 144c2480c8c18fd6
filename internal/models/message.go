package models

import (
	"time"
)

// MaxMessageLength is the upper bound on message text.
const MaxMessageLength = 140

// Message is a short post owned by exactly one user.
// Text is immutable after creation.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:140;not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index;autoCreateTime" json:"timestamp"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
