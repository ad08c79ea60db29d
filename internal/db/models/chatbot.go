package models

import "time"

// Chatbot represents a chatbot built by a user.
// Chatbots are quota-gated: creating one consumes a unit of the owner's
// subscription chatbot quota, and deleting one releases it.
// Ownership is immutable after creation and is the basis for self-scoped
// authorization checks.
type Chatbot struct {
	// ID is the unique identifier for the chatbot.
	ID uint64 `gorm:"primaryKey"`
	// OwnerID is the user who created the chatbot. Never changes.
	OwnerID uint64 `gorm:"not null;index"`
	// Owner is the associated user (loaded via foreign key).
	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	// Name is the display name of the chatbot.
	Name string `gorm:"size:100;not null"`
	// Slug is the random public identifier used in share links.
	Slug string `gorm:"unique;size:32;not null"`
	// Model is the LLM model identifier the chatbot is configured with.
	Model string `gorm:"size:100"`
	// SystemPrompt is the instruction prompt the chatbot is built on.
	SystemPrompt string `gorm:"type:text"`
	// Public indicates whether the chatbot is publicly visible.
	// Setting this to true is gated by the subscription's public-chatbot flag.
	Public bool `gorm:"not null;default:false"`
	// CreatedAt is the timestamp when the chatbot was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the chatbot was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Chatbot model.
// This overrides GORM's default pluralized table naming.
func (Chatbot) TableName() string {
	return "chatbots"
}
