package models

import "time"

// ChatbotShare represents a share grant of a chatbot to an email address.
// Share grants are quota-gated cumulatively per subscription across all of
// the owner's chatbots, not per chatbot.
type ChatbotShare struct {
	// ID is the unique identifier for the share grant.
	ID uint64 `gorm:"primaryKey"`
	// ChatbotID is the shared chatbot.
	ChatbotID uint64 `gorm:"not null;index;uniqueIndex:idx_chatbot_shares_bot_email"`
	// Chatbot is the associated chatbot (loaded via foreign key).
	Chatbot Chatbot `gorm:"foreignKey:ChatbotID;constraint:OnDelete:CASCADE"`
	// OwnerID is the user who owns the chatbot and issued the grant.
	OwnerID uint64 `gorm:"not null;index"`
	// Email is the address the chatbot is shared with.
	Email string `gorm:"size:255;not null;uniqueIndex:idx_chatbot_shares_bot_email"`
	// Token is the random access token embedded in the share link.
	Token string `gorm:"unique;size:32;not null"`
	// CreatedAt is the timestamp when the grant was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ChatbotShare model.
// This overrides GORM's default pluralized table naming.
func (ChatbotShare) TableName() string {
	return "chatbot_shares"
}
