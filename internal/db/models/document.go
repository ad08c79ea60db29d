package models

import "time"

// Document represents a knowledge document attached to a chatbot.
// Documents are quota-gated on two axes: the owner's subscription document
// count, and a per-document word ceiling checked before persistence.
// Text extraction and chunking happen elsewhere; this record only carries
// the raw content and its word count.
type Document struct {
	// ID is the unique identifier for the document.
	ID uint64 `gorm:"primaryKey"`
	// OwnerID is the user who created the document. Never changes.
	OwnerID uint64 `gorm:"not null;index"`
	// Owner is the associated user (loaded via foreign key).
	Owner User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	// ChatbotID is the chatbot this document belongs to.
	ChatbotID uint64 `gorm:"not null;index"`
	// Chatbot is the associated chatbot (loaded via foreign key).
	Chatbot Chatbot `gorm:"foreignKey:ChatbotID;constraint:OnDelete:CASCADE"`
	// Title is the display title of the document.
	Title string `gorm:"size:255;not null"`
	// Content is the raw document text.
	Content string `gorm:"type:text"`
	// WordCount is the number of words in Content, computed at creation.
	WordCount int64 `gorm:"not null;default:0"`
	// CreatedAt is the timestamp when the document was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the document was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Document model.
// This overrides GORM's default pluralized table naming.
func (Document) TableName() string {
	return "documents"
}
