package models

import "time"

// Plan represents a subscription plan template with its quota limits.
// Plans are immutable templates: editing a plan affects only subscriptions
// issued afterwards, because limits are denormalized onto the subscription
// at creation time.
type Plan struct {
	// ID is the unique identifier for the plan.
	ID uint `gorm:"primaryKey"`
	// Name is the unique name of the plan (e.g., "free", "starter", "business").
	Name string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable description of the plan.
	Description string `gorm:"size:255"`
	// PriceCents is the plan price in cents.
	PriceCents int64 `gorm:"not null;default:0"`
	// DurationDays is how long a subscription to this plan lasts.
	DurationDays int `gorm:"not null"`
	// MaxChatbotCount is the maximum number of chatbots a subscriber may own.
	MaxChatbotCount int64 `gorm:"not null;default:0"`
	// MaxChatbotShares is the maximum number of share grants across all of a
	// subscriber's chatbots, cumulative per subscription.
	MaxChatbotShares int64 `gorm:"not null;default:0"`
	// MaxDocumentCount is the maximum number of documents a subscriber may own.
	MaxDocumentCount int64 `gorm:"not null;default:0"`
	// MaxWordCountPerDocument is a per-document ceiling on word count.
	MaxWordCountPerDocument int64 `gorm:"not null;default:0"`
	// IsPublicChatbotAllowed gates whether chatbots may be made publicly visible.
	IsPublicChatbotAllowed bool `gorm:"not null;default:false"`
	// Benefits is a newline-separated list of marketing bullet points.
	Benefits string `gorm:"type:text"`
	// CreatedAt is the timestamp when the plan was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the plan was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Plan model.
// This overrides GORM's default pluralized table naming.
func (Plan) TableName() string {
	return "plans"
}
