package models

import "time"

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	// SubscriptionActive means the subscription is live and quota-gated actions are allowed.
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired means the subscription's end date has passed.
	SubscriptionExpired SubscriptionStatus = "expired"
	// SubscriptionCancelled means the subscription was explicitly cancelled. Terminal.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription binds a user to a plan for a period of time and carries the
// live usage ledger for that period.
//
// The plan's limits are denormalized onto the record at creation time, so a
// later plan edit does not retroactively change a live subscription. The
// used_* counters are only ever mutated through the quota guard's atomic
// conditional updates.
//
// The stored Status field is authoritative only for the terminal "cancelled"
// state. "active" vs "expired" must always be derived from EndDate via
// EffectiveStatus, because the background job that stamps "expired" may lag
// reality.
type Subscription struct {
	// ID is the unique identifier for the subscription.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the subscribing user. At most one subscription per user may be
	// effective-active at any instant.
	UserID uint64 `gorm:"not null;index"`
	// User is the associated user (loaded via foreign key).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// PlanID references the plan this subscription was issued from.
	PlanID uint `gorm:"not null"`
	// Plan is the associated plan (loaded via foreign key).
	Plan Plan `gorm:"foreignKey:PlanID"`
	// StartDate is when the subscription period begins.
	StartDate time.Time `gorm:"not null"`
	// EndDate is when the subscription period ends.
	EndDate time.Time `gorm:"not null"`
	// Status is the stored lifecycle state. Only "cancelled" is authoritative here.
	Status SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active';index"`

	// Denormalized plan limits, frozen at subscription creation.

	// MaxChatbotCount is the chatbot limit for this subscription.
	MaxChatbotCount int64 `gorm:"not null"`
	// MaxChatbotShares is the cumulative share-grant limit for this subscription.
	MaxChatbotShares int64 `gorm:"not null"`
	// MaxDocumentCount is the document limit for this subscription.
	MaxDocumentCount int64 `gorm:"not null"`
	// MaxWordCountPerDocument is the per-document word ceiling for this subscription.
	MaxWordCountPerDocument int64 `gorm:"not null"`
	// IsPublicChatbotAllowed gates public chatbot visibility for this subscription.
	IsPublicChatbotAllowed bool `gorm:"not null;default:false"`

	// Live usage counters, mutated only via the quota guard.

	// UsedChatbotCount is the number of chatbots currently reserved/persisted.
	UsedChatbotCount int64 `gorm:"not null;default:0"`
	// UsedChatbotShares is the number of share grants currently reserved/persisted.
	UsedChatbotShares int64 `gorm:"not null;default:0"`
	// UsedDocumentCount is the number of documents currently reserved/persisted.
	UsedDocumentCount int64 `gorm:"not null;default:0"`

	// CreatedAt is the timestamp when the subscription was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the subscription was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Subscription model.
// This overrides GORM's default pluralized table naming.
func (Subscription) TableName() string {
	return "subscriptions"
}

// EffectiveStatus computes the real lifecycle state at the given instant.
// Cancelled is terminal and wins; otherwise the state is derived from EndDate
// rather than trusted from storage.
func (s *Subscription) EffectiveStatus(now time.Time) SubscriptionStatus {
	if s.Status == SubscriptionCancelled {
		return SubscriptionCancelled
	}

	if now.After(s.EndDate) {
		return SubscriptionExpired
	}

	return SubscriptionActive
}

// IsEffectiveActive reports whether quota-gated actions are allowed at the given instant.
func (s *Subscription) IsEffectiveActive(now time.Time) bool {
	return s.EffectiveStatus(now) == SubscriptionActive
}
