// Package subscription provides lifecycle operations for the subscription ledger.
package subscription

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
)

var (
	// ErrSubscriptionNotFound is returned when a subscription is not found.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrDuplicateActiveSubscription is returned when a user already holds an
	// effective-active subscription. This is a domain conflict, not a
	// validation failure: a user may hold at most one active subscription.
	ErrDuplicateActiveSubscription = errors.New("user already has an active subscription")
	// ErrSubscriptionAlreadyCancelled is returned when cancelling an already cancelled subscription.
	ErrSubscriptionAlreadyCancelled = errors.New("subscription is already cancelled")
	// ErrPlanNotFound is returned when the referenced plan does not exist.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create issues a new subscription to the given plan for the user.
//
// The plan's limits are denormalized onto the subscription so later plan
// edits do not retroactively change it. The single-active invariant is
// enforced inside the transaction: whether a prior subscription blocks
// creation is decided by its effective status, not its stored status, so a
// stale "active" row whose end date has passed does not block and a
// cancelled row never blocks.
func Create(db *gorm.DB, userID uint64, planID uint) (*models.Subscription, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	now := time.Now()

	var sub *models.Subscription

	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var plan models.Plan
		if err := tx.First(&plan, planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlanNotFound
			}
			return err
		}

		// Effective-active check: not cancelled and not past its end date.
		var count int64
		err := tx.Model(&models.Subscription{}).
			Where("user_id = ?", userID).
			Where("status <> ?", models.SubscriptionCancelled).
			Where("end_date >= ?", now).
			Count(&count).Error
		if err != nil {
			return err
		}

		if count > 0 {
			return ErrDuplicateActiveSubscription
		}

		sub = &models.Subscription{
			UserID:                  userID,
			PlanID:                  plan.ID,
			StartDate:               now,
			EndDate:                 now.AddDate(0, 0, plan.DurationDays),
			Status:                  models.SubscriptionActive,
			MaxChatbotCount:         plan.MaxChatbotCount,
			MaxChatbotShares:        plan.MaxChatbotShares,
			MaxDocumentCount:        plan.MaxDocumentCount,
			MaxWordCountPerDocument: plan.MaxWordCountPerDocument,
			IsPublicChatbotAllowed:  plan.IsPublicChatbotAllowed,
		}

		return tx.Create(sub).Error
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Get retrieves a subscription by ID.
func Get(db *gorm.DB, id uint64) (*models.Subscription, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var sub models.Subscription
	result := db.Preload("Plan").First(&sub, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, result.Error
	}

	return &sub, nil
}

// ListByUser retrieves all subscriptions of a user, newest first.
func ListByUser(db *gorm.DB, userID uint64) ([]models.Subscription, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var subs []models.Subscription
	result := db.Preload("Plan").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&subs)
	if result.Error != nil {
		return nil, result.Error
	}

	return subs, nil
}

// GetActiveByUser retrieves the user's effective-active subscription, if any.
// The stored status field is only trusted for the terminal cancelled state;
// active vs expired is derived from the end date.
func GetActiveByUser(db *gorm.DB, userID uint64) (*models.Subscription, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var sub models.Subscription
	result := db.
		Where("user_id = ?", userID).
		Where("status <> ?", models.SubscriptionCancelled).
		Where("end_date >= ?", time.Now()).
		Order("id DESC").
		First(&sub)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, result.Error
	}

	return &sub, nil
}

// Cancel performs the explicit, terminal cancellation transition.
// A cancelled subscription can never return to active through this state
// machine; the user needs a new subscription to restore service.
func Cancel(db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	var sub models.Subscription
	result := db.First(&sub, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return result.Error
	}

	if sub.Status == models.SubscriptionCancelled {
		return ErrSubscriptionAlreadyCancelled
	}

	return db.Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("status", models.SubscriptionCancelled).Error
}

// FlipExpired stamps the expired status onto subscriptions whose end date has
// passed. This is purely advisory bookkeeping for reporting: every reader
// derives effective status from the end date and never trusts the stored
// active/expired value, precisely because this job may lag reality.
func FlipExpired(db *gorm.DB) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.Subscription{}).
		Where("status = ?", models.SubscriptionActive).
		Where("end_date < ?", time.Now()).
		Update("status", models.SubscriptionExpired)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Info().Int64("count", result.RowsAffected).Msg("stamped expired subscriptions")
	}

	return nil
}
