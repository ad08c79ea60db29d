package quota

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
)

// Reconciler heals drift between the ledger's used counters and the actual
// resource tables. Drift appears when a process crashes between a successful
// reservation and the compensating release; the reservation is leaked until
// this sweep recomputes the truth.
type Reconciler struct {
	db    *gorm.DB
	guard *Guard
}

// NewReconciler creates a reconciler that recomputes counters under the
// guard's per-subscription serialization, so a sweep never races an in-flight
// reservation.
func NewReconciler(db *gorm.DB, guard *Guard) *Reconciler {
	return &Reconciler{db: db, guard: guard}
}

// Run reconciles every subscription that is effective-active right now.
// Expired and cancelled subscriptions are skipped: their counters are dead
// weight no reservation will ever consult.
func (r *Reconciler) Run() error {
	now := time.Now()

	var subs []models.Subscription

	err := r.db.
		Where("status <> ?", models.SubscriptionCancelled).
		Where("end_date >= ?", now).
		Find(&subs).Error
	if err != nil {
		return fmt.Errorf("failed to list subscriptions for reconciliation: %w", err)
	}

	for i := range subs {
		if err := r.reconcileOne(&subs[i]); err != nil {
			log.Error().Err(err).Uint64("subscription_id", subs[i].ID).
				Msg("failed to reconcile subscription usage")
		}
	}

	return nil
}

func (r *Reconciler) reconcileOne(sub *models.Subscription) error {
	l := r.guard.lockFor(sub.ID)
	l.Lock()
	defer l.Unlock()

	var chatbots, documents, shares int64

	if err := r.db.Model(&models.Chatbot{}).
		Where("owner_id = ?", sub.UserID).Count(&chatbots).Error; err != nil {
		return fmt.Errorf("failed to count chatbots: %w", err)
	}

	if err := r.db.Model(&models.Document{}).
		Where("owner_id = ?", sub.UserID).Count(&documents).Error; err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	if err := r.db.Model(&models.ChatbotShare{}).
		Where("owner_id = ?", sub.UserID).Count(&shares).Error; err != nil {
		return fmt.Errorf("failed to count shares: %w", err)
	}

	// Reload inside the lock; the snapshot from the sweep query may predate a
	// reservation that took the lock before us.
	var current models.Subscription
	if err := r.db.First(&current, sub.ID).Error; err != nil {
		return fmt.Errorf("failed to reload subscription: %w", err)
	}

	if current.UsedChatbotCount == chatbots &&
		current.UsedDocumentCount == documents &&
		current.UsedChatbotShares == shares {
		return nil
	}

	log.Warn().
		Uint64("subscription_id", sub.ID).
		Int64("ledger_chatbots", current.UsedChatbotCount).Int64("actual_chatbots", chatbots).
		Int64("ledger_documents", current.UsedDocumentCount).Int64("actual_documents", documents).
		Int64("ledger_shares", current.UsedChatbotShares).Int64("actual_shares", shares).
		Msg("usage ledger drift detected, reconciling")

	return r.db.Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"used_chatbot_count":  chatbots,
			"used_document_count": documents,
			"used_chatbot_shares": shares,
		}).Error
}
