// Package chatbot provides lifecycle operations for chatbots.
//
// Creation follows the mandatory quota ordering: reserve capacity first, then
// persist, and release the reservation if persistence fails. Deletion
// releases capacity once the delete is confirmed. Reserving before persisting
// is what prevents two concurrent requests from both passing a stale
// "capacity available" read and overcommitting the plan.
package chatbot

import (
	"errors"

	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/controller/subscription"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/uniuri"
)

const slugLength = 16

var (
	// ErrChatbotNotFound is returned when a chatbot is not found.
	ErrChatbotNotFound = errors.New("chatbot not found")
	// ErrChatbotNameEmpty is returned when attempting to create a chatbot with an empty name.
	ErrChatbotNameEmpty = errors.New("chatbot name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// activeSubscription resolves the owner's effective-active subscription.
// An absent subscription denies quota-gated actions the same way an expired
// or cancelled one does.
func activeSubscription(db *gorm.DB, ownerID uint64) (*models.Subscription, error) {
	sub, err := subscription.GetActiveByUser(db, ownerID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, quota.ErrSubscriptionInactive
	}
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Create persists a new chatbot for the owner after reserving a unit of the
// owner's chatbot quota. The reservation is released if the persist fails.
func Create(db *gorm.DB, g *quota.Guard, ownerID uint64, name, model, systemPrompt string) (*models.Chatbot, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrChatbotNameEmpty
	}

	sub, err := activeSubscription(db, ownerID)
	if err != nil {
		return nil, err
	}

	res, err := g.Reserve(sub.ID, quota.CounterChatbots, 1)
	if err != nil {
		return nil, err
	}
	defer res.Release() //nolint:errcheck // compensation on the error path

	bot := &models.Chatbot{
		OwnerID:      ownerID,
		Name:         name,
		Slug:         uniuri.NewLen(slugLength),
		Model:        model,
		SystemPrompt: systemPrompt,
	}

	if err := db.Create(bot).Error; err != nil {
		return nil, err
	}

	res.Commit()

	return bot, nil
}

// Get retrieves a chatbot by ID.
func Get(db *gorm.DB, id uint64) (*models.Chatbot, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var bot models.Chatbot
	result := db.First(&bot, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrChatbotNotFound
		}
		return nil, result.Error
	}

	return &bot, nil
}

// ListByOwner retrieves all chatbots owned by a user.
func ListByOwner(db *gorm.DB, ownerID uint64) ([]models.Chatbot, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var bots []models.Chatbot
	result := db.Where("owner_id = ?", ownerID).Order("id DESC").Find(&bots)
	if result.Error != nil {
		return nil, result.Error
	}

	return bots, nil
}

// GetAll retrieves all chatbots. Intended for all-scoped administrative reads.
func GetAll(db *gorm.DB) ([]models.Chatbot, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var bots []models.Chatbot
	result := db.Order("id DESC").Find(&bots)
	if result.Error != nil {
		return nil, result.Error
	}

	return bots, nil
}

// Update updates a chatbot's mutable fields. Ownership is immutable and
// visibility is changed through SetVisibility, not here.
func Update(db *gorm.DB, id uint64, name, model, systemPrompt string) (*models.Chatbot, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrChatbotNameEmpty
	}

	bot, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	bot.Name = name
	bot.Model = model
	bot.SystemPrompt = systemPrompt

	if err := db.Save(bot).Error; err != nil {
		return nil, err
	}

	return bot, nil
}

// SetVisibility flips a chatbot's public visibility. Making a chatbot public
// is gated by the owner's subscription flag, regardless of count quotas.
// Making it private is always allowed.
func SetVisibility(db *gorm.DB, g *quota.Guard, id uint64, public bool) (*models.Chatbot, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	bot, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if public {
		sub, err := activeSubscription(db, bot.OwnerID)
		if err != nil {
			return nil, err
		}

		if err := g.CheckPublicVisibility(sub.ID); err != nil {
			return nil, err
		}
	}

	bot.Public = public

	if err := db.Save(bot).Error; err != nil {
		return nil, err
	}

	return bot, nil
}

// Delete deletes a chatbot together with its documents and share grants, then
// releases the freed capacity back to the ledger. Releases run after the
// delete is confirmed; release errors on a confirmed delete are not surfaced
// since the resource is gone and the reconciler will heal the ledger.
func Delete(db *gorm.DB, g *quota.Guard, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	bot, err := Get(db, id)
	if err != nil {
		return err
	}

	var documents, shares int64

	err = db.Transaction(func(tx *gorm.DB) error {
		docResult := tx.Where("chatbot_id = ?", id).Delete(&models.Document{})
		if docResult.Error != nil {
			return docResult.Error
		}
		documents = docResult.RowsAffected

		shareResult := tx.Where("chatbot_id = ?", id).Delete(&models.ChatbotShare{})
		if shareResult.Error != nil {
			return shareResult.Error
		}
		shares = shareResult.RowsAffected

		return tx.Delete(&models.Chatbot{}, id).Error
	})
	if err != nil {
		return err
	}

	if sub, subErr := activeSubscription(db, bot.OwnerID); subErr == nil {
		_ = g.Release(sub.ID, quota.CounterChatbots, 1)

		if documents > 0 {
			_ = g.Release(sub.ID, quota.CounterDocuments, documents)
		}

		if shares > 0 {
			_ = g.Release(sub.ID, quota.CounterChatbotShares, shares)
		}
	}

	return nil
}
