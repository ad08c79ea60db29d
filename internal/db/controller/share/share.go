// Package share provides share-grant operations for chatbots.
//
// Share grants are counted cumulatively per subscription across all of an
// owner's chatbots. Batch creation is all-or-nothing: the full batch is
// reserved as one unit before any grant is written, so a batch that would
// cross the limit creates nothing rather than a partial set.
package share

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/controller/chatbot"
	"github.com/botforge-app/botforge/internal/db/controller/subscription"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/uniuri"
)

const tokenLength = 32

var (
	// ErrShareNotFound is returned when a share grant is not found.
	ErrShareNotFound = errors.New("share grant not found")
	// ErrNoEmails is returned when a batch share request contains no usable addresses.
	ErrNoEmails = errors.New("no email addresses to share with")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// normalizeEmails lowercases and trims the addresses, drops empties, and
// removes duplicates while preserving request order.
func normalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))

	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	return out
}

// CreateBatch shares a chatbot with a batch of email addresses. Addresses
// already holding a grant on the chatbot are skipped, the remainder is
// reserved against the owner's share quota in one piece, and the grants are
// written in a single transaction. Returns the grants created.
func CreateBatch(db *gorm.DB, g *quota.Guard, chatbotID uint64, emails []string) ([]models.ChatbotShare, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	emails = normalizeEmails(emails)
	if len(emails) == 0 {
		return nil, ErrNoEmails
	}

	bot, err := chatbot.Get(db, chatbotID)
	if err != nil {
		return nil, err
	}

	var existing []string
	err = db.Model(&models.ChatbotShare{}).
		Where("chatbot_id = ? AND email IN ?", chatbotID, emails).
		Pluck("email", &existing).Error
	if err != nil {
		return nil, err
	}

	held := make(map[string]struct{}, len(existing))
	for _, email := range existing {
		held[email] = struct{}{}
	}

	fresh := make([]string, 0, len(emails))
	for _, email := range emails {
		if _, ok := held[email]; !ok {
			fresh = append(fresh, email)
		}
	}

	// Every address already holds a grant. Nothing to reserve or write.
	if len(fresh) == 0 {
		return []models.ChatbotShare{}, nil
	}

	sub, err := subscription.GetActiveByUser(db, bot.OwnerID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, quota.ErrSubscriptionInactive
	}
	if err != nil {
		return nil, err
	}

	res, err := g.Reserve(sub.ID, quota.CounterChatbotShares, int64(len(fresh)))
	if err != nil {
		return nil, err
	}
	defer res.Release() //nolint:errcheck // compensation on the error path

	grants := make([]models.ChatbotShare, 0, len(fresh))
	for _, email := range fresh {
		grants = append(grants, models.ChatbotShare{
			ChatbotID: chatbotID,
			OwnerID:   bot.OwnerID,
			Email:     email,
			Token:     uniuri.NewLen(tokenLength),
		})
	}

	if err := db.Create(&grants).Error; err != nil {
		return nil, err
	}

	res.Commit()

	return grants, nil
}

// Get retrieves a share grant by ID.
func Get(db *gorm.DB, id uint64) (*models.ChatbotShare, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var grant models.ChatbotShare
	result := db.First(&grant, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, result.Error
	}

	return &grant, nil
}

// GetByToken retrieves a share grant by its access token.
func GetByToken(db *gorm.DB, token string) (*models.ChatbotShare, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var grant models.ChatbotShare
	result := db.Where("token = ?", token).First(&grant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, result.Error
	}

	return &grant, nil
}

// ListByChatbot retrieves all share grants on a chatbot.
func ListByChatbot(db *gorm.DB, chatbotID uint64) ([]models.ChatbotShare, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var grants []models.ChatbotShare
	result := db.Where("chatbot_id = ?", chatbotID).Order("id ASC").Find(&grants)
	if result.Error != nil {
		return nil, result.Error
	}

	return grants, nil
}

// Delete revokes a share grant and releases a unit of share quota once the
// delete is confirmed. Release errors are not surfaced; the reconciler heals
// the ledger if the release is lost.
func Delete(db *gorm.DB, g *quota.Guard, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	grant, err := Get(db, id)
	if err != nil {
		return err
	}

	result := db.Delete(&models.ChatbotShare{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShareNotFound
	}

	if sub, subErr := subscription.GetActiveByUser(db, grant.OwnerID); subErr == nil {
		_ = g.Release(sub.ID, quota.CounterChatbotShares, 1)
	}

	return nil
}
