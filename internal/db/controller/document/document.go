// Package document provides lifecycle operations for chatbot knowledge
// documents.
//
// Documents are gated on two independent axes. The subscription's document
// count is an accumulating counter and follows the reserve-persist-release
// protocol. The per-document word ceiling is a property of each document
// individually and is checked before any counter is reserved; a thousand
// small documents never add up to a word-limit violation.
package document

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/controller/chatbot"
	"github.com/botforge-app/botforge/internal/db/controller/subscription"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
)

var (
	// ErrDocumentNotFound is returned when a document is not found.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentTitleEmpty is returned when attempting to create a document with an empty title.
	ErrDocumentTitleEmpty = errors.New("document title cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// CountWords returns the number of whitespace-separated tokens in content.
// This is the count the word ceiling is enforced against and the count
// stored on the document record.
func CountWords(content string) int64 {
	return int64(len(strings.Fields(content)))
}

// Create persists a new document on a chatbot after checking the owner's
// per-document word ceiling and reserving a unit of document quota. The
// reservation is released if the persist fails.
func Create(db *gorm.DB, g *quota.Guard, chatbotID uint64, title, content string) (*models.Document, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if title == "" {
		return nil, ErrDocumentTitleEmpty
	}

	bot, err := chatbot.Get(db, chatbotID)
	if err != nil {
		return nil, err
	}

	sub, err := subscription.GetActiveByUser(db, bot.OwnerID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, quota.ErrSubscriptionInactive
	}
	if err != nil {
		return nil, err
	}

	words := CountWords(content)

	if err := g.CheckDocumentWordCount(sub.ID, words); err != nil {
		return nil, err
	}

	res, err := g.Reserve(sub.ID, quota.CounterDocuments, 1)
	if err != nil {
		return nil, err
	}
	defer res.Release() //nolint:errcheck // compensation on the error path

	doc := &models.Document{
		OwnerID:   bot.OwnerID,
		ChatbotID: chatbotID,
		Title:     title,
		Content:   content,
		WordCount: words,
	}

	if err := db.Create(doc).Error; err != nil {
		return nil, err
	}

	res.Commit()

	return doc, nil
}

// Get retrieves a document by ID.
func Get(db *gorm.DB, id uint64) (*models.Document, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var doc models.Document
	result := db.First(&doc, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, result.Error
	}

	return &doc, nil
}

// ListByChatbot retrieves all documents attached to a chatbot.
func ListByChatbot(db *gorm.DB, chatbotID uint64) ([]models.Document, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var docs []models.Document
	result := db.Where("chatbot_id = ?", chatbotID).Order("id DESC").Find(&docs)
	if result.Error != nil {
		return nil, result.Error
	}

	return docs, nil
}

// Update replaces a document's title and content. The new content is checked
// against the owner's word ceiling before the write. No counter moves; the
// document count is unchanged by an update.
func Update(db *gorm.DB, g *quota.Guard, id uint64, title, content string) (*models.Document, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if title == "" {
		return nil, ErrDocumentTitleEmpty
	}

	doc, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	sub, err := subscription.GetActiveByUser(db, doc.OwnerID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, quota.ErrSubscriptionInactive
	}
	if err != nil {
		return nil, err
	}

	words := CountWords(content)

	if err := g.CheckDocumentWordCount(sub.ID, words); err != nil {
		return nil, err
	}

	doc.Title = title
	doc.Content = content
	doc.WordCount = words

	if err := db.Save(doc).Error; err != nil {
		return nil, err
	}

	return doc, nil
}

// Delete deletes a document and releases a unit of document quota once the
// delete is confirmed. Release errors are not surfaced; the reconciler heals
// the ledger if the release is lost.
func Delete(db *gorm.DB, g *quota.Guard, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	doc, err := Get(db, id)
	if err != nil {
		return err
	}

	result := db.Delete(&models.Document{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}

	if sub, subErr := subscription.GetActiveByUser(db, doc.OwnerID); subErr == nil {
		_ = g.Release(sub.ID, quota.CounterDocuments, 1)
	}

	return nil
}
