package share

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	// In-memory SQLite databases are per-connection; keep the pool at one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.Chatbot{},
		&models.ChatbotShare{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedOwnerWithBots inserts a user, an active subscription with the given
// share quota, and the requested number of chatbots.
func seedOwnerWithBots(t *testing.T, db *gorm.DB, maxShares int64, bots int) (*models.Subscription, []models.Chatbot) {
	t.Helper()

	user := &models.User{Active: true, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)

	sub := &models.Subscription{
		UserID:                  user.ID,
		PlanID:                  1,
		StartDate:               time.Now().Add(-time.Hour),
		EndDate:                 time.Now().Add(365 * 24 * time.Hour),
		Status:                  models.SubscriptionActive,
		MaxChatbotCount:         5,
		MaxDocumentCount:        5,
		MaxChatbotShares:        maxShares,
		MaxWordCountPerDocument: 100,
	}
	require.NoError(t, db.Create(sub).Error)

	made := make([]models.Chatbot, 0, bots)
	for i := 0; i < bots; i++ {
		bot := models.Chatbot{OwnerID: user.ID, Name: "bot", Slug: "slug-share-" + string(rune('a'+i))}
		require.NoError(t, db.Create(&bot).Error)
		made = append(made, bot)
	}

	return sub, made
}

func usedShares(t *testing.T, db *gorm.DB, subID uint64) int64 {
	t.Helper()

	var sub models.Subscription
	require.NoError(t, db.First(&sub, subID).Error)

	return sub.UsedChatbotShares
}

func TestCreateBatchConsumesQuota(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	sub, bots := seedOwnerWithBots(t, db, 5, 1)

	grants, err := CreateBatch(db, g, bots[0].ID, []string{"bob@example.com", "carol@example.com"})
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Len(t, grants[0].Token, tokenLength)
	assert.NotEqual(t, grants[0].Token, grants[1].Token)
	assert.Equal(t, int64(2), usedShares(t, db, sub.ID))
}

func TestCreateBatchAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	sub, bots := seedOwnerWithBots(t, db, 3, 1)

	_, err := CreateBatch(db, g, bots[0].ID, []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)

	// One unit remains; a batch of two must create nothing at all.
	_, err = CreateBatch(db, g, bots[0].ID, []string{"c@example.com", "d@example.com"})
	exceeded, ok := quota.IsExceeded(err)
	require.True(t, ok, "expected quota exceeded, got %v", err)
	assert.Equal(t, quota.CounterChatbotShares, exceeded.Counter)

	var count int64
	require.NoError(t, db.Model(&models.ChatbotShare{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(2), usedShares(t, db, sub.ID))

	// A batch that fits the remaining unit still succeeds.
	grants, err := CreateBatch(db, g, bots[0].ID, []string{"c@example.com"})
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestCreateBatchQuotaSpansChatbots(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	_, bots := seedOwnerWithBots(t, db, 2, 2)

	_, err := CreateBatch(db, g, bots[0].ID, []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)

	// The share quota is cumulative across the owner's chatbots.
	_, err = CreateBatch(db, g, bots[1].ID, []string{"c@example.com"})
	_, ok := quota.IsExceeded(err)
	assert.True(t, ok, "expected quota exceeded, got %v", err)
}

func TestCreateBatchDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	sub, bots := seedOwnerWithBots(t, db, 5, 1)

	grants, err := CreateBatch(db, g, bots[0].ID, []string{
		"Bob@Example.com", "bob@example.com", " bob@example.com ", "carol@example.com",
	})
	require.NoError(t, err)
	assert.Len(t, grants, 2)
	assert.Equal(t, int64(2), usedShares(t, db, sub.ID))

	// Re-sharing with an address that already holds a grant is a no-op
	// and consumes nothing.
	grants, err = CreateBatch(db, g, bots[0].ID, []string{"bob@example.com"})
	require.NoError(t, err)
	assert.Empty(t, grants)
	assert.Equal(t, int64(2), usedShares(t, db, sub.ID))
}

func TestCreateBatchNoEmails(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	_, bots := seedOwnerWithBots(t, db, 5, 1)

	_, err := CreateBatch(db, g, bots[0].ID, []string{"", "  "})
	assert.ErrorIs(t, err, ErrNoEmails)
}

func TestDeleteReleasesQuota(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	sub, bots := seedOwnerWithBots(t, db, 1, 1)

	grants, err := CreateBatch(db, g, bots[0].ID, []string{"bob@example.com"})
	require.NoError(t, err)

	require.NoError(t, Delete(db, g, grants[0].ID))
	assert.Equal(t, int64(0), usedShares(t, db, sub.ID))

	_, err = CreateBatch(db, g, bots[0].ID, []string{"carol@example.com"})
	assert.NoError(t, err)
}

func TestGetByToken(t *testing.T) {
	db := setupTestDB(t)
	g := quota.NewGuard(db)
	_, bots := seedOwnerWithBots(t, db, 5, 1)

	grants, err := CreateBatch(db, g, bots[0].ID, []string{"bob@example.com"})
	require.NoError(t, err)

	grant, err := GetByToken(db, grants[0].Token)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", grant.Email)

	_, err = GetByToken(db, "missing-token")
	assert.ErrorIs(t, err, ErrShareNotFound)
}
