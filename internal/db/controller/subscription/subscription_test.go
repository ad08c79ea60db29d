package subscription

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{Active: true, Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Create(user).Error, "failed to seed user")

	return user
}

func seedTestPlan(t *testing.T, db *gorm.DB, name string) *models.Plan {
	t.Helper()

	plan := &models.Plan{
		Name:                    name,
		DurationDays:            30,
		MaxChatbotCount:         3,
		MaxChatbotShares:        10,
		MaxDocumentCount:        20,
		MaxWordCountPerDocument: 5000,
		IsPublicChatbotAllowed:  true,
	}
	require.NoError(t, db.Create(plan).Error, "failed to seed plan")

	return plan
}

func TestCreateDenormalizesPlanLimits(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	sub, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, int64(3), sub.MaxChatbotCount)
	assert.Equal(t, int64(10), sub.MaxChatbotShares)
	assert.Equal(t, int64(20), sub.MaxDocumentCount)
	assert.Equal(t, int64(5000), sub.MaxWordCountPerDocument)
	assert.True(t, sub.IsPublicChatbotAllowed)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), sub.EndDate, time.Minute)

	// A later plan edit must not leak into the issued subscription.
	require.NoError(t, db.Model(plan).Update("max_chatbot_count", 99).Error)

	reloaded, err := Get(db, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), reloaded.MaxChatbotCount)
}

func TestCreateUnknownReferences(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	_, err := Create(db, 999, plan.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = Create(db, user.ID, 999)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSingleActiveSubscription(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	first, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)

	_, err = Create(db, user.ID, plan.ID)
	assert.ErrorIs(t, err, ErrDuplicateActiveSubscription)

	// Cancelling the live subscription clears the way for a new one.
	require.NoError(t, Cancel(db, first.ID))

	_, err = Create(db, user.ID, plan.ID)
	assert.NoError(t, err)
}

func TestStaleActiveRowDoesNotBlock(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	// A row stamped "active" whose period has ended. The expiry job has not
	// run; effective status must carry the decision anyway.
	stale := &models.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		StartDate: time.Now().AddDate(0, 0, -60),
		EndDate:   time.Now().AddDate(0, 0, -30),
		Status:    models.SubscriptionActive,
	}
	require.NoError(t, db.Create(stale).Error)

	_, err := Create(db, user.ID, plan.ID)
	assert.NoError(t, err)
}

func TestGetActiveByUser(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	_, err := GetActiveByUser(db, user.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	sub, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)

	active, err := GetActiveByUser(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, active.ID)

	require.NoError(t, Cancel(db, sub.ID))

	_, err = GetActiveByUser(db, user.ID)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestCancelIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	sub, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)

	require.NoError(t, Cancel(db, sub.ID))
	assert.ErrorIs(t, Cancel(db, sub.ID), ErrSubscriptionAlreadyCancelled)

	reloaded, err := Get(db, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, reloaded.Status)
	assert.Equal(t, models.SubscriptionCancelled, reloaded.EffectiveStatus(time.Now()))
}

func TestFlipExpired(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	past := &models.Subscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		StartDate: time.Now().AddDate(0, 0, -60),
		EndDate:   time.Now().AddDate(0, 0, -30),
		Status:    models.SubscriptionActive,
	}
	require.NoError(t, db.Create(past).Error)

	live, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)

	require.NoError(t, FlipExpired(db))

	var stamped models.Subscription
	require.NoError(t, db.First(&stamped, past.ID).Error)
	assert.Equal(t, models.SubscriptionExpired, stamped.Status)

	var untouched models.Subscription
	require.NoError(t, db.First(&untouched, live.ID).Error)
	assert.Equal(t, models.SubscriptionActive, untouched.Status)
}

func TestListByUser(t *testing.T) {
	db := setupTestDB(t)
	user := seedTestUser(t, db, "alice")
	plan := seedTestPlan(t, db, "starter")

	first, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)
	require.NoError(t, Cancel(db, first.ID))

	second, err := Create(db, user.ID, plan.ID)
	require.NoError(t, err)

	subs, err := ListByUser(db, user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].ID)
	assert.Equal(t, "starter", subs[0].Plan.Name)
}
