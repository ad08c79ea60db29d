package quota

import (
	"sync"
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

	// In-memory SQLite databases are per-connection; keep the pool at one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.Chatbot{},
		&models.Document{},
		&models.ChatbotShare{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedSubscription inserts a subscription with the given limits, active for a year.
func seedSubscription(t *testing.T, db *gorm.DB, userID uint64, maxChatbots, maxDocs, maxShares int64) *models.Subscription {
	t.Helper()

	sub := &models.Subscription{
		UserID:                  userID,
		PlanID:                  1,
		StartDate:               time.Now().Add(-time.Hour),
		EndDate:                 time.Now().Add(365 * 24 * time.Hour),
		Status:                  models.SubscriptionActive,
		MaxChatbotCount:         maxChatbots,
		MaxDocumentCount:        maxDocs,
		MaxChatbotShares:        maxShares,
		MaxWordCountPerDocument: 10,
	}
	require.NoError(t, db.Create(sub).Error, "failed to seed subscription")

	return sub
}

func seedTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{Active: true, Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Create(user).Error, "failed to seed user")

	return user
}

func reloadSubscription(t *testing.T, db *gorm.DB, id uint64) *models.Subscription {
	t.Helper()

	var sub models.Subscription
	require.NoError(t, db.First(&sub, id).Error)

	return &sub
}

func TestReserveCeiling(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	res1, err := g.Reserve(sub.ID, CounterChatbots, 1)
	require.NoError(t, err)
	res1.Commit()

	res2, err := g.Reserve(sub.ID, CounterChatbots, 1)
	require.NoError(t, err)
	res2.Commit()

	_, err = g.Reserve(sub.ID, CounterChatbots, 1)
	require.Error(t, err)

	exceeded, ok := IsExceeded(err)
	require.True(t, ok, "third reservation must be a quota denial")
	assert.Equal(t, CounterChatbots, exceeded.Counter)
	assert.Equal(t, int64(2), exceeded.Used)
	assert.Equal(t, int64(2), exceeded.Max)

	// Denial must not mutate state.
	assert.Equal(t, int64(2), reloadSubscription(t, db, sub.ID).UsedChatbotCount)
}

func TestReleaseFreesCapacity(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	for i := 0; i < 2; i++ {
		res, err := g.Reserve(sub.ID, CounterChatbots, 1)
		require.NoError(t, err)
		res.Commit()
	}

	_, err := g.Reserve(sub.ID, CounterChatbots, 1)
	require.Error(t, err)

	// Deleting a resource releases its unit; the next creation fits again.
	require.NoError(t, g.Release(sub.ID, CounterChatbots, 1))

	res, err := g.Reserve(sub.ID, CounterChatbots, 1)
	require.NoError(t, err)
	res.Commit()

	assert.Equal(t, int64(2), reloadSubscription(t, db, sub.ID).UsedChatbotCount)
}

func TestReservationCompensation(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	// Simulated persistence failure: reservation deferred-released, capacity restored.
	func() {
		res, err := g.Reserve(sub.ID, CounterChatbots, 1)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, res.Release())
		}()
		// persistence fails here, Commit never runs
	}()

	assert.Equal(t, int64(0), reloadSubscription(t, db, sub.ID).UsedChatbotCount)

	// Committed reservations survive the deferred release.
	func() {
		res, err := g.Reserve(sub.ID, CounterChatbots, 1)
		require.NoError(t, err)
		defer func() {
			require.NoError(t, res.Release())
		}()
		res.Commit()
	}()

	assert.Equal(t, int64(1), reloadSubscription(t, db, sub.ID).UsedChatbotCount)
}

func TestReleaseClampsAtZero(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	// A double-release must clamp at zero and not error.
	require.NoError(t, g.Release(sub.ID, CounterChatbots, 1))
	assert.Equal(t, int64(0), reloadSubscription(t, db, sub.ID).UsedChatbotCount)
}

func TestConcurrentReservationSafety(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")

	const (
		remaining = 3
		callers   = 10
	)

	sub := seedSubscription(t, db, user.ID, remaining, 5, 5)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		denied    int
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := g.Reserve(sub.ID, CounterChatbots, 1)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				_, ok := IsExceeded(err)
				assert.True(t, ok, "only quota denials expected, got %v", err)
				denied++

				return
			}

			res.Commit()
			succeeded++
		}()
	}

	wg.Wait()

	assert.Equal(t, remaining, succeeded, "exactly the remaining capacity succeeds")
	assert.Equal(t, callers-remaining, denied)
	assert.Equal(t, int64(remaining), reloadSubscription(t, db, sub.ID).UsedChatbotCount,
		"no interleaving may produce used > max")
}

func TestBatchReservationAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 5, 5, 2)

	// Three units against two remaining slots: the whole batch is denied.
	_, err := g.Reserve(sub.ID, CounterChatbotShares, 3)
	require.Error(t, err)

	exceeded, ok := IsExceeded(err)
	require.True(t, ok)
	assert.Equal(t, CounterChatbotShares, exceeded.Counter)
	assert.Equal(t, int64(0), reloadSubscription(t, db, sub.ID).UsedChatbotShares)

	// Two units fit, atomically.
	res, err := g.Reserve(sub.ID, CounterChatbotShares, 2)
	require.NoError(t, err)
	res.Commit()
	assert.Equal(t, int64(2), reloadSubscription(t, db, sub.ID).UsedChatbotShares)
}

func TestLazyExpiryDerivation(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	// Simulate a lagging background job: end date in the past while the
	// stored status still reads active.
	require.NoError(t, db.Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Update("end_date", time.Now().Add(-time.Hour)).Error)
	assert.Equal(t, models.SubscriptionActive, reloadSubscription(t, db, sub.ID).Status)

	_, err := g.Reserve(sub.ID, CounterChatbots, 1)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)

	err = g.CheckDocumentWordCount(sub.ID, 5)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)

	err = g.CheckPublicVisibility(sub.ID)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)

	_, err = g.Snapshot(sub.ID)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)
}

func TestReserveCancelledSubscription(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	require.NoError(t, db.Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Update("status", models.SubscriptionCancelled).Error)

	_, err := g.Reserve(sub.ID, CounterChatbots, 1)
	assert.ErrorIs(t, err, ErrSubscriptionInactive)
}

func TestReserveUnknownSubscription(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)

	_, err := g.Reserve(12345, CounterChatbots, 1)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestWordCountCeiling(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5) // word ceiling 10

	require.NoError(t, g.CheckDocumentWordCount(sub.ID, 10))

	err := g.CheckDocumentWordCount(sub.ID, 12)
	require.Error(t, err)

	exceeded, ok := IsExceeded(err)
	require.True(t, ok)
	assert.Equal(t, CounterWordsPerDocument, exceeded.Counter)
	assert.Equal(t, int64(12), exceeded.Used)
	assert.Equal(t, int64(10), exceeded.Max)
}

func TestPublicVisibilityGate(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 2, 5, 5)

	// Gate closed regardless of remaining count quota.
	assert.ErrorIs(t, g.CheckPublicVisibility(sub.ID), ErrPublicChatbotNotAllowed)

	require.NoError(t, db.Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Update("is_public_chatbot_allowed", true).Error)

	assert.NoError(t, g.CheckPublicVisibility(sub.ID))
}

func TestSnapshot(t *testing.T) {
	db := setupTestDB(t)
	g := NewGuard(db)
	user := seedTestUser(t, db, "alice")
	sub := seedSubscription(t, db, user.ID, 5, 7, 9)

	res, err := g.Reserve(sub.ID, CounterDocuments, 2)
	require.NoError(t, err)
	res.Commit()

	snapshot, err := g.Snapshot(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, Usage{Used: 0, Max: 5}, snapshot[CounterChatbots])
	assert.Equal(t, Usage{Used: 2, Max: 7}, snapshot[CounterDocuments])
	assert.Equal(t, Usage{Used: 0, Max: 9}, snapshot[CounterChatbotShares])
}
