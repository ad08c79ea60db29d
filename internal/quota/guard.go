package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/metrics"
)

// Counter identifies one accumulating usage counter on a subscription.
type Counter string

const (
	// CounterChatbots counts chatbots owned under a subscription.
	CounterChatbots Counter = "chatbot_count"
	// CounterDocuments counts documents owned under a subscription.
	CounterDocuments Counter = "document_count"
	// CounterChatbotShares counts share grants cumulatively across all of a
	// subscription's chatbots.
	CounterChatbotShares Counter = "chatbot_shares"

	// CounterWordsPerDocument is not an accumulating counter; it names the
	// per-document word ceiling in quota denials.
	CounterWordsPerDocument Counter = "word_count_per_document"
)

// columns returns the used/max column pair for an accumulating counter.
func (c Counter) columns() (used, max string, err error) {
	switch c {
	case CounterChatbots:
		return "used_chatbot_count", "max_chatbot_count", nil
	case CounterDocuments:
		return "used_document_count", "max_document_count", nil
	case CounterChatbotShares:
		return "used_chatbot_shares", "max_chatbot_shares", nil
	default:
		return "", "", fmt.Errorf("counter %q is not an accumulating counter", c)
	}
}

// usedValue reads the counter's used value from a subscription record.
func (c Counter) usedValue(sub *models.Subscription) int64 {
	switch c {
	case CounterChatbots:
		return sub.UsedChatbotCount
	case CounterDocuments:
		return sub.UsedDocumentCount
	case CounterChatbotShares:
		return sub.UsedChatbotShares
	default:
		return 0
	}
}

// maxValue reads the counter's limit from a subscription record.
func (c Counter) maxValue(sub *models.Subscription) int64 {
	switch c {
	case CounterChatbots:
		return sub.MaxChatbotCount
	case CounterDocuments:
		return sub.MaxDocumentCount
	case CounterChatbotShares:
		return sub.MaxChatbotShares
	default:
		return 0
	}
}

// Guard serializes all ledger mutations per subscription and applies them as
// atomic conditional updates. Construct with NewGuard.
type Guard struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex

	// now is swappable for tests of lazy expiry derivation.
	now func() time.Time
}

// NewGuard creates a quota guard over the given database.
func NewGuard(db *gorm.DB) *Guard {
	return &Guard{
		db:    db,
		locks: make(map[uint64]*sync.Mutex),
		now:   time.Now,
	}
}

// lockFor returns the mutex serializing operations on one subscription.
// Locks for different subscriptions never contend with each other.
func (g *Guard) lockFor(subscriptionID uint64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.locks[subscriptionID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[subscriptionID] = l
	}

	return l
}

// load fetches the subscription and verifies its effective status is active.
// The stored status field is never trusted for active/expired.
func (g *Guard) load(subscriptionID uint64) (*models.Subscription, error) {
	var sub models.Subscription

	err := g.db.First(&sub, subscriptionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	if !sub.IsEffectiveActive(g.now()) {
		return nil, ErrSubscriptionInactive
	}

	return &sub, nil
}

// Reserve atomically claims amount units of the counter on the subscription.
// The returned reservation must be committed once the corresponding resource
// is persisted, or released if persistence fails; callers should defer the
// release so the compensation is guaranteed on every error path.
//
// Either all amount units fit under the remaining capacity or the whole
// reservation is denied; there is no partial acceptance.
func (g *Guard) Reserve(subscriptionID uint64, counter Counter, amount int64) (*Reservation, error) {
	usedCol, maxCol, err := counter.columns()
	if err != nil {
		return nil, err
	}

	if amount <= 0 {
		return nil, fmt.Errorf("reservation amount must be positive, got %d", amount)
	}

	l := g.lockFor(subscriptionID)
	l.Lock()
	defer l.Unlock()

	err = withRetry(func() error {
		sub, loadErr := g.load(subscriptionID)
		if loadErr != nil {
			return loadErr
		}

		// Conditional increment: succeeds only while capacity remains and the
		// subscription is still effective-active. Checking rows-affected makes
		// the claim atomic at the storage layer, so concurrent callers (even
		// from other service instances) cannot overcommit.
		result := g.db.Model(&models.Subscription{}).
			Where("id = ?", subscriptionID).
			Where("status <> ?", models.SubscriptionCancelled).
			Where("end_date >= ?", g.now()).
			Where(fmt.Sprintf("%s + ? <= %s", usedCol, maxCol), amount).
			Update(usedCol, gorm.Expr(fmt.Sprintf("%s + ?", usedCol), amount))
		if result.Error != nil {
			return fmt.Errorf("failed to reserve quota: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return &ExceededError{
				Counter: counter,
				Used:    counter.usedValue(sub),
				Max:     counter.maxValue(sub),
			}
		}

		return nil
	})
	if err != nil {
		metrics.QuotaDenied(string(counter))
		return nil, err
	}

	metrics.QuotaReserved(string(counter))

	return &Reservation{
		guard:          g,
		subscriptionID: subscriptionID,
		counter:        counter,
		amount:         amount,
	}, nil
}

// Release frees amount units of the counter, either as compensation for a
// failed persistence or on resource deletion. It never drives a counter below
// zero: an underflowing release is clamped at zero and logged, because it
// indicates an upstream double-release rather than a user-facing error.
func (g *Guard) Release(subscriptionID uint64, counter Counter, amount int64) error {
	usedCol, _, err := counter.columns()
	if err != nil {
		return err
	}

	if amount <= 0 {
		return fmt.Errorf("release amount must be positive, got %d", amount)
	}

	l := g.lockFor(subscriptionID)
	l.Lock()
	defer l.Unlock()

	return withRetry(func() error {
		result := g.db.Model(&models.Subscription{}).
			Where("id = ?", subscriptionID).
			Where(fmt.Sprintf("%s >= ?", usedCol), amount).
			Update(usedCol, gorm.Expr(fmt.Sprintf("%s - ?", usedCol), amount))
		if result.Error != nil {
			return fmt.Errorf("failed to release quota: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			// Clamp at zero. The missing capacity was never reserved, so
			// surfacing an error would punish the wrong caller.
			clamp := g.db.Model(&models.Subscription{}).
				Where("id = ?", subscriptionID).
				Update(usedCol, 0)
			if clamp.Error != nil {
				return fmt.Errorf("failed to clamp quota counter: %w", clamp.Error)
			}

			metrics.QuotaClamped(string(counter))
			log.Warn().
				Uint64("subscription_id", subscriptionID).
				Str("counter", string(counter)).
				Int64("amount", amount).
				Msg("quota release clamped at zero, upstream double-release suspected")
		}

		return nil
	})
}

// Usage is the read-side view of one counter: a used/max pair.
type Usage struct {
	Used int64 `json:"used"`
	Max  int64 `json:"max"`
}

// Snapshot reports the current usage of all counters without blocking
// writers. The snapshot tolerates at most one in-flight reservation of
// staleness.
func (g *Guard) Snapshot(subscriptionID uint64) (map[Counter]Usage, error) {
	sub, err := g.load(subscriptionID)
	if err != nil {
		return nil, err
	}

	return map[Counter]Usage{
		CounterChatbots:      {Used: sub.UsedChatbotCount, Max: sub.MaxChatbotCount},
		CounterDocuments:     {Used: sub.UsedDocumentCount, Max: sub.MaxDocumentCount},
		CounterChatbotShares: {Used: sub.UsedChatbotShares, Max: sub.MaxChatbotShares},
	}, nil
}

// CheckDocumentWordCount enforces the per-document word ceiling. This is a
// per-resource check, not an accumulating counter: a document over the limit
// is rejected outright with no partial acceptance and no reservation.
func (g *Guard) CheckDocumentWordCount(subscriptionID uint64, words int64) error {
	sub, err := g.load(subscriptionID)
	if err != nil {
		return err
	}

	if words > sub.MaxWordCountPerDocument {
		return &ExceededError{
			Counter: CounterWordsPerDocument,
			Used:    words,
			Max:     sub.MaxWordCountPerDocument,
		}
	}

	return nil
}

// CheckPublicVisibility enforces the public-chatbot boolean gate. Any attempt
// to make a chatbot public under a plan without the flag is denied regardless
// of count-based quotas.
func (g *Guard) CheckPublicVisibility(subscriptionID uint64) error {
	sub, err := g.load(subscriptionID)
	if err != nil {
		return err
	}

	if !sub.IsPublicChatbotAllowed {
		return ErrPublicChatbotNotAllowed
	}

	return nil
}
