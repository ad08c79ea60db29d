// Package quota implements the subscription usage ledger and its reservation protocol.
//
// The guard is the only component in the system requiring genuine mutual
// exclusion. Every quota-gated resource creation must reserve capacity
// before persisting the resource, and release it if persistence fails or
// when the resource is later deleted.
//
// # Reservation protocol
//
//	res, err := guard.Reserve(subID, quota.CounterChatbots, 1)
//	if err != nil {
//	    return err // quota.ExceededError, quota.ErrSubscriptionInactive, ...
//	}
//	defer res.Release() // compensates unless committed
//
//	// ... persist the resource ...
//
//	res.Commit() // reservation is now backed by a real resource
//
// Reserve linearizes all ledger mutations for one subscription behind a
// per-subscription mutex, and applies the increment as a single conditional
// UPDATE ("set used = used + n only if used + n <= max and the subscription
// is effective-active"), checking rows-affected. The mutex gives single-writer
// discipline inside this process; the conditional UPDATE keeps the increment
// atomic at the storage layer, so multiple service instances sharing one
// database cannot overcommit either. Operations on different subscriptions
// never contend.
//
// Release is the inverse and also runs on resource deletion. It clamps at
// zero: a release that would drive a counter negative indicates an upstream
// double-release, which is logged and counted but never surfaced to callers.
//
// Reads of the ledger (usage displays) are lock-free and tolerate at most one
// in-flight reservation of staleness.
//
// The word-count ceiling and the public-visibility gate are not accumulating
// counters; they are checked per call via CheckDocumentWordCount and
// CheckPublicVisibility.
//
// A Reconciler recomputes all used counters from actual resource counts to
// heal drift from reservations leaked by crashed processes.
package quota
