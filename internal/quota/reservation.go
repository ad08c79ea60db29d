package quota

import "sync/atomic"

// Reservation is a provisional claim against a quota counter, handed out by
// Guard.Reserve before the corresponding resource is persisted.
//
// The caller commits the reservation once the resource write succeeds, and
// releases it otherwise. Release after Commit is a no-op, so the idiomatic
// call site defers the release unconditionally:
//
//	res, err := guard.Reserve(subID, quota.CounterChatbots, 1)
//	if err != nil { ... }
//	defer res.Release()
//	// persist resource
//	res.Commit()
type Reservation struct {
	guard          *Guard
	subscriptionID uint64
	counter        Counter
	amount         int64

	// 0 = pending, 1 = committed, 2 = released
	state atomic.Int32
}

// Commit marks the reservation as backed by a persisted resource. The claimed
// capacity stays consumed until the resource is deleted.
func (r *Reservation) Commit() {
	r.state.CompareAndSwap(0, 1)
}

// Release undoes the reservation if it was not committed. Safe to call more
// than once and safe to defer before the outcome is known.
func (r *Reservation) Release() error {
	if !r.state.CompareAndSwap(0, 2) {
		return nil
	}

	return r.guard.Release(r.subscriptionID, r.counter, r.amount)
}

// Amount returns the number of units this reservation claimed.
func (r *Reservation) Amount() int64 {
	return r.amount
}
