package quota

import (
	"errors"
	"fmt"
)

var (
	// ErrSubscriptionNotFound is returned when the user has no subscription at all.
	ErrSubscriptionNotFound = errors.New("no subscription found")

	// ErrSubscriptionInactive is returned when the subscription's effective
	// status is expired or cancelled. The remedy is to renew or resubscribe,
	// which is why this is distinct from a quota denial.
	ErrSubscriptionInactive = errors.New("subscription is not active")

	// ErrPublicChatbotNotAllowed is returned when the subscription's plan does
	// not permit publicly visible chatbots.
	ErrPublicChatbotNotAllowed = errors.New("public chatbots are not allowed on this plan")
)

// ExceededError is returned when a reservation or ceiling check is denied.
// It carries the offending counter and the current used/max values for
// user-facing messaging (e.g. "2/2 chatbots used").
type ExceededError struct {
	Counter Counter
	Used    int64
	Max     int64
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d/%d used", e.Counter, e.Used, e.Max)
}

// IsExceeded reports whether err is a quota denial and returns it if so.
func IsExceeded(err error) (*ExceededError, bool) {
	var exceeded *ExceededError
	if errors.As(err, &exceeded) {
		return exceeded, true
	}

	return nil, false
}
