package quota

import (
	"errors"
	"time"
)

const (
	retryAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

// isFinal reports whether err is a business-rule outcome that must not be
// retried. Retrying a quota denial or an inactive subscription without a
// state change is pointless; only transient storage errors are worth another
// attempt.
func isFinal(err error) bool {
	if errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrSubscriptionInactive) ||
		errors.Is(err, ErrPublicChatbotNotAllowed) {
		return true
	}

	var exceeded *ExceededError

	return errors.As(err, &exceeded)
}

// withRetry runs fn, retrying transient storage errors with linear backoff.
// Domain errors pass through on the first occurrence.
func withRetry(fn func() error) error {
	var err error

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn()
		if err == nil || isFinal(err) {
			return err
		}

		if attempt < retryAttempts {
			time.Sleep(retryBackoff * time.Duration(attempt))
		}
	}

	return err
}
