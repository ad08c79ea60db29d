package auth

import "errors"

var (
	// ErrInsufficientPermission is returned when a user holds no grant matching
	// the required action and resource.
	ErrInsufficientPermission = errors.New("insufficient permission")

	// ErrNotOwner is returned when a user holds only a self-scoped grant and
	// does not own the resource being acted on.
	ErrNotOwner = errors.New("not the resource owner")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrUserNameOrEmailExists is returned when attempting to create a user with a username or email that already exists.
	ErrUserNameOrEmailExists = errors.New("user with username or email already exists")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")
)

// DecisionError converts a deny decision into its sentinel error.
// Allowed decisions map to nil.
func DecisionError(d Decision) error {
	if d.Allowed {
		return nil
	}

	if d.Reason == DenyNotOwner {
		return ErrNotOwner
	}

	return ErrInsufficientPermission
}
