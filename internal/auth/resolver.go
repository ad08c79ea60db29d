package auth

import "github.com/botforge-app/botforge/internal/db/models"

// DenyReason is the machine-readable reason attached to a deny decision.
type DenyReason string

const (
	// DenyInsufficientPermission means no grant matched the required (action, resource).
	DenyInsufficientPermission DenyReason = "insufficient_permission"
	// DenyNotOwner means only a self-scoped grant matched and the caller does
	// not own the resource.
	DenyNotOwner DenyReason = "not_owner"
)

// Grant is one effective permission held by a user.
type Grant struct {
	Action   string
	Resource string
	Scope    models.Scope
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// allow is the single allowed decision value.
var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Resolve decides whether a user holding the given grants may perform action
// on a resource of the given kind, owned by ownerID, at the required scope.
//
// Resolve is a pure predicate: no side effects, no caching. The rules are:
//
//   - an all-scoped grant satisfies both all- and self-scoped requirements
//     (all strictly subsumes self);
//   - a self-scoped grant satisfies a self-scoped requirement only when
//     userID == ownerID;
//   - a self-scoped grant never satisfies an all-scoped requirement;
//   - no matching grant at all denies with insufficient_permission; a
//     matching self-scoped grant with a foreign owner denies with not_owner.
//
// A role bundle may carry the same (action, resource) at both scopes; the
// all-scoped grant wins, so the duplicate is harmless.
func Resolve(grants []Grant, action, resource string, required models.Scope, userID, ownerID uint64) Decision {
	var selfMatch bool

	for _, g := range grants {
		if g.Action != action || g.Resource != resource {
			continue
		}

		if g.Scope == models.ScopeAll {
			return allow
		}

		selfMatch = true
	}

	if !selfMatch {
		return deny(DenyInsufficientPermission)
	}

	if required == models.ScopeAll {
		// A self grant never substitutes for an all requirement.
		return deny(DenyInsufficientPermission)
	}

	if userID != ownerID {
		return deny(DenyNotOwner)
	}

	return allow
}
