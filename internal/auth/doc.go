// Package auth provides authentication and authorization functionality for the platform.
//
// This package implements a scope-aware Role-Based Access Control (RBAC) system
// on top of an immutable permission catalog:
//   - Permissions are (action, resource, scope) tuples seeded at startup
//   - Roles are named bundles of catalog permissions
//   - Users hold zero or more roles; their effective permission set is the
//     union of all assigned roles' permissions
//   - A user with no roles has no permissions (fail-closed)
//
// # Scopes
//
// Every permission carries a scope: "all" covers any resource of its kind,
// "self" only resources owned by the acting user. An all-scoped grant
// strictly subsumes a self-scoped requirement; a self-scoped grant never
// satisfies an all-scoped requirement.
//
// # Authorization
//
// Resolve is the pure decision function: given a user's grants, a required
// (action, resource, scope) and the resource owner, it returns Allow or a
// Deny with a machine-readable reason ("insufficient_permission" or
// "not_owner"). It has no side effects and no caching: role assignments can
// change between requests, so every request is resolved fresh.
//
// The Service type loads a user's grants from the database and applies
// Resolve:
//   - Authorize: full scope-aware decision for a concrete resource
//   - HasPermission: capability check without an owner (all-scope only)
//   - GetUserGrants: the effective permission set of a user
//
// # Middleware
//
// Fiber middleware functions are provided for route protection:
//   - RequirePermission: protect routes behind a capability check
//   - RequireAuthenticated: protect routes behind session validity only
//
// Self-scoped decisions need the concrete resource owner and are therefore
// made inside handlers via Service.Authorize, not in middleware.
//
// Example usage:
//
//	// Initialize auth service
//	authService := auth.NewService(db)
//
//	// Capability check in middleware
//	app.Post("/api/chatbots",
//	    auth.RequirePermission(authService, auth.ActionCreate, auth.ResourceChatbot),
//	    handler,
//	)
//
//	// Ownership-aware check in a handler
//	decision, err := authService.Authorize(userID, auth.ActionDelete, auth.ResourceChatbot,
//	    models.ScopeSelf, chatbot.OwnerID)
package auth
