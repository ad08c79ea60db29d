package auth

import (
	"fmt"

	"github.com/botforge-app/botforge/internal/db/models"
)

// Action constants define the actions available in the permission catalog.
const (
	// ActionCreate allows creating a resource.
	ActionCreate = "create"
	// ActionRead allows viewing a resource.
	ActionRead = "read"
	// ActionUpdate allows modifying a resource.
	ActionUpdate = "update"
	// ActionDelete allows deleting a resource.
	ActionDelete = "delete"
	// ActionShare allows issuing share grants for a resource.
	ActionShare = "share"
)

// Resource constants define the resource kinds in the permission catalog.
const (
	// ResourceChatbot is the chatbot resource kind.
	ResourceChatbot = "chatbot"
	// ResourceDocument is the knowledge document resource kind.
	ResourceDocument = "document"
	// ResourceRole is the role-administration resource kind.
	ResourceRole = "role"
	// ResourceUser is the user-administration resource kind.
	ResourceUser = "user"
	// ResourcePlan is the plan-administration resource kind.
	ResourcePlan = "plan"
	// ResourceSubscription is the subscription-administration resource kind.
	ResourceSubscription = "subscription"
)

// PermissionName builds the unique catalog name for an (action, resource, scope) tuple.
func PermissionName(action, resource string, scope models.Scope) string {
	return fmt.Sprintf("%s.%s.%s", resource, action, scope)
}

// CatalogEntry describes one immutable permission in the catalog.
type CatalogEntry struct {
	Action      string
	Resource    string
	Scope       models.Scope
	Description string
}

// Name returns the unique catalog name of the entry.
func (e CatalogEntry) Name() string {
	return PermissionName(e.Action, e.Resource, e.Scope)
}

// Catalog returns the full immutable permission catalog.
// The catalog is seeded into the database at startup and never mutated by
// admin operations; roles reference these entries.
func Catalog() []CatalogEntry {
	return []CatalogEntry{
		// Chatbots.
		{ActionCreate, ResourceChatbot, models.ScopeSelf, "Create own chatbots"},
		{ActionRead, ResourceChatbot, models.ScopeSelf, "View own chatbots"},
		{ActionRead, ResourceChatbot, models.ScopeAll, "View any chatbot"},
		{ActionUpdate, ResourceChatbot, models.ScopeSelf, "Edit own chatbots"},
		{ActionUpdate, ResourceChatbot, models.ScopeAll, "Edit any chatbot"},
		{ActionDelete, ResourceChatbot, models.ScopeSelf, "Delete own chatbots"},
		{ActionDelete, ResourceChatbot, models.ScopeAll, "Delete any chatbot"},
		{ActionShare, ResourceChatbot, models.ScopeSelf, "Share own chatbots"},

		// Documents.
		{ActionCreate, ResourceDocument, models.ScopeSelf, "Upload documents to own chatbots"},
		{ActionRead, ResourceDocument, models.ScopeSelf, "View own documents"},
		{ActionRead, ResourceDocument, models.ScopeAll, "View any document"},
		{ActionDelete, ResourceDocument, models.ScopeSelf, "Delete own documents"},
		{ActionDelete, ResourceDocument, models.ScopeAll, "Delete any document"},

		// Administration. Admin resources have no per-resource owner, so only
		// all-scoped entries exist for them.
		{ActionCreate, ResourceRole, models.ScopeAll, "Create roles"},
		{ActionRead, ResourceRole, models.ScopeAll, "View roles and the permission catalog"},
		{ActionUpdate, ResourceRole, models.ScopeAll, "Edit roles and their permissions"},
		{ActionDelete, ResourceRole, models.ScopeAll, "Delete roles"},
		{ActionRead, ResourceUser, models.ScopeAll, "View user accounts"},
		{ActionCreate, ResourceUser, models.ScopeAll, "Create user accounts"},
		{ActionUpdate, ResourceUser, models.ScopeAll, "Edit user accounts and role assignments"},
		{ActionCreate, ResourcePlan, models.ScopeAll, "Create plans"},
		{ActionRead, ResourcePlan, models.ScopeAll, "View plans"},
		{ActionUpdate, ResourcePlan, models.ScopeAll, "Edit plans"},
		{ActionDelete, ResourcePlan, models.ScopeAll, "Delete plans"},
		{ActionCreate, ResourceSubscription, models.ScopeAll, "Create subscriptions"},
		{ActionRead, ResourceSubscription, models.ScopeAll, "View subscriptions"},
		{ActionDelete, ResourceSubscription, models.ScopeAll, "Cancel subscriptions"},
		{ActionCreate, ResourceSubscription, models.ScopeSelf, "Subscribe to a plan"},
		{ActionRead, ResourceSubscription, models.ScopeSelf, "View own subscription and usage"},
		{ActionDelete, ResourceSubscription, models.ScopeSelf, "Cancel own subscription"},
	}
}
