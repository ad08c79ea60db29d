package models

import "time"

// Scope describes the breadth of a permission grant.
// ScopeAll covers every resource of a kind, ScopeSelf only resources owned by the caller.
type Scope string

const (
	// ScopeAll grants access to any resource of the permission's kind.
	ScopeAll Scope = "all"
	// ScopeSelf grants access only to resources owned by the acting user.
	ScopeSelf Scope = "self"
)

// Permission represents a specific permission in the authorization system.
// A permission is an immutable (action, resource, scope) tuple seeded at startup.
// Permissions are assigned to roles, which are then assigned to users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the unique permission identifier in resource.action.scope format
	// (e.g., "chatbot.create.self").
	Name string `gorm:"unique;size:100;not null"`
	// Resource is the resource kind this permission applies to (e.g., "chatbot", "document").
	Resource string `gorm:"size:100;not null"`
	// Action is the action allowed on the resource (e.g., "create", "read", "update", "delete").
	Action string `gorm:"size:50;not null"`
	// Scope is the breadth of the grant ("all" or "self").
	Scope Scope `gorm:"type:varchar(10);not null;default:'self'"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
// This overrides GORM's default pluralized table naming.
func (Permission) TableName() string {
	return "permissions"
}
