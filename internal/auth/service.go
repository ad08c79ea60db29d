package auth

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/metrics"
)

// Service provides database-backed authorization functionality.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetUserGrants retrieves a user's effective permission set: the union of all
// assigned roles' permissions. The set is loaded fresh on every call because
// role and permission assignment can change between requests.
func (s *Service) GetUserGrants(userID uint64) ([]Grant, error) {
	var perms []models.Permission

	err := s.db.Table("permissions").
		Select("DISTINCT permissions.*").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user grants: %w", err)
	}

	grants := make([]Grant, 0, len(perms))
	for _, p := range perms {
		grants = append(grants, Grant{
			Action:   p.Action,
			Resource: p.Resource,
			Scope:    p.Scope,
		})
	}

	return grants, nil
}

// Authorize decides whether the user may perform action on a resource of the
// given kind owned by ownerID, at the required scope. The decision is made by
// the pure resolver over the user's freshly loaded grants.
func (s *Service) Authorize(
	userID uint64,
	action, resource string,
	required models.Scope,
	ownerID uint64,
) (Decision, error) {
	grants, err := s.GetUserGrants(userID)
	if err != nil {
		return Decision{}, err
	}

	decision := Resolve(grants, action, resource, required, userID, ownerID)
	if !decision.Allowed {
		metrics.AuthzDenied(string(decision.Reason))
	}

	return decision, nil
}

// HasPermission checks whether a user holds any grant for (action, resource),
// regardless of scope. This is the capability check used by route middleware;
// ownership is enforced later, inside handlers, once the concrete resource is
// loaded.
func (s *Service) HasPermission(userID uint64, action, resource string) (bool, error) {
	var count int64

	err := s.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.action = ? AND permissions.resource = ?",
			userID, action, resource).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}

	return count > 0, nil
}

// GetUserPermissionNames retrieves the names of all permissions a user holds.
func (s *Service) GetUserPermissionNames(userID uint64) ([]string, error) {
	var names []string

	err := s.db.Table("permissions").
		Select("DISTINCT permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	return names, nil
}

// AssignRolesToUser replaces a user's role assignments with the given set.
// Passing an empty set strips all roles, leaving the user with no permissions.
func (s *Service) AssignRolesToUser(userID uint64, roleIDs []uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		// Verify the roles exist before touching the assignment set.
		if len(roleIDs) > 0 {
			var count int64
			if err := tx.Model(&models.Role{}).Where("id IN ?", roleIDs).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to verify roles: %w", err)
			}

			if count != int64(len(roleIDs)) {
				return gorm.ErrRecordNotFound
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to remove old role assignments: %w", err)
		}

		for _, roleID := range roleIDs {
			if err := tx.Create(&models.UserRole{
				UserID: userID,
				RoleID: roleID,
			}).Error; err != nil {
				return fmt.Errorf("failed to assign role %d: %w", roleID, err)
			}
		}

		return nil
	})
}
