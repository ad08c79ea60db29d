// Package role provides CRUD operations for managing roles and their permission bundles.
package role

import (
	"errors"

	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
)

var (
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleNameEmpty is returned when attempting to create/update a role with an empty name.
	ErrRoleNameEmpty = errors.New("role name cannot be empty")
	// ErrRoleAlreadyExists is returned when attempting to create a role whose name is taken.
	ErrRoleAlreadyExists = errors.New("role already exists")
	// ErrRoleIsSystem is returned when attempting to delete a seeded system role.
	ErrRoleIsSystem = errors.New("system roles cannot be deleted")
	// ErrPermissionNotFound is returned when a referenced catalog permission does not exist.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a role with its permissions by ID.
func Get(db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var role models.Role
	result := db.Preload("Permissions").First(&role, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	return &role, nil
}

// GetAll retrieves all roles with their permissions.
func GetAll(db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	result := db.Preload("Permissions").Order("name ASC").Find(&roles)
	if result.Error != nil {
		return nil, result.Error
	}

	return roles, nil
}

// Create creates a new role bundling the given catalog permissions.
func Create(db *gorm.DB, name, description string, permissionIDs []uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	var existing models.Role
	result := db.Where("name = ?", name).First(&existing)
	if result.Error == nil {
		return nil, ErrRoleAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	role := &models.Role{
		Name:        name,
		Description: description,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(role).Error; err != nil {
			return err
		}

		return setPermissions(tx, role.ID, permissionIDs)
	})
	if err != nil {
		return nil, err
	}

	return Get(db, role.ID)
}

// Update updates a role's name, description and permission bundle.
func Update(db *gorm.DB, id uint, name, description string, permissionIDs []uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	var role models.Role
	result := db.First(&role, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, result.Error
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		role.Name = name
		role.Description = description

		if err := tx.Save(&role).Error; err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return setPermissions(tx, role.ID, permissionIDs)
	})
	if err != nil {
		return nil, err
	}

	return Get(db, role.ID)
}

// Delete deletes a role. Its permission bundle and all user assignments are
// removed with it, so referencing users simply lose the role's grants; no
// dangling references remain. Seeded system roles cannot be deleted.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	var role models.Role
	result := db.First(&role, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return result.Error
	}

	if role.IsSystem {
		return ErrRoleIsSystem
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// Explicit junction cleanup; not every backend enforces the CASCADE.
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Role{}, id).Error
	})
}

// setPermissions attaches the given catalog permissions to a role inside a transaction.
func setPermissions(tx *gorm.DB, roleID uint, permissionIDs []uint) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Permission{}).Where("id IN ?", permissionIDs).Count(&count).Error; err != nil {
		return err
	}

	if count != int64(len(permissionIDs)) {
		return ErrPermissionNotFound
	}

	for _, permID := range permissionIDs {
		if err := tx.Create(&models.RolePermission{
			RoleID:       roleID,
			PermissionID: permID,
		}).Error; err != nil {
			return err
		}
	}

	return nil
}
