package role

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.User{},
		&models.UserRole{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedPermission(t *testing.T, db *gorm.DB, resource, action string, scope models.Scope) *models.Permission {
	t.Helper()

	perm := &models.Permission{
		Name:     resource + "." + action + "." + string(scope),
		Resource: resource,
		Action:   action,
		Scope:    scope,
	}
	require.NoError(t, db.Create(perm).Error, "failed to seed permission")

	return perm
}

func TestCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	readSelf := seedPermission(t, db, "chatbot", "read", models.ScopeSelf)
	createSelf := seedPermission(t, db, "chatbot", "create", models.ScopeSelf)

	created, err := Create(db, "builder", "can build chatbots", []uint{readSelf.ID, createSelf.ID})
	require.NoError(t, err)
	assert.Equal(t, "builder", created.Name)
	assert.Len(t, created.Permissions, 2)

	got, err := Get(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Len(t, got.Permissions, 2)
}

func TestCreateDuplicateName(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "builder", "", nil)
	require.NoError(t, err)

	_, err = Create(db, "builder", "", nil)
	assert.ErrorIs(t, err, ErrRoleAlreadyExists)
}

func TestCreateEmptyName(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "", "", nil)
	assert.ErrorIs(t, err, ErrRoleNameEmpty)
}

func TestCreateUnknownPermission(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "builder", "", []uint{999})
	assert.ErrorIs(t, err, ErrPermissionNotFound)

	// The failed create must not leave the role behind.
	_, err = Create(db, "builder", "", nil)
	assert.NoError(t, err)
}

func TestUpdateReplacesBundle(t *testing.T) {
	db := setupTestDB(t)
	readSelf := seedPermission(t, db, "chatbot", "read", models.ScopeSelf)
	readAll := seedPermission(t, db, "chatbot", "read", models.ScopeAll)

	created, err := Create(db, "viewer", "", []uint{readSelf.ID})
	require.NoError(t, err)

	updated, err := Update(db, created.ID, "auditor", "sees everything", []uint{readAll.ID})
	require.NoError(t, err)
	assert.Equal(t, "auditor", updated.Name)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, readAll.ID, updated.Permissions[0].ID)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	readSelf := seedPermission(t, db, "chatbot", "read", models.ScopeSelf)

	created, err := Create(db, "temp", "", []uint{readSelf.ID})
	require.NoError(t, err)

	user := &models.User{Active: true, Username: "alice", Email: "alice@example.com"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: created.ID}).Error)

	require.NoError(t, Delete(db, created.ID))

	_, err = Get(db, created.ID)
	assert.ErrorIs(t, err, ErrRoleNotFound)

	// Junction rows go with the role.
	var rolePerms, userRoles int64
	require.NoError(t, db.Model(&models.RolePermission{}).Where("role_id = ?", created.ID).Count(&rolePerms).Error)
	require.NoError(t, db.Model(&models.UserRole{}).Where("role_id = ?", created.ID).Count(&userRoles).Error)
	assert.Zero(t, rolePerms)
	assert.Zero(t, userRoles)

	// The catalog permission itself survives.
	var perms int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&perms).Error)
	assert.Equal(t, int64(1), perms)
}

func TestDeleteSystemRole(t *testing.T) {
	db := setupTestDB(t)

	role := &models.Role{Name: "admin", IsSystem: true}
	require.NoError(t, db.Create(role).Error)

	assert.ErrorIs(t, Delete(db, role.ID), ErrRoleIsSystem)
}

func TestGetAll(t *testing.T) {
	db := setupTestDB(t)

	_, err := Create(db, "zeta", "", nil)
	require.NoError(t, err)
	_, err = Create(db, "alpha", "", nil)
	require.NoError(t, err)

	roles, err := GetAll(db)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "alpha", roles[0].Name)
}
