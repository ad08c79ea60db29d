package daemon

import (
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/config"
	"github.com/botforge-app/botforge/internal/db/models"
)

// seed brings the database to a usable baseline: the permission catalog,
// the system roles, the default plans and a bootstrap admin account.
// Every step is idempotent so restarting the daemon never duplicates rows.
func seed(_ *config.Config, db *gorm.DB) {
	seedPermissionCatalog(db)
	seedSystemRoles(db)
	seedPlans(db)
	seedAdminUser(db)
}

// seedPermissionCatalog inserts catalog entries missing from the permissions
// table. Existing rows are kept as-is; the catalog only grows across releases.
func seedPermissionCatalog(db *gorm.DB) {
	for _, entry := range auth.Catalog() {
		perm := models.Permission{
			Name:        entry.Name(),
			Resource:    entry.Resource,
			Action:      entry.Action,
			Scope:       entry.Scope,
			Description: entry.Description,
		}

		db.Where(models.Permission{Name: perm.Name}).FirstOrCreate(&perm)
	}
}

// seedSystemRoles creates the admin and member roles. Admin bundles the whole
// catalog; member bundles the self-scoped grants for the resources a regular
// user works with.
func seedSystemRoles(db *gorm.DB) {
	var permissions []models.Permission
	if err := db.Find(&permissions).Error; err != nil {
		return
	}

	memberResources := map[string]bool{
		auth.ResourceChatbot:      true,
		auth.ResourceDocument:     true,
		auth.ResourceSubscription: true,
	}

	var memberPerms []models.Permission
	for _, p := range permissions {
		if p.Scope == models.ScopeSelf && memberResources[p.Resource] {
			memberPerms = append(memberPerms, p)
		}
	}

	seedRole(db, "admin", "Full platform administration", permissions)
	seedRole(db, "member", "Manage own chatbots, documents and subscription", memberPerms)
}

func seedRole(db *gorm.DB, name, description string, permissions []models.Permission) {
	var existing models.Role
	if err := db.Where("name = ?", name).First(&existing).Error; err == nil {
		return
	}

	db.Create(&models.Role{
		Name:        name,
		Description: description,
		IsSystem:    true,
		Permissions: permissions,
	})
}

// seedPlans creates the default plan templates when no plans exist yet.
func seedPlans(db *gorm.DB) {
	var count int64
	db.Model(&models.Plan{}).Count(&count)
	if count > 0 {
		return
	}

	db.Create(&[]models.Plan{
		{
			Name:                    "free",
			Description:             "Try the platform with a single chatbot",
			PriceCents:              0,
			DurationDays:            30,
			MaxChatbotCount:         1,
			MaxChatbotShares:        0,
			MaxDocumentCount:        3,
			MaxWordCountPerDocument: 2000,
			IsPublicChatbotAllowed:  false,
			Benefits:                "1 chatbot\n3 documents",
		},
		{
			Name:                    "starter",
			Description:             "For individuals and small teams",
			PriceCents:              1900,
			DurationDays:            30,
			MaxChatbotCount:         3,
			MaxChatbotShares:        10,
			MaxDocumentCount:        20,
			MaxWordCountPerDocument: 10000,
			IsPublicChatbotAllowed:  false,
			Benefits:                "3 chatbots\n20 documents\n10 shares",
		},
		{
			Name:                    "business",
			Description:             "Public chatbots and room to grow",
			PriceCents:              4900,
			DurationDays:            30,
			MaxChatbotCount:         10,
			MaxChatbotShares:        50,
			MaxDocumentCount:        100,
			MaxWordCountPerDocument: 50000,
			IsPublicChatbotAllowed:  true,
			Benefits:                "10 chatbots\n100 documents\n50 shares\npublic chatbots",
		},
	})
}

// seedAdminUser creates the bootstrap admin account when the user table is
// empty. The password must be changed after first login.
func seedAdminUser(db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	var adminRole models.Role
	if err := db.Where("name = ?", "admin").First(&adminRole).Error; err != nil {
		return
	}

	db.Create(&models.User{
		Username: "admin",
		Email:    "admin@localhost",
		Password: models.HashPassword("changeme"),
		Active:   true,
		Roles:    []models.Role{adminRole},
	})
}
