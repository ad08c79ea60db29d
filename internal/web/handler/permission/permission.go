// Package permission provides read-only access to the permission catalog.
package permission

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/web/handler"
)

// Path is the base path for the permission catalog.
const Path = handler.APIPath + "/permissions"

// Service provides catalog listing endpoints.
type Service struct {
	db    *gorm.DB
	authz *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. The catalog itself is only listable by role
// administrators; every authenticated user may inspect their own effective
// permission names.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB
	s.authz = deps.Auth

	app.Get(Path, auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceRole), s.List)
	app.Get(Path+"/me", auth.RequireAuthenticated(), s.Mine)

	return nil
}

// List returns the seeded permission catalog.
func (s *Service) List(c *fiber.Ctx) error {
	var permissions []models.Permission
	if err := s.db.Order("resource ASC, action ASC, scope ASC").Find(&permissions).Error; err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(permissions))
	for _, p := range permissions {
		out = append(out, fiber.Map{
			"id":          p.ID,
			"name":        p.Name,
			"resource":    p.Resource,
			"action":      p.Action,
			"scope":       string(p.Scope),
			"description": p.Description,
		})
	}

	return c.JSON(fiber.Map{"permissions": out})
}

// Mine returns the caller's effective permission names.
func (s *Service) Mine(c *fiber.Ctx) error {
	names, err := s.authz.GetUserPermissionNames(auth.CurrentUserID(c))
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"permissions": names})
}
