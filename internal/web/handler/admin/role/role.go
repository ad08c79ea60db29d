// Package role provides the role administration endpoints.
package role

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/controller/role"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/web/handler"
	"gorm.io/gorm"
)

// Path is the base path for role administration.
const Path = handler.APIPath + "/admin/roles"

// Service provides CRUD endpoints for roles.
type Service struct {
	db *gorm.DB
}

// Handler is the exported instance.
var Handler = Service{}

// request is the role create/update body.
type request struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

// Init registers routes. Role administration is always all-scoped; there is
// no self-scoped role management.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB

	guard := auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceRole)
	manage := auth.RequirePermission(deps.Auth, auth.ActionUpdate, auth.ResourceRole)

	app.Get(Path, guard, s.List)
	app.Get(Path+"/:id", guard, s.Get)
	app.Post(Path, auth.RequirePermission(deps.Auth, auth.ActionCreate, auth.ResourceRole), s.Create)
	app.Put(Path+"/:id", manage, s.Update)
	app.Delete(Path+"/:id", auth.RequirePermission(deps.Auth, auth.ActionDelete, auth.ResourceRole), s.Delete)

	return nil
}

func roleJSON(r *models.Role) fiber.Map {
	permissions := make([]fiber.Map, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		permissions = append(permissions, fiber.Map{
			"id":       p.ID,
			"name":     p.Name,
			"resource": p.Resource,
			"action":   p.Action,
			"scope":    string(p.Scope),
		})
	}

	return fiber.Map{
		"id":          r.ID,
		"name":        r.Name,
		"description": r.Description,
		"is_system":   r.IsSystem,
		"permissions": permissions,
	}
}

// List returns all roles with their permission bundles.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := role.GetAll(s.db)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(roles))
	for i := range roles {
		out = append(out, roleJSON(&roles[i]))
	}

	return c.JSON(fiber.Map{"roles": out})
}

// Get returns one role.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid role id")
	}

	r, err := role.Get(s.db, uint(id))
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"role": roleJSON(r)})
}

// Create creates a role bundling the given catalog permissions.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(request)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	r, err := role.Create(s.db, req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"role": roleJSON(r)})
}

// Update replaces a role's name, description and permission bundle.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid role id")
	}

	req := new(request)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	r, err := role.Update(s.db, uint(id), req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"role": roleJSON(r)})
}

// Delete removes a role and all of its user assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid role id")
	}

	if err := role.Delete(s.db, uint(id)); err != nil {
		return handler.MapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
