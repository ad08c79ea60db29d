// Package user provides the user administration endpoints.
package user

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/web/handler"
)

const (
	// Path is the base path for user administration.
	Path = handler.APIPath + "/admin/users"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
	maxPageSize     = 100
)

// Service provides CRUD endpoints for users.
type Service struct {
	db        *gorm.DB
	authz     *auth.Service
	provider  *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// createRequest is the user creation body.
type createRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	RoleIDs   []uint `json:"role_ids"`
}

// rolesRequest is the role assignment body.
type rolesRequest struct {
	RoleIDs []uint `json:"role_ids"`
}

// Init registers routes. User administration is all-scoped.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB
	s.authz = deps.Auth
	s.provider = auth.NewLocalProvider(deps.DB)
	s.validator = validator.New()

	read := auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceUser)
	manage := auth.RequirePermission(deps.Auth, auth.ActionUpdate, auth.ResourceUser)

	app.Get(Path, read, s.List)
	app.Get(Path+"/:id", read, s.Get)
	app.Post(Path, auth.RequirePermission(deps.Auth, auth.ActionCreate, auth.ResourceUser), s.Create)
	app.Put(Path+"/:id/roles", manage, s.SetRoles)
	app.Post(Path+"/:id/activate", manage, s.Activate)
	app.Post(Path+"/:id/deactivate", manage, s.Deactivate)

	return nil
}

func userJSON(u *models.User) fiber.Map {
	roles := make([]fiber.Map, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, fiber.Map{"id": r.ID, "name": r.Name})
	}

	return fiber.Map{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"active":     u.Active,
		"roles":      roles,
	}
}

func paramUserID(c *fiber.Ctx) (uint64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, errors.New("invalid user id")
	}

	return uint64(id), nil
}

// List returns users with simple pagination.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}

	users, total, err := s.provider.ListUsers(pageSize, (page-1)*pageSize)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}

	return c.JSON(fiber.Map{
		"users": out,
		"total": total,
		"page":  page,
	})
}

// Get returns one user with roles.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := paramUserID(c)
	if err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	u, err := s.provider.GetUserByID(id)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"user": userJSON(u)})
}

// Create creates a user with an optional initial role set.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	u, err := s.provider.CreateUser(req.Username, req.Email, req.Password, req.FirstName, req.LastName, req.RoleIDs)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": userJSON(u)})
}

// SetRoles replaces the user's role assignments with the given set.
func (s *Service) SetRoles(c *fiber.Ctx) error {
	id, err := paramUserID(c)
	if err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	req := new(rolesRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	if err := s.authz.AssignRolesToUser(id, req.RoleIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return handler.ErrorJSON(c, fiber.StatusNotFound, handler.KindNotFound, "user or role not found")
		}

		return handler.MapError(c, err)
	}

	u, err := s.provider.GetUserByID(id)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"user": userJSON(u)})
}

// Activate re-enables a user account.
func (s *Service) Activate(c *fiber.Ctx) error {
	id, err := paramUserID(c)
	if err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	if err := s.provider.ActivateUser(id); err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"status": "active"})
}

// Deactivate disables a user account; its sessions stop resolving at the
// next permission check.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	id, err := paramUserID(c)
	if err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	if err := s.provider.DeactivateUser(id); err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"status": "inactive"})
}
