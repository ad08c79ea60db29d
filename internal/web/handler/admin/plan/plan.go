// Package plan provides the plan administration endpoints.
// Plan listing is public to authenticated users; mutation is all-scoped
// administration.
package plan

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/controller/plan"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/web/handler"
)

// Path is the base path for plans.
const Path = handler.APIPath + "/plans"

// Service provides CRUD endpoints for plans.
type Service struct {
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// request is the plan create/update body.
type request struct {
	Name                    string `json:"name" validate:"required,max=100"`
	Description             string `json:"description" validate:"max=255"`
	PriceCents              int64  `json:"price_cents" validate:"min=0"`
	DurationDays            int    `json:"duration_days" validate:"required,min=1"`
	MaxChatbotCount         int64  `json:"max_chatbot_count" validate:"min=0"`
	MaxChatbotShares        int64  `json:"max_chatbot_shares" validate:"min=0"`
	MaxDocumentCount        int64  `json:"max_document_count" validate:"min=0"`
	MaxWordCountPerDocument int64  `json:"max_word_count_per_document" validate:"min=0"`
	IsPublicChatbotAllowed  bool   `json:"is_public_chatbot_allowed"`
	Benefits                string `json:"benefits"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.Auth == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB
	s.validator = validator.New()

	manage := auth.RequirePermission(deps.Auth, auth.ActionUpdate, auth.ResourcePlan)

	app.Get(Path, auth.RequireAuthenticated(), s.List)
	app.Get(Path+"/:id", auth.RequireAuthenticated(), s.Get)
	app.Post(Path, auth.RequirePermission(deps.Auth, auth.ActionCreate, auth.ResourcePlan), s.Create)
	app.Put(Path+"/:id", manage, s.Update)
	app.Delete(Path+"/:id", auth.RequirePermission(deps.Auth, auth.ActionDelete, auth.ResourcePlan), s.Delete)

	return nil
}

func planJSON(p *models.Plan) fiber.Map {
	return fiber.Map{
		"id":                          p.ID,
		"name":                        p.Name,
		"description":                 p.Description,
		"price_cents":                 p.PriceCents,
		"duration_days":               p.DurationDays,
		"max_chatbot_count":           p.MaxChatbotCount,
		"max_chatbot_shares":          p.MaxChatbotShares,
		"max_document_count":          p.MaxDocumentCount,
		"max_word_count_per_document": p.MaxWordCountPerDocument,
		"is_public_chatbot_allowed":   p.IsPublicChatbotAllowed,
		"benefits":                    p.Benefits,
	}
}

func (s *Service) parsePlan(c *fiber.Ctx) (*models.Plan, error) {
	req := new(request)
	if err := c.BodyParser(req); err != nil {
		return nil, errors.New("invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	return &models.Plan{
		Name:                    req.Name,
		Description:             req.Description,
		PriceCents:              req.PriceCents,
		DurationDays:            req.DurationDays,
		MaxChatbotCount:         req.MaxChatbotCount,
		MaxChatbotShares:        req.MaxChatbotShares,
		MaxDocumentCount:        req.MaxDocumentCount,
		MaxWordCountPerDocument: req.MaxWordCountPerDocument,
		IsPublicChatbotAllowed:  req.IsPublicChatbotAllowed,
		Benefits:                req.Benefits,
	}, nil
}

// List returns all plans ordered by price.
func (s *Service) List(c *fiber.Ctx) error {
	plans, err := plan.GetAll(s.db)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(plans))
	for i := range plans {
		out = append(out, planJSON(&plans[i]))
	}

	return c.JSON(fiber.Map{"plans": out})
}

// Get returns one plan.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid plan id")
	}

	p, err := plan.Get(s.db, uint(id))
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"plan": planJSON(p)})
}

// Create creates a plan template.
func (s *Service) Create(c *fiber.Ctx) error {
	p, err := s.parsePlan(c)
	if err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	created, err := plan.Create(s.db, p)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"plan": planJSON(created)})
}

// Update edits a plan template. Live subscriptions keep the limits they were
// issued with.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid plan id")
	}

	p, err := s.parsePlan(c)
	if err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	updated, err := plan.Update(s.db, uint(id), p)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"plan": planJSON(updated)})
}

// Delete removes a plan template.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid plan id")
	}

	if err := plan.Delete(s.db, uint(id)); err != nil {
		return handler.MapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
