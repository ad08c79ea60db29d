// Package document provides the standalone document endpoints.
// Creation and listing live under the owning chatbot's routes; this package
// serves individual documents by ID.
package document

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/controller/document"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/web/handler"
)

// Path is the base path for documents.
const Path = handler.APIPath + "/documents"

// Service provides document endpoints.
type Service struct {
	db        *gorm.DB
	authz     *auth.Service
	guard     *quota.Guard
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type updateRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.Auth == nil || deps.Guard == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB
	s.authz = deps.Auth
	s.guard = deps.Guard
	s.validator = validator.New()

	app.Get(Path+"/:id", auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceDocument), s.Get)
	app.Put(Path+"/:id", auth.RequirePermission(deps.Auth, auth.ActionUpdate, auth.ResourceDocument), s.Update)
	app.Delete(Path+"/:id", auth.RequirePermission(deps.Auth, auth.ActionDelete, auth.ResourceDocument), s.Delete)

	return nil
}

func docJSON(d *models.Document) fiber.Map {
	return fiber.Map{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"chatbot_id": d.ChatbotID,
		"title":      d.Title,
		"content":    d.Content,
		"word_count": d.WordCount,
	}
}

// loadAuthorized loads the document and enforces ownership for the action.
func (s *Service) loadAuthorized(c *fiber.Ctx, action string) (*models.Document, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return nil, document.ErrDocumentNotFound
	}

	doc, err := document.Get(s.db, uint64(id))
	if err != nil {
		return nil, err
	}

	decision, err := s.authz.Authorize(auth.CurrentUserID(c), action, auth.ResourceDocument, models.ScopeSelf, doc.OwnerID)
	if err != nil {
		return nil, err
	}

	if err := auth.DecisionError(decision); err != nil {
		return nil, err
	}

	return doc, nil
}

// Get returns one document with its content.
func (s *Service) Get(c *fiber.Ctx) error {
	doc, err := s.loadAuthorized(c, auth.ActionRead)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"document": docJSON(doc)})
}

// Update replaces a document's title and content, re-checking the word
// ceiling against the new content.
func (s *Service) Update(c *fiber.Ctx) error {
	doc, err := s.loadAuthorized(c, auth.ActionUpdate)
	if err != nil {
		return handler.MapError(c, err)
	}

	req := new(updateRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	updated, err := document.Update(s.db, s.guard, doc.ID, req.Title, req.Content)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"document": docJSON(updated)})
}

// Delete removes a document and frees its quota unit.
func (s *Service) Delete(c *fiber.Ctx) error {
	doc, err := s.loadAuthorized(c, auth.ActionDelete)
	if err != nil {
		return handler.MapError(c, err)
	}

	if err := document.Delete(s.db, s.guard, doc.ID); err != nil {
		return handler.MapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
