// Package chatbot provides the chatbot endpoints, including visibility,
// share grants and attached documents.
//
// Route middleware performs the capability check (any grant for the action
// and resource); ownership is then enforced here once the concrete chatbot
// row is loaded, so a self-scoped caller can only touch their own bots while
// an all-scoped caller can touch any.
package chatbot

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/controller/chatbot"
	"github.com/botforge-app/botforge/internal/db/controller/document"
	"github.com/botforge-app/botforge/internal/db/controller/share"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/web/handler"
)

// Path is the base path for chatbots.
const Path = handler.APIPath + "/chatbots"

// Service provides chatbot lifecycle endpoints.
type Service struct {
	db        *gorm.DB
	authz     *auth.Service
	guard     *quota.Guard
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

type botRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Model        string `json:"model" validate:"max=100"`
	SystemPrompt string `json:"system_prompt"`
}

type visibilityRequest struct {
	Public bool `json:"public"`
}

type sharesRequest struct {
	Emails []string `json:"emails"`
}

type documentRequest struct {
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

	read := auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceChatbot)
	update := auth.RequirePermission(deps.Auth, auth.ActionUpdate, auth.ResourceChatbot)
	shareGuard := auth.RequirePermission(deps.Auth, auth.ActionShare, auth.ResourceChatbot)

	app.Post(Path, auth.RequirePermission(deps.Auth, auth.ActionCreate, auth.ResourceChatbot), s.Create)
	app.Get(Path, read, s.List)
	app.Get(Path+"/:id", read, s.Get)
	app.Put(Path+"/:id", update, s.Update)
	app.Delete(Path+"/:id", auth.RequirePermission(deps.Auth, auth.ActionDelete, auth.ResourceChatbot), s.Delete)
	app.Put(Path+"/:id/visibility", update, s.SetVisibility)

	app.Post(Path+"/:id/shares", shareGuard, s.CreateShares)
	app.Get(Path+"/:id/shares", shareGuard, s.ListShares)
	app.Delete(Path+"/:id/shares/:shareID", shareGuard, s.DeleteShare)

	docCreate := auth.RequirePermission(deps.Auth, auth.ActionCreate, auth.ResourceDocument)
	docRead := auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceDocument)

	app.Post(Path+"/:id/documents", docCreate, s.CreateDocument)
	app.Get(Path+"/:id/documents", docRead, s.ListDocuments)

	// Token access skips the session middleware: holding the share token is
	// the authorization.
	app.Get(handler.APIPath+"/shared/:token", s.GetShared)

	return nil
}

func botJSON(b *models.Chatbot) fiber.Map {
	return fiber.Map{
		"id":            b.ID,
		"owner_id":      b.OwnerID,
		"name":          b.Name,
		"slug":          b.Slug,
		"model":         b.Model,
		"system_prompt": b.SystemPrompt,
		"public":        b.Public,
	}
}

func docJSON(d *models.Document) fiber.Map {
	return fiber.Map{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"chatbot_id": d.ChatbotID,
		"title":      d.Title,
		"word_count": d.WordCount,
	}
}

func shareJSON(g *models.ChatbotShare) fiber.Map {
	return fiber.Map{
		"id":         g.ID,
		"chatbot_id": g.ChatbotID,
		"email":      g.Email,
		"token":      g.Token,
	}
}

// loadAuthorized loads the chatbot and enforces ownership for the action.
func (s *Service) loadAuthorized(c *fiber.Ctx, action, resource string) (*models.Chatbot, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return nil, chatbot.ErrChatbotNotFound
	}

	bot, err := chatbot.Get(s.db, uint64(id))
	if err != nil {
		return nil, err
	}

	decision, err := s.authz.Authorize(auth.CurrentUserID(c), action, resource, models.ScopeSelf, bot.OwnerID)
	if err != nil {
		return nil, err
	}

	if err := auth.DecisionError(decision); err != nil {
		return nil, err
	}

	return bot, nil
}

// Create creates a chatbot owned by the caller.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(botRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	bot, err := chatbot.Create(s.db, s.guard, auth.CurrentUserID(c), req.Name, req.Model, req.SystemPrompt)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"chatbot": botJSON(bot)})
}

// List returns the caller's chatbots. With ?all=1 and an all-scoped read
// grant it returns every chatbot on the platform.
func (s *Service) List(c *fiber.Ctx) error {
	userID := auth.CurrentUserID(c)

	if c.QueryBool("all", false) {
		decision, err := s.authz.Authorize(userID, auth.ActionRead, auth.ResourceChatbot, models.ScopeAll, 0)
		if err != nil {
			return handler.MapError(c, err)
		}

		if err := auth.DecisionError(decision); err != nil {
			return handler.MapError(c, err)
		}

		bots, err := chatbot.GetAll(s.db)
		if err != nil {
			return handler.MapError(c, err)
		}

		return c.JSON(fiber.Map{"chatbots": botsJSON(bots)})
	}

	bots, err := chatbot.ListByOwner(s.db, userID)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"chatbots": botsJSON(bots)})
}

func botsJSON(bots []models.Chatbot) []fiber.Map {
	out := make([]fiber.Map, 0, len(bots))
	for i := range bots {
		out = append(out, botJSON(&bots[i]))
	}

	return out
}

// Get returns one chatbot.
func (s *Service) Get(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionRead, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"chatbot": botJSON(bot)})
}

// Update edits a chatbot's mutable fields.
func (s *Service) Update(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionUpdate, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	req := new(botRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	updated, err := chatbot.Update(s.db, bot.ID, req.Name, req.Model, req.SystemPrompt)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"chatbot": botJSON(updated)})
}

// Delete removes a chatbot and frees its quota.
func (s *Service) Delete(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionDelete, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	if err := chatbot.Delete(s.db, s.guard, bot.ID); err != nil {
		return handler.MapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetVisibility flips a chatbot's public visibility.
func (s *Service) SetVisibility(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionUpdate, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	req := new(visibilityRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	updated, err := chatbot.SetVisibility(s.db, s.guard, bot.ID, req.Public)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"chatbot": botJSON(updated)})
}

// CreateShares shares the chatbot with a batch of email addresses, all or
// nothing against the share quota.
func (s *Service) CreateShares(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionShare, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	req := new(sharesRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	grants, err := share.CreateBatch(s.db, s.guard, bot.ID, req.Emails)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(grants))
	for i := range grants {
		out = append(out, shareJSON(&grants[i]))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"shares": out})
}

// ListShares returns the chatbot's share grants.
func (s *Service) ListShares(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionShare, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	grants, err := share.ListByChatbot(s.db, bot.ID)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(grants))
	for i := range grants {
		out = append(out, shareJSON(&grants[i]))
	}

	return c.JSON(fiber.Map{"shares": out})
}

// DeleteShare revokes one share grant and frees its quota unit.
func (s *Service) DeleteShare(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionShare, auth.ResourceChatbot)
	if err != nil {
		return handler.MapError(c, err)
	}

	shareID, err := c.ParamsInt("shareID")
	if err != nil || shareID < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid share id")
	}

	grant, err := share.Get(s.db, uint64(shareID))
	if err != nil {
		return handler.MapError(c, err)
	}

	if grant.ChatbotID != bot.ID {
		return handler.ErrorJSON(c, fiber.StatusNotFound, handler.KindNotFound, "share grant not found")
	}

	if err := share.Delete(s.db, s.guard, grant.ID); err != nil {
		return handler.MapError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CreateDocument attaches a document to the chatbot. Ownership of the bot is
// what authorizes the attach; the document inherits the bot's owner.
func (s *Service) CreateDocument(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionCreate, auth.ResourceDocument)
	if err != nil {
		return handler.MapError(c, err)
	}

	req := new(documentRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, err.Error())
	}

	doc, err := document.Create(s.db, s.guard, bot.ID, req.Title, req.Content)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": docJSON(doc)})
}

// GetShared resolves a share token to its chatbot. The response omits the
// system prompt; a share grant gives access to the bot, not its internals.
func (s *Service) GetShared(c *fiber.Ctx) error {
	grant, err := share.GetByToken(s.db, c.Params("token"))
	if err != nil {
		return handler.MapError(c, err)
	}

	bot, err := chatbot.Get(s.db, grant.ChatbotID)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"chatbot": fiber.Map{
		"id":     bot.ID,
		"name":   bot.Name,
		"slug":   bot.Slug,
		"model":  bot.Model,
		"public": bot.Public,
	}})
}

// ListDocuments returns the chatbot's documents.
func (s *Service) ListDocuments(c *fiber.Ctx) error {
	bot, err := s.loadAuthorized(c, auth.ActionRead, auth.ResourceDocument)
	if err != nil {
		return handler.MapError(c, err)
	}

	docs, err := document.ListByChatbot(s.db, bot.ID)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(docs))
	for i := range docs {
		out = append(out, docJSON(&docs[i]))
	}

	return c.JSON(fiber.Map{"documents": out})
}
