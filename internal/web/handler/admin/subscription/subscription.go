// Package subscription provides the subscription and usage endpoints.
//
// Users manage their own subscription through self-scoped grants; an
// all-scoped grant additionally allows acting on any user's subscriptions.
package subscription

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/controller/subscription"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/web/handler"
)

// Path is the base path for subscriptions.
const Path = handler.APIPath + "/subscriptions"

// Service provides subscription lifecycle endpoints.
type Service struct {
	db    *gorm.DB
	authz *auth.Service
	guard *quota.Guard
}

// Handler is the exported instance.
var Handler = Service{}

// createRequest is the subscription creation body.
type createRequest struct {
	PlanID uint   `json:"plan_id"`
	UserID uint64 `json:"user_id"` // optional, defaults to the caller
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.Auth == nil || deps.Guard == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = deps.DB
	s.authz = deps.Auth
	s.guard = deps.Guard

	read := auth.RequirePermission(deps.Auth, auth.ActionRead, auth.ResourceSubscription)

	app.Post(Path, auth.RequirePermission(deps.Auth, auth.ActionCreate, auth.ResourceSubscription), s.Create)
	app.Get(Path, read, s.List)
	app.Get(Path+"/usage", read, s.Usage)
	app.Get(Path+"/:id", read, s.Get)
	app.Post(Path+"/:id/cancel", auth.RequirePermission(deps.Auth, auth.ActionDelete, auth.ResourceSubscription), s.Cancel)

	return nil
}

func subscriptionJSON(sub *models.Subscription) fiber.Map {
	out := fiber.Map{
		"id":               sub.ID,
		"user_id":          sub.UserID,
		"plan_id":          sub.PlanID,
		"start_date":       sub.StartDate,
		"end_date":         sub.EndDate,
		"status":           string(sub.EffectiveStatus(time.Now())),
		"limits": fiber.Map{
			"max_chatbot_count":           sub.MaxChatbotCount,
			"max_chatbot_shares":          sub.MaxChatbotShares,
			"max_document_count":          sub.MaxDocumentCount,
			"max_word_count_per_document": sub.MaxWordCountPerDocument,
			"is_public_chatbot_allowed":   sub.IsPublicChatbotAllowed,
		},
		"usage": fiber.Map{
			"chatbot_count":  sub.UsedChatbotCount,
			"chatbot_shares": sub.UsedChatbotShares,
			"document_count": sub.UsedDocumentCount,
		},
	}

	if sub.Plan.ID != 0 {
		out["plan_name"] = sub.Plan.Name
	}

	return out
}

// authorizeOn checks the caller against the subscription owner.
func (s *Service) authorizeOn(c *fiber.Ctx, action string, ownerID uint64) error {
	userID := auth.CurrentUserID(c)

	decision, err := s.authz.Authorize(userID, action, auth.ResourceSubscription, models.ScopeSelf, ownerID)
	if err != nil {
		return err
	}

	return auth.DecisionError(decision)
}

// Create issues a subscription. The target defaults to the caller; creating
// for another user requires an all-scoped grant.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	targetID := req.UserID
	if targetID == 0 {
		targetID = auth.CurrentUserID(c)
	}

	if err := s.authorizeOn(c, auth.ActionCreate, targetID); err != nil {
		return handler.MapError(c, err)
	}

	sub, err := subscription.Create(s.db, targetID, req.PlanID)
	if err != nil {
		return handler.MapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscription": subscriptionJSON(sub)})
}

// List returns the target user's subscriptions, newest first. Listing another
// user requires an all-scoped grant.
func (s *Service) List(c *fiber.Ctx) error {
	targetID := uint64(c.QueryInt("user_id", 0))
	if targetID == 0 {
		targetID = auth.CurrentUserID(c)
	}

	if err := s.authorizeOn(c, auth.ActionRead, targetID); err != nil {
		return handler.MapError(c, err)
	}

	subs, err := subscription.ListByUser(s.db, targetID)
	if err != nil {
		return handler.MapError(c, err)
	}

	out := make([]fiber.Map, 0, len(subs))
	for i := range subs {
		out = append(out, subscriptionJSON(&subs[i]))
	}

	return c.JSON(fiber.Map{"subscriptions": out})
}

// Get returns one subscription.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid subscription id")
	}

	sub, err := subscription.Get(s.db, uint64(id))
	if err != nil {
		return handler.MapError(c, err)
	}

	if err := s.authorizeOn(c, auth.ActionRead, sub.UserID); err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"subscription": subscriptionJSON(sub)})
}

// Usage reports the caller's live quota usage from the active subscription.
func (s *Service) Usage(c *fiber.Ctx) error {
	targetID := uint64(c.QueryInt("user_id", 0))
	if targetID == 0 {
		targetID = auth.CurrentUserID(c)
	}

	if err := s.authorizeOn(c, auth.ActionRead, targetID); err != nil {
		return handler.MapError(c, err)
	}

	sub, err := subscription.GetActiveByUser(s.db, targetID)
	if err != nil {
		return handler.MapError(c, err)
	}

	snapshot, err := s.guard.Snapshot(sub.ID)
	if err != nil {
		return handler.MapError(c, err)
	}

	usage := make(fiber.Map, len(snapshot))
	for counter, u := range snapshot {
		usage[string(counter)] = u
	}

	return c.JSON(fiber.Map{
		"subscription_id": sub.ID,
		"usage":           usage,
	})
}

// Cancel performs the terminal cancellation transition.
func (s *Service) Cancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid subscription id")
	}

	sub, err := subscription.Get(s.db, uint64(id))
	if err != nil {
		return handler.MapError(c, err)
	}

	if err := s.authorizeOn(c, auth.ActionDelete, sub.UserID); err != nil {
		return handler.MapError(c, err)
	}

	if err := subscription.Cancel(s.db, sub.ID); err != nil {
		return handler.MapError(c, err)
	}

	return c.JSON(fiber.Map{"status": "cancelled"})
}
