package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/db/controller/chatbot"
	"github.com/botforge-app/botforge/internal/db/controller/document"
	"github.com/botforge-app/botforge/internal/db/controller/plan"
	"github.com/botforge-app/botforge/internal/db/controller/role"
	"github.com/botforge-app/botforge/internal/db/controller/share"
	"github.com/botforge-app/botforge/internal/db/controller/subscription"
	"github.com/botforge-app/botforge/internal/quota"
)

// Machine-readable error kinds carried in JSON error responses. Clients
// dispatch on kind, not on the human-readable message.
const (
	KindQuotaExceeded                = "quota_exceeded"
	KindSubscriptionInactive         = "subscription_inactive"
	KindPublicChatbotNotAllowed      = "public_chatbot_not_allowed"
	KindDuplicateActiveSubscription  = "duplicate_active_subscription"
	KindSubscriptionAlreadyCancelled = "subscription_already_cancelled"
	KindInsufficientPermission       = "insufficient_permission"
	KindNotOwner                     = "not_owner"
	KindNotFound                     = "not_found"
	KindInvalidInput                 = "invalid_input"
	KindConflict                     = "conflict"
	KindUnauthorized                 = "unauthorized"
	KindInternal                     = "internal"
)

// ErrorJSON writes a JSON error body with the given status and kind.
func ErrorJSON(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"kind": kind, "message": message},
	})
}

var notFoundErrs = []error{
	chatbot.ErrChatbotNotFound,
	document.ErrDocumentNotFound,
	share.ErrShareNotFound,
	role.ErrRoleNotFound,
	role.ErrPermissionNotFound,
	plan.ErrPlanNotFound,
	subscription.ErrSubscriptionNotFound,
	subscription.ErrPlanNotFound,
	subscription.ErrUserNotFound,
	auth.ErrUserNotFound,
}

var invalidInputErrs = []error{
	chatbot.ErrChatbotNameEmpty,
	document.ErrDocumentTitleEmpty,
	share.ErrNoEmails,
	role.ErrRoleNameEmpty,
	plan.ErrPlanNameEmpty,
	plan.ErrPlanInvalidDuration,
}

var conflictErrs = []error{
	role.ErrRoleAlreadyExists,
	role.ErrRoleIsSystem,
	plan.ErrPlanAlreadyExists,
	auth.ErrUserNameOrEmailExists,
}

func errIn(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// MapError translates a domain error into the matching JSON error response.
// Quota denials carry the counter and its usage so clients can render the
// limit that was hit.
func MapError(c *fiber.Ctx, err error) error {
	if exceeded, ok := quota.IsExceeded(err); ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": fiber.Map{
				"kind":    KindQuotaExceeded,
				"message": exceeded.Error(),
				"counter": string(exceeded.Counter),
				"used":    exceeded.Used,
				"max":     exceeded.Max,
			},
		})
	}

	switch {
	case errors.Is(err, quota.ErrSubscriptionInactive):
		return ErrorJSON(c, fiber.StatusForbidden, KindSubscriptionInactive, err.Error())
	case errors.Is(err, quota.ErrPublicChatbotNotAllowed):
		return ErrorJSON(c, fiber.StatusForbidden, KindPublicChatbotNotAllowed, err.Error())
	case errors.Is(err, auth.ErrInsufficientPermission):
		return ErrorJSON(c, fiber.StatusForbidden, KindInsufficientPermission, err.Error())
	case errors.Is(err, auth.ErrNotOwner):
		return ErrorJSON(c, fiber.StatusForbidden, KindNotOwner, err.Error())
	case errors.Is(err, subscription.ErrDuplicateActiveSubscription):
		return ErrorJSON(c, fiber.StatusConflict, KindDuplicateActiveSubscription, err.Error())
	case errors.Is(err, subscription.ErrSubscriptionAlreadyCancelled):
		return ErrorJSON(c, fiber.StatusConflict, KindSubscriptionAlreadyCancelled, err.Error())
	case errIn(err, notFoundErrs):
		return ErrorJSON(c, fiber.StatusNotFound, KindNotFound, err.Error())
	case errIn(err, invalidInputErrs):
		return ErrorJSON(c, fiber.StatusBadRequest, KindInvalidInput, err.Error())
	case errIn(err, conflictErrs):
		return ErrorJSON(c, fiber.StatusConflict, KindConflict, err.Error())
	default:
		return ErrorJSON(c, fiber.StatusInternalServerError, KindInternal, "internal server error")
	}
}
