// Package login provides the credential login endpoint.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/config"
	"github.com/botforge-app/botforge/internal/web/handler"
	"github.com/botforge-app/botforge/internal/web/session"
)

// Path is the login endpoint path.
const Path = "/login"

// Service is the login handler service.
type Service struct {
	cfg      *config.Config
	provider *auth.LocalProvider
}

// Handler is the login handler.
var Handler = Service{}

// request is the login request body.
type request struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Cfg == nil || deps.DB == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = deps.Cfg
	s.provider = auth.NewLocalProvider(deps.DB)

	app.Post(Path, s.Post)

	return nil
}

// Post handles the login request. Wrong username, wrong password and a
// disabled account all map to the same response, so the endpoint does not
// leak which accounts exist.
func (s *Service) Post(c *fiber.Ctx) error {
	req := new(request)
	if err := c.BodyParser(req); err != nil {
		return handler.ErrorJSON(c, fiber.StatusBadRequest, handler.KindInvalidInput, "invalid request body")
	}

	user, err := s.provider.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) ||
			errors.Is(err, auth.ErrInvalidPassword) ||
			errors.Is(err, auth.ErrUserAccountDisabled) {
			return handler.ErrorJSON(c, fiber.StatusUnauthorized, handler.KindUnauthorized, "invalid username or password")
		}

		log.Error().Err(err).Msg("login failed")

		return handler.ErrorJSON(c, fiber.StatusInternalServerError, handler.KindInternal, "internal server error")
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return handler.ErrorJSON(c, fiber.StatusInternalServerError, handler.KindInternal, "internal server error")
	}

	userSession := &session.Data{
		UserID:   user.ID,
		Username: user.Username,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return handler.ErrorJSON(c, fiber.StatusInternalServerError, handler.KindInternal, "internal server error")
	}

	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}
