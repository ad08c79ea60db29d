package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/config"
	"github.com/botforge-app/botforge/internal/quota"
)

// Deps bundles the shared dependencies every handler needs.
type Deps struct {
	Cfg   *config.Config
	DB    *gorm.DB
	Auth  *auth.Service
	Guard *quota.Guard
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}
