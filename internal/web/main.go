// Package web implements the HTTP service.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/config"
	loggeradapter "github.com/botforge-app/botforge/internal/logger/adapter/fiber"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/web/handler"
	planhandler "github.com/botforge-app/botforge/internal/web/handler/admin/plan"
	rolehandler "github.com/botforge-app/botforge/internal/web/handler/admin/role"
	subscriptionhandler "github.com/botforge-app/botforge/internal/web/handler/admin/subscription"
	userhandler "github.com/botforge-app/botforge/internal/web/handler/admin/user"
	chatbothandler "github.com/botforge-app/botforge/internal/web/handler/chatbot"
	documenthandler "github.com/botforge-app/botforge/internal/web/handler/document"
	"github.com/botforge-app/botforge/internal/web/handler/login"
	"github.com/botforge-app/botforge/internal/web/handler/logout"
	permissionhandler "github.com/botforge-app/botforge/internal/web/handler/permission"
)

// HealthPath is the liveness endpoint used by load balancers.
const HealthPath = "/healthz"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
	guard        *quota.Guard
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: flip liveness to fail first so
	// the LB drains this instance before the listener stops.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 for %d seconds to let the LB remove this instance from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB, guard *quota.Guard) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	if guard == nil {
		panic("guard cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "BotForge",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// access log
	app.Use(loggeradapter.New(loggeradapter.Config{
		Config:        cfg.Log,
		CheckAliveURI: HealthPath,
	}))

	authService := auth.NewService(db)

	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
		guard:       guard,
	}
	service.alive.Store(true)

	app.Get(HealthPath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	deps := &handler.Deps{
		Cfg:   cfg,
		DB:    db,
		Auth:  authService,
		Guard: guard,
	}

	// init handlers (they register their own routes with permission checks)
	handlers := map[string]handler.Service{
		"login":        &login.Handler,
		"logout":       &logout.Handler,
		"permission":   &permissionhandler.Handler,
		"role":         &rolehandler.Handler,
		"user":         &userhandler.Handler,
		"plan":         &planhandler.Handler,
		"subscription": &subscriptionhandler.Handler,
		"chatbot":      &chatbothandler.Handler,
		"document":     &documenthandler.Handler,
	}

	for name, h := range handlers {
		if err := h.Init(app, deps); err != nil {
			log.Fatal().Err(err).Str("handler", name).Msg("failed to init handler")
		}
	}

	return service
}
