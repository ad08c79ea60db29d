// Package daemon wires the database, background jobs and the web service
// into a running process.
package daemon

import (
	"fmt"

	"github.com/gofiber/storage"
	"github.com/gofiber/storage/memory"
	sessionmysql "github.com/gofiber/storage/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/config"
	"github.com/botforge-app/botforge/internal/db/controller/subscription"
	"github.com/botforge-app/botforge/internal/db/dsn"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/quota"
	"github.com/botforge-app/botforge/internal/web"
	"github.com/botforge-app/botforge/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	cfg        *config.Config
	cron       *cron.Cron
}

// Start runs the background jobs and the web service. Blocks until the web
// service stops.
func (d *Daemon) Start() error {
	d.cron.Start()
	defer d.cron.Stop()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// WaitShutdown delegates to the web service's graceful shutdown.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(dsn.Dialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.User{},
		&models.UserRole{},
		&models.Plan{},
		&models.Subscription{},
		&models.Chatbot{},
		&models.Document{},
		&models.ChatbotShare{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	session.Init(sessionStorage(cfg))

	guard := quota.NewGuard(db)

	return &Daemon{
		webService: web.New(cfg, db, guard),
		cfg:        cfg,
		cron:       newCron(cfg, db, guard),
	}
}

// sessionStorage picks the session backend. SQLite deployments and dev mode
// keep sessions in process memory; MySQL deployments share them through the
// database so multiple instances see the same logins.
func sessionStorage(cfg *config.Config) storage.Storage {
	if cfg.DevMode || cfg.DB.Driver == config.DriverSQLite {
		return memory.New()
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.MySQLURI(cfg),
		Table:         "sessions",
	})
}

// newCron schedules the background maintenance jobs: the usage ledger
// reconciliation sweep and the advisory expiry stamping.
func newCron(cfg *config.Config, db *gorm.DB, guard *quota.Guard) *cron.Cron {
	c := cron.New()

	reconciler := quota.NewReconciler(db, guard)

	if _, err := c.AddFunc(cfg.Jobs.ReconcileSchedule, func() {
		if err := reconciler.Run(); err != nil {
			log.Error().Err(err).Msg("usage reconciliation sweep failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Jobs.ReconcileSchedule).Msg("invalid reconcile schedule")
	}

	if _, err := c.AddFunc(cfg.Jobs.ExpirySweepSchedule, func() {
		if err := subscription.FlipExpired(db); err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Jobs.ExpirySweepSchedule).Msg("invalid expiry schedule")
	}

	return c
}
