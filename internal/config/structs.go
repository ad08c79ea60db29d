package config

import (
	"time"

	"github.com/botforge-app/botforge/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Jobs      Jobs
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath           bool    // use clean path middleware to allow multi slash requests
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// Jobs holds the cron schedules for the background maintenance jobs.
// Empty schedules fall back to the defaults applied during validation.
type Jobs struct {
	ReconcileSchedule   string // cron spec for the usage ledger reconciliation sweep
	ExpirySweepSchedule string // cron spec for stamping expired subscriptions
}
