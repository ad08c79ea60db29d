// Package dsn builds database connection settings from the configuration.
package dsn

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/config"
)

// MySQLURI builds the MySQL Data Source Name from the configuration.
// Also used by the session storage, which connects on its own.
func MySQLURI(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
		cfg.DB.Extras,
	)
}

// Dialector returns the gorm dialector for the configured database backend.
func Dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DB.Driver == config.DriverSQLite {
		path := cfg.DB.Path
		if path == "" {
			path = "botforge.db"
		}

		return sqlite.Open(path)
	}

	return mysql.Open(MySQLURI(cfg))
}
