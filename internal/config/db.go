package config

// Database driver names accepted in DB.Driver.
const (
	// DriverMySQL selects the MySQL backend.
	DriverMySQL = "mysql"
	// DriverSQLite selects the embedded SQLite backend, mainly for dev mode.
	DriverSQLite = "sqlite"
)

// DB holds the database configuration settings.
type DB struct {
	Driver   string // mysql or sqlite
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // database file path, sqlite only
}
