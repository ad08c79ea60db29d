package login

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/auth"
	"github.com/botforge-app/botforge/internal/config"
	"github.com/botforge-app/botforge/internal/db/models"
	"github.com/botforge-app/botforge/internal/web/handler"
	websess "github.com/botforge-app/botforge/internal/web/session"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	// In-memory SQLite databases are per-connection; keep the pool at one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Role{}))

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    8080,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

func setupTestApp(t *testing.T, db *gorm.DB, cfg *config.Config) *fiber.App {
	t.Helper()

	websess.Init(memory.New())

	app := fiber.New()

	var s Service
	require.NoError(t, s.Init(app, &handler.Deps{Cfg: cfg, DB: db}))

	return app
}

func performLogin(t *testing.T, app *fiber.App, username, password string) *http.Response {
	t.Helper()

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, Path, bytes.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	return resp
}

func TestPostSuccessSetsSessionCookie(t *testing.T) {
	db := setupTestDB(t)
	cfg := newTestConfig()
	app := setupTestApp(t, db, cfg)

	lp := auth.NewLocalProvider(db)
	user, err := lp.CreateUser("alice", "alice@example.com", "s3cr3t", "Alice", "Doe", nil)
	require.NoError(t, err)

	resp := performLogin(t, app, "alice", "s3cr3t")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == websess.CookieName {
			cookie = c
		}
	}

	require.NotNil(t, cookie, "session cookie must be set")
	assert.True(t, cookie.Secure, "session cookie must be secure outside dev mode")
	assert.True(t, cookie.HttpOnly)

	// The cookie value must resolve to the stored session.
	var data websess.Data
	require.NoError(t, data.Read(cookie.Value))
	assert.Equal(t, user.ID, data.UserID)
	assert.Equal(t, "alice", data.Username)
}

func TestPostDevModeInsecureCookie(t *testing.T) {
	db := setupTestDB(t)
	cfg := newTestConfig()
	cfg.DevMode = true
	app := setupTestApp(t, db, cfg)

	lp := auth.NewLocalProvider(db)
	_, err := lp.CreateUser("bob", "bob@example.com", "s3cr3t", "", "", nil)
	require.NoError(t, err)

	resp := performLogin(t, app, "bob", "s3cr3t")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == websess.CookieName {
			assert.False(t, c.Secure, "dev mode must not require https for the cookie")
		}
	}
}

func TestPostUniformUnauthorized(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db, newTestConfig())

	lp := auth.NewLocalProvider(db)
	carol, err := lp.CreateUser("carol", "carol@example.com", "s3cr3t", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, lp.DeactivateUser(carol.ID))

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "s3cr3t"},
		{"wrong password", "carol", "wrong"},
		{"disabled account", "carol", "s3cr3t"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performLogin(t, app, tc.username, tc.password)
			defer resp.Body.Close()

			// All failure modes share one response so the endpoint does not
			// reveal which accounts exist.
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Empty(t, resp.Cookies())
		})
	}
}

func TestPostRejectsMalformedBody(t *testing.T) {
	db := setupTestDB(t)
	app := setupTestApp(t, db, newTestConfig())

	req := httptest.NewRequest(http.MethodPost, Path, bytes.NewReader([]byte("not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
