package handler

const (
	// RootPath is the root path of the route group.
	RootPath = "/"

	// APIPath is the base path for the JSON API.
	APIPath = "/api/v1"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
