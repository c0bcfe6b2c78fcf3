package quotereel

import (
	"embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

// EmbeddedAssets contains the static dashboard page shipped with the
// application.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

func (a *App) handleIndex(c echo.Context) error {
	data, err := EmbeddedAssets.ReadFile("embedded/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, data)
}
