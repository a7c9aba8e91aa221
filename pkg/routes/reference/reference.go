package reference

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/TomMcIver/Stock-Port/pkg/tagging"
)

// Register registers reference routes
func Register(g *echo.Group) {
	g.POST("/reload", Reload)
	g.GET("/stats", Stats)
}

// Reload rebuilds the snapshot and returns its stats. A reload held by
// another instance is a 409.
func Reload(c echo.Context) error {
	ctx, engine, err := ectoinject.GetContext[*tagging.Engine](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := engine.Reload(ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusConflict, "a reference reload is already in progress")
	}
	return c.JSON(http.StatusOK, stats)
}

// Stats returns the current snapshot stats
func Stats(c echo.Context) error {
	_, engine, err := ectoinject.GetContext[*tagging.Engine](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	return c.JSON(http.StatusOK, engine.Stats())
}
