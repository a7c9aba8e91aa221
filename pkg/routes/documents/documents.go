package documents

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/TomMcIver/Stock-Port/internal/repositories"
)

// Register registers document routes
func Register(g *echo.Group) {
	g.GET("/:id/associations", Associations)
}

// Associations lists the securities a document was tagged with
func Associations(c echo.Context) error {
	ctx, repo, err := ectoinject.GetContext[repositories.AssociationRepo](c.Request().Context())
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	associations, err := repo.ListByDocument(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, associations)
}
